package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/allocation-service/internal/cache"
	"github.com/spec-kit/allocation-service/internal/config"
	"github.com/spec-kit/allocation-service/internal/domain"
	"github.com/spec-kit/allocation-service/internal/engine"
	"github.com/spec-kit/allocation-service/internal/events"
	"github.com/spec-kit/allocation-service/internal/store"
	apperrors "github.com/spec-kit/allocation-service/pkg/util"
)

// ResolveAction selects the remedy applied to a conflict.
type ResolveAction string

const (
	ResolveActionApply  ResolveAction = "apply"
	ResolveActionIgnore ResolveAction = "ignore"
)

// ConflictService detects conflicts and drives the resolution workflow.
type ConflictService struct {
	store      *store.Store
	scorer     *engine.Scorer
	gate       *engine.Gate
	detector   *engine.Detector
	conflicts  *cache.ConflictCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.EngineConfig

	// resolving tracks conflicts and work items with a remedy in flight; the
	// transient state between unresolved and resolved.
	mu        sync.Mutex
	resolving map[string]bool
}

// ConflictDependencies bundles collaborators.
type ConflictDependencies struct {
	Store      *store.Store
	Scorer     *engine.Scorer
	Gate       *engine.Gate
	Detector   *engine.Detector
	Cache      *cache.ConflictCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewConflictService creates the service.
func NewConflictService(cfg config.EngineConfig, deps ConflictDependencies) *ConflictService {
	return &ConflictService{
		store:      deps.Store,
		scorer:     deps.Scorer,
		gate:       deps.Gate,
		detector:   deps.Detector,
		conflicts:  deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        cfg,
		resolving:  make(map[string]bool),
	}
}

// ConflictFilter narrows conflict listings.
type ConflictFilter struct {
	WorkItemID *string
	StaffID    *string
	Type       *domain.ConflictType
	Severity   *domain.ConflictSeverity
	Resolved   *bool
}

// List returns the current conflict set, filtered. The unfiltered set is
// served from cache when fresh and recomputed otherwise.
func (s *ConflictService) List(ctx context.Context, filter ConflictFilter) ([]domain.Conflict, error) {
	conflicts := s.currentConflicts(ctx)

	out := make([]domain.Conflict, 0, len(conflicts))
	for i := range conflicts {
		c := &conflicts[i]
		if filter.WorkItemID != nil && !c.References(*filter.WorkItemID) {
			continue
		}
		if filter.StaffID != nil && !c.Affects(*filter.StaffID) {
			continue
		}
		if filter.Type != nil && c.Type != *filter.Type {
			continue
		}
		if filter.Severity != nil && c.Severity != *filter.Severity {
			continue
		}
		if filter.Resolved != nil && c.Resolved != *filter.Resolved {
			continue
		}
		out = append(out, c.Clone())
	}
	return out, nil
}

// Refresh recomputes the conflict set, refreshes the cache, and drops
// dismissal flags for conflicts no longer detected. Used by the sweep worker.
func (s *ConflictService) Refresh(ctx context.Context) []domain.Conflict {
	snap := s.store.Snapshot()
	conflicts := s.detector.Detect(snap)

	active := make(map[string]bool, len(conflicts))
	for i := range conflicts {
		active[conflicts[i].ID] = true
	}
	s.store.PruneDismissed(active)

	s.conflicts.Set(ctx, cache.AllWorkItems, conflicts, snap.TakenAt)
	return conflicts
}

// currentConflicts serves the full set from cache when available.
func (s *ConflictService) currentConflicts(ctx context.Context) []domain.Conflict {
	if cached, _, ok := s.conflicts.Get(ctx, cache.AllWorkItems); ok {
		return cached
	}
	snap := s.store.Snapshot()
	conflicts := s.detector.Detect(snap)
	s.conflicts.Set(ctx, cache.AllWorkItems, conflicts, snap.TakenAt)
	return conflicts
}

// Resolve applies the chosen remedy to one conflict.
func (s *ConflictService) Resolve(ctx context.Context, conflictID string, action ResolveAction) (domain.Conflict, error) {
	switch action {
	case ResolveActionApply, ResolveActionIgnore:
	default:
		return domain.Conflict{}, apperrors.NewValidationError("unknown resolve action", map[string]any{
			"action": string(action),
		})
	}

	conflicts := s.detector.Detect(s.store.Snapshot())
	var target *domain.Conflict
	for i := range conflicts {
		if conflicts[i].ID == conflictID {
			target = &conflicts[i]
			break
		}
	}
	if target == nil {
		return domain.Conflict{}, apperrors.NewNotFound("conflict", map[string]any{"conflict_id": conflictID})
	}
	if target.Resolved {
		// Dismissing twice is a no-op, not an error.
		return target.Clone(), nil
	}

	if action == ResolveActionIgnore {
		s.store.Dismiss(conflictID)
		s.conflicts.InvalidateAll(ctx)
		s.publish(ctx, events.EventConflictDismissed, events.ConflictDismissedPayload{ConflictID: conflictID})
		s.logger.Info("conflict dismissed", zap.String("conflict_id", conflictID))
		resolved := target.Clone()
		resolved.Resolved = true
		return resolved, nil
	}

	if !s.beginResolving(conflictID) {
		return domain.Conflict{}, apperrors.NewConcurrentModification("conflict resolution already in progress", map[string]any{
			"conflict_id": conflictID,
		})
	}
	defer s.endResolving(conflictID)

	return s.applySuggestion(ctx, target)
}

// applySuggestion moves the conflict's work item from the offending staff to
// the suggested alternative, re-validating the suggestion first.
func (s *ConflictService) applySuggestion(ctx context.Context, c *domain.Conflict) (domain.Conflict, error) {
	if c.SuggestedStaffID == nil {
		return domain.Conflict{}, apperrors.NewNoEligibleCandidate("conflict has no suggested alternative", map[string]any{
			"conflict_id": c.ID,
		})
	}
	if len(c.AffectedStaffIDs) == 0 {
		return domain.Conflict{}, apperrors.NewValidationError("conflict has no affected staff", map[string]any{
			"conflict_id": c.ID,
		})
	}
	offenderID := c.AffectedStaffIDs[0]
	suggestedID := *c.SuggestedStaffID

	// Re-validate against current state; the suggestion may be stale.
	snap := s.store.Snapshot()
	item, ok := snap.WorkItems[c.WorkItemID]
	if !ok {
		return domain.Conflict{}, apperrors.NewStaleSuggestion("work item no longer exists", map[string]any{
			"conflict_id":  c.ID,
			"work_item_id": c.WorkItemID,
		})
	}
	if _, ok := snap.AssignmentFor(offenderID, c.WorkItemID); !ok {
		return domain.Conflict{}, apperrors.NewStaleSuggestion("offending assignment no longer exists", map[string]any{
			"conflict_id": c.ID,
		})
	}
	suggested, ok := snap.Staff[suggestedID]
	if !ok {
		return domain.Conflict{}, apperrors.NewStaleSuggestion("suggested staff no longer exists", map[string]any{
			"conflict_id":        c.ID,
			"suggested_staff_id": suggestedID,
		})
	}
	if item.IsAssignedTo(suggestedID) {
		return domain.Conflict{}, apperrors.NewStaleSuggestion("suggested staff already assigned", map[string]any{
			"conflict_id":        c.ID,
			"suggested_staff_id": suggestedID,
		})
	}
	score := s.scorer.Score(&suggested, &item)
	if !s.gate.IsEligible(&suggested, score) {
		return domain.Conflict{}, apperrors.NewStaleSuggestion("suggested staff no longer eligible", map[string]any{
			"conflict_id":        c.ID,
			"suggested_staff_id": suggestedID,
			"score":              score,
		})
	}

	if err := s.store.Unassign(ctx, offenderID, c.WorkItemID); err != nil {
		return domain.Conflict{}, err
	}
	if _, err := s.store.Assign(ctx, suggestedID, c.WorkItemID, false); err != nil {
		// Restore the original assignment so the remedy is all or nothing.
		if _, restoreErr := s.store.Assign(ctx, offenderID, c.WorkItemID, true); restoreErr != nil {
			s.logger.Error("failed to restore assignment after remedy failure",
				zap.String("conflict_id", c.ID),
				zap.String("staff_id", offenderID),
				zap.Error(restoreErr),
			)
		}
		return domain.Conflict{}, err
	}

	s.conflicts.InvalidateAll(ctx)
	s.publish(ctx, events.EventConflictResolved, events.ConflictResolvedPayload{
		ConflictID:      c.ID,
		WorkItemID:      c.WorkItemID,
		ReassignedTo:    &suggestedID,
		PreviousStaffID: &offenderID,
	})
	s.logger.Info("conflict resolved",
		zap.String("conflict_id", c.ID),
		zap.String("work_item_id", c.WorkItemID),
		zap.String("reassigned_to", suggestedID),
	)

	resolved := c.Clone()
	resolved.Resolved = true
	return resolved, nil
}

// ResolveAllResult reports the outcome of a bulk resolution.
type ResolveAllResult struct {
	ResolvedCount int
	Failures      []error
}

// ResolveAll applies suggestions to every unresolved conflict referencing the
// work item, in ascending severity then id order, sequentially. It stops at
// the first failure but keeps already-applied fixes.
func (s *ConflictService) ResolveAll(ctx context.Context, workItemID string) (ResolveAllResult, error) {
	if _, err := s.store.GetWorkItem(workItemID); err != nil {
		return ResolveAllResult{}, err
	}

	key := "workitem:" + workItemID
	if !s.beginResolving(key) {
		return ResolveAllResult{}, apperrors.NewConcurrentModification("bulk resolution already in progress", map[string]any{
			"work_item_id": workItemID,
		})
	}
	defer s.endResolving(key)

	conflicts := s.detector.Detect(s.store.Snapshot())
	var pending []domain.Conflict
	for i := range conflicts {
		if !conflicts[i].Resolved && conflicts[i].References(workItemID) {
			pending = append(pending, conflicts[i])
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Severity.Rank() != pending[j].Severity.Rank() {
			return pending[i].Severity.Rank() < pending[j].Severity.Rank()
		}
		return pending[i].ID < pending[j].ID
	})

	result := ResolveAllResult{}
	for i := range pending {
		c := pending[i]
		// Earlier fixes may have cleared later conflicts; skip those.
		if !s.stillDetected(c.ID) {
			continue
		}
		if _, err := s.applySuggestion(ctx, &c); err != nil {
			result.Failures = append(result.Failures, err)
			break
		}
		result.ResolvedCount++
	}

	s.logger.Info("bulk resolution finished",
		zap.String("work_item_id", workItemID),
		zap.Int("resolved", result.ResolvedCount),
		zap.Int("failures", len(result.Failures)),
	)
	return result, nil
}

func (s *ConflictService) stillDetected(conflictID string) bool {
	conflicts := s.detector.Detect(s.store.Snapshot())
	for i := range conflicts {
		if conflicts[i].ID == conflictID && !conflicts[i].Resolved {
			return true
		}
	}
	return false
}

func (s *ConflictService) beginResolving(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolving[key] {
		return false
	}
	s.resolving[key] = true
	return true
}

func (s *ConflictService) endResolving(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resolving, key)
}

func (s *ConflictService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
