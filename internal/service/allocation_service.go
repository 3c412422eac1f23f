package service

import (
	"context"
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

// AllocationService handles candidate ranking and assignment commands.
type AllocationService struct {
	store      *store.Store
	scorer     *engine.Scorer
	gate       *engine.Gate
	detector   *engine.Detector
	conflicts  *cache.ConflictCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.EngineConfig
}

// AllocationDependencies bundles collaborators.
type AllocationDependencies struct {
	Store      *store.Store
	Scorer     *engine.Scorer
	Gate       *engine.Gate
	Detector   *engine.Detector
	Cache      *cache.ConflictCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAllocationService creates the service.
func NewAllocationService(cfg config.EngineConfig, deps AllocationDependencies) *AllocationService {
	return &AllocationService{
		store:      deps.Store,
		scorer:     deps.Scorer,
		gate:       deps.Gate,
		detector:   deps.Detector,
		conflicts:  deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        cfg,
	}
}

// Candidate is a ranked eligible staff member for a work item.
type Candidate struct {
	StaffID string
	Name    string
	Score   float64
}

// ListEligibleCandidates scores every staff member against the work item,
// gates them, and returns the eligible ones ranked.
func (s *AllocationService) ListEligibleCandidates(ctx context.Context, workItemID string) ([]Candidate, error) {
	snap := s.store.Snapshot()
	item, ok := snap.WorkItems[workItemID]
	if !ok {
		return nil, apperrors.NewNotFound("work item", map[string]any{"work_item_id": workItemID})
	}

	var eligible []engine.Candidate
	for _, staff := range snap.StaffSorted() {
		if item.IsAssignedTo(staff.ID) {
			continue
		}
		st := staff
		score := s.scorer.Score(&st, &item)
		if !s.gate.IsEligible(&st, score) {
			continue
		}
		eligible = append(eligible, engine.Candidate{Staff: &st, Score: score})
	}
	engine.SortCandidates(eligible)

	out := make([]Candidate, 0, len(eligible))
	for _, c := range eligible {
		out = append(out, Candidate{StaffID: c.Staff.ID, Name: c.Staff.Name, Score: c.Score})
	}
	return out, nil
}

// CreateAssignment binds staff to work item after gating. Force bypasses the
// soft score constraint only; offline and capacity limits always hold.
func (s *AllocationService) CreateAssignment(ctx context.Context, staffID, workItemID string, force bool) (domain.Assignment, error) {
	staff, err := s.store.GetStaff(staffID)
	if err != nil {
		return domain.Assignment{}, err
	}
	item, err := s.store.GetWorkItem(workItemID)
	if err != nil {
		return domain.Assignment{}, err
	}

	if s.gate.Offline(&staff) {
		return domain.Assignment{}, apperrors.NewValidationError("staff is offline", map[string]any{
			"staff_id": staffID,
		})
	}
	// Rejects forced requests too; non-forced assigns are re-checked by the
	// store under its lock.
	if s.gate.OverCapacity(&staff) {
		return domain.Assignment{}, apperrors.NewCapacityExceeded("workload would exceed maximum", map[string]any{
			"staff_id":         staffID,
			"workload_percent": staff.WorkloadPercent,
			"max_workload":     s.cfg.MaxWorkloadPerPerson,
		})
	}

	score := s.scorer.Score(&staff, &item)
	if !force && score < s.cfg.MinSkillMatchThreshold {
		return domain.Assignment{}, apperrors.NewNoEligibleCandidate("score below minimum skill match threshold", map[string]any{
			"staff_id":  staffID,
			"score":     score,
			"threshold": s.cfg.MinSkillMatchThreshold,
		})
	}

	assignment, err := s.store.Assign(ctx, staffID, workItemID, force)
	if err != nil {
		return domain.Assignment{}, err
	}

	s.conflicts.InvalidateAll(ctx)
	s.publish(ctx, events.EventAssignmentCreated, events.AssignmentCreatedPayload{
		AssignmentID: assignment.ID,
		StaffID:      staffID,
		WorkItemID:   workItemID,
		Score:        score,
		Forced:       force,
	})
	s.publishNewConflicts(ctx, staffID, workItemID)

	s.logger.Info("assignment created",
		zap.String("staff_id", staffID),
		zap.String("work_item_id", workItemID),
		zap.Float64("score", score),
		zap.Bool("forced", force),
	)
	return assignment, nil
}

// RemoveAssignment unbinds staff from work item, reversing the workload delta.
func (s *AllocationService) RemoveAssignment(ctx context.Context, staffID, workItemID string) error {
	if err := s.store.Unassign(ctx, staffID, workItemID); err != nil {
		return err
	}

	s.conflicts.InvalidateAll(ctx)
	s.publish(ctx, events.EventAssignmentRemoved, events.AssignmentRemovedPayload{
		StaffID:    staffID,
		WorkItemID: workItemID,
	})

	s.logger.Info("assignment removed",
		zap.String("staff_id", staffID),
		zap.String("work_item_id", workItemID),
	)
	return nil
}

// publishNewConflicts re-runs detection after a mutation and emits events for
// unresolved conflicts touching the mutated pair.
func (s *AllocationService) publishNewConflicts(ctx context.Context, staffID, workItemID string) {
	conflicts := s.detector.Detect(s.store.Snapshot())
	for i := range conflicts {
		c := &conflicts[i]
		if c.Resolved {
			continue
		}
		if !c.Affects(staffID) && !c.References(workItemID) {
			continue
		}
		s.publish(ctx, events.EventConflictDetected, events.ConflictDetectedPayload{
			ConflictID: c.ID,
			Type:       c.Type,
			Severity:   c.Severity,
			WorkItemID: c.WorkItemID,
		})
	}
}

func (s *AllocationService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
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
