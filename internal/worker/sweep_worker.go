package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/allocation-service/internal/events"
	"github.com/spec-kit/allocation-service/internal/observability"
	"github.com/spec-kit/allocation-service/internal/service"
)

// SweepWorker periodically recomputes the conflict set and refreshes the
// cache, and records an audit log line for every engine event.
type SweepWorker struct {
	conflicts *service.ConflictService
	metrics   *observability.Metrics
	logger    *zap.Logger
	interval  time.Duration
}

// NewSweepWorker creates the worker. A zero interval disables sweeping but
// event auditing still runs.
func NewSweepWorker(conflicts *service.ConflictService, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *SweepWorker {
	return &SweepWorker{conflicts: conflicts, metrics: metrics, logger: logger, interval: interval}
}

// RegisterHandlers subscribes audit logging to engine events.
func (w *SweepWorker) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventAssignmentCreated,
		events.EventAssignmentRemoved,
		events.EventConflictDetected,
		events.EventConflictResolved,
		events.EventConflictDismissed,
	} {
		dispatcher.Subscribe(eventType, w.audit)
	}
}

func (w *SweepWorker) audit(ctx context.Context, event events.Event) error {
	w.logger.Info("engine event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload),
	)
	switch event.Type {
	case events.EventConflictResolved:
		w.metrics.RecordResolution("apply")
	case events.EventConflictDismissed:
		w.metrics.RecordResolution("ignore")
	}
	return nil
}

// Start runs the periodic sweep until the context is cancelled.
func (w *SweepWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

func (w *SweepWorker) sweep(ctx context.Context) {
	conflicts := w.conflicts.Refresh(ctx)

	byType := make(map[string]int)
	unresolved := 0
	for i := range conflicts {
		byType[string(conflicts[i].Type)]++
		if !conflicts[i].Resolved {
			unresolved++
		}
	}
	w.metrics.RecordDetection(byType)

	w.logger.Debug("conflict sweep finished",
		zap.Int("total", len(conflicts)),
		zap.Int("unresolved", unresolved),
	)
}
