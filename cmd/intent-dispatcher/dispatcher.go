package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/seoforge/intent-engine/pkg/eventbus"
	"github.com/seoforge/intent-engine/pkg/events"
	"github.com/seoforge/intent-engine/pkg/persistence"
)

// DispatcherManager consumes pipeline events and hands stage triggers to
// the worker fleet. It also runs the stuck-workflow sweep: workflows
// sitting in a running substate past the threshold are surfaced for
// operator attention, never auto-failed.
type DispatcherManager struct {
	id          string
	eventBus    eventbus.EventBus
	persistence persistence.Persistence
	logger      *slog.Logger
	cron        *cron.Cron
	stuckAfter  time.Duration
}

func NewDispatcherManager(
	id string,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	stuckAfter time.Duration,
) *DispatcherManager {
	return &DispatcherManager{
		id:          id,
		eventBus:    eventBus,
		persistence: store,
		logger:      logger.With("module", "intent-dispatcher", "dispatcher_id", id),
		cron:        cron.New(),
		stuckAfter:  stuckAfter,
	}
}

func (dm *DispatcherManager) Start(ctx context.Context) error {
	dmCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dm.logger.InfoContext(dmCtx, "Starting dispatcher manager")

	if err := dm.eventBus.Subscribe(dmCtx, dm.handleEvent); err != nil {
		return err
	}

	if _, err := dm.cron.AddFunc("@every 5m", func() { dm.sweepStuck(dmCtx) }); err != nil {
		return err
	}

	dm.cron.Start()
	defer dm.cron.Stop()

	dm.signals(dmCtx, cancel)

	<-dmCtx.Done()
	dm.logger.Info("Dispatcher manager stopped")

	return nil
}

func (dm *DispatcherManager) signals(ctx context.Context, cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		dm.logger.InfoContext(ctx, "Received signal, shutting down gracefully", "signal", sig)
		cancel()
	}()
}

func (dm *DispatcherManager) handleEvent(ctx context.Context, event eventbus.Event) error {
	switch e := event.(type) {
	case *events.StepTrigger:
		// Stage workers are external; the dispatcher's contract is to hand
		// them the trigger.
		dm.logger.InfoContext(ctx, "dispatching stage trigger to worker fleet",
			"event_type", e.Type,
			"workflow_id", e.WorkflowID,
			"organization_id", e.OrganizationID,
			"actor", e.Actor,
		)

		return nil
	case *events.WorkflowCompleted:
		dm.logger.InfoContext(ctx, "pipeline run completed",
			"workflow_id", e.WorkflowID,
			"organization_id", e.OrganizationID,
			"final_state", e.FinalState,
		)

		return nil
	default:
		dm.logger.WarnContext(ctx, "unhandled event type", "event_type", event.GetType())

		return nil
	}
}

// sweepStuck surfaces workflows parked in a running substate longer than
// the threshold. Emitting duplicate triggers here could double-run a
// worker, so the sweep only reports.
func (dm *DispatcherManager) sweepStuck(ctx context.Context) {
	stuck, err := dm.persistence.WorkflowRepository().ListStuckRunning(ctx, dm.stuckAfter)
	if err != nil {
		dm.logger.ErrorContext(ctx, "stuck-workflow sweep failed", "error", err)

		return
	}

	for _, workflow := range stuck {
		dm.logger.WarnContext(ctx, "workflow stuck in running substate",
			"workflow_id", workflow.ID,
			"organization_id", workflow.OrganizationID,
			"state", workflow.State,
			"updated_at", workflow.UpdatedAt,
		)
	}
}
