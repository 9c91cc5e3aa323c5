package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

const retryBatchSize = 50

// DueTaskLister finds ERP sync tasks ready for another attempt.
type DueTaskLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.ERPSyncTask, error)
}

// TaskRetrier re-applies one task and records the outcome.
type TaskRetrier interface {
	Retry(ctx context.Context, t *models.ERPSyncTask) error
}

// RetryWorker re-sends inventory adjustments the ERP rejected.
type RetryWorker struct {
	tasks    DueTaskLister
	sync     TaskRetrier
	clock    utils.Clock
	interval time.Duration
}

// NewRetryWorker constructs a RetryWorker.
func NewRetryWorker(tasks DueTaskLister, sync TaskRetrier, clock utils.Clock, interval time.Duration) *RetryWorker {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &RetryWorker{
		tasks:    tasks,
		sync:     sync,
		clock:    clock,
		interval: interval,
	}
}

// Start begins the periodic retry loop until context is canceled.
func (w *RetryWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting ERP sync worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("ERP sync worker stopped")
			return
		}
	}
}

func (w *RetryWorker) run(ctx context.Context) {
	tasks, err := w.tasks.ListDue(ctx, w.clock.Now(), retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get due ERP sync tasks")
		return
	}
	if len(tasks) == 0 {
		return
	}
	log.Info().Int("count", len(tasks)).Msg("Retrying ERP inventory adjustments")

	for i := range tasks {
		// Respect cancellation between items
		select {
		case <-ctx.Done():
			return
		default:
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *RetryWorker) processTask(ctx context.Context, t *models.ERPSyncTask) {
	if err := w.sync.Retry(ctx, t); err != nil {
		log.Error().Err(err).Int("task_id", t.ID).Str("erp_id", t.ERPID).Msg("Failed to record ERP sync attempt")
	}
}
