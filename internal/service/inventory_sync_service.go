package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/metrics"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
	"github.com/filtrotek/storefront/pkg/erp"
)

const (
	syncBaseDelay = time.Minute
	syncMaxDelay  = time.Hour
)

// ERPInventoryAdjuster applies relative stock changes in the ERP.
type ERPInventoryAdjuster interface {
	AdjustInventory(ctx context.Context, adj *erp.InventoryAdjustment) (*erp.InventoryAdjustmentResult, error)
}

// SyncTaskStore persists adjustments that still have to reach the ERP.
type SyncTaskStore interface {
	Create(ctx context.Context, t *models.ERPSyncTask) error
	MarkDone(ctx context.Context, id, attempts int) error
	MarkRetry(ctx context.Context, id, attempts int, lastErr string, next time.Time) error
	MarkFailed(ctx context.Context, id, attempts int, lastErr string) error
}

// InventoryChange is a stock delta for one ERP product.
type InventoryChange struct {
	OrderID   *int
	ProductID *int
	ERPID     string
	Delta     int
	Reason    string
	Reference string
}

// InventorySyncService pushes local stock movements to the ERP. Failures
// never undo the local change; they are queued for the sync worker.
type InventorySyncService struct {
	erp         ERPInventoryAdjuster
	tasks       SyncTaskStore
	clock       utils.Clock
	maxAttempts int
}

// NewInventorySyncService creates the service. A nil adjuster disables ERP sync.
func NewInventorySyncService(adjuster ERPInventoryAdjuster, tasks SyncTaskStore, clock utils.Clock, maxAttempts int) *InventorySyncService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	return &InventorySyncService{erp: adjuster, tasks: tasks, clock: clock, maxAttempts: maxAttempts}
}

// Push applies each change, queueing the ones the ERP rejects.
func (s *InventorySyncService) Push(ctx context.Context, changes []InventoryChange) {
	if s.erp == nil {
		return
	}
	for _, ch := range changes {
		if ch.ERPID == "" || ch.Delta == 0 {
			continue
		}
		err := s.apply(ctx, ch.ERPID, ch.Delta, ch.Reason, ch.Reference)
		if err == nil {
			continue
		}

		metrics.ERPSyncFailures.WithLabelValues("immediate").Inc()
		log.Error().Err(err).
			Str("erp_id", ch.ERPID).
			Int("delta", ch.Delta).
			Str("reference", ch.Reference).
			Msg("ERP inventory adjustment failed; queued for retry")

		task := &models.ERPSyncTask{
			OrderID:       ch.OrderID,
			ProductID:     ch.ProductID,
			ERPID:         ch.ERPID,
			Delta:         ch.Delta,
			Reason:        ch.Reason,
			Attempts:      1,
			LastError:     err.Error(),
			Status:        models.ERPSyncPending,
			NextAttemptAt: s.clock.Now().Add(RetryDelay(1)),
		}
		if err := s.tasks.Create(ctx, task); err != nil {
			log.Error().Err(err).Str("erp_id", ch.ERPID).Int("delta", ch.Delta).Msg("Failed to queue ERP sync task")
		}
	}
}

// Retry re-applies a queued task and records the outcome.
func (s *InventorySyncService) Retry(ctx context.Context, t *models.ERPSyncTask) error {
	if s.erp == nil {
		return errors.New("erp not configured")
	}
	attempts := t.Attempts + 1
	err := s.apply(ctx, t.ERPID, t.Delta, t.Reason, "sync-task:"+itoa(t.ID))
	if err == nil {
		log.Info().Int("task_id", t.ID).Str("erp_id", t.ERPID).Int("attempts", attempts).Msg("ERP sync task applied")
		return s.tasks.MarkDone(ctx, t.ID, attempts)
	}

	if attempts >= s.maxAttempts {
		metrics.ERPSyncFailures.WithLabelValues("exhausted").Inc()
		log.Error().Err(err).Int("task_id", t.ID).Str("erp_id", t.ERPID).Int("attempts", attempts).
			Msg("ERP sync task gave up")
		return s.tasks.MarkFailed(ctx, t.ID, attempts, err.Error())
	}

	metrics.ERPSyncFailures.WithLabelValues("retry").Inc()
	return s.tasks.MarkRetry(ctx, t.ID, attempts, err.Error(), s.clock.Now().Add(RetryDelay(attempts)))
}

func (s *InventorySyncService) apply(ctx context.Context, erpID string, delta int, reason, reference string) error {
	_, err := s.erp.AdjustInventory(ctx, &erp.InventoryAdjustment{
		ProductID: erpID,
		Quantity:  delta,
		Reason:    reason,
		Reference: reference,
	})
	return err
}

// RetryDelay is the wait before attempt n+1: one minute doubled per
// attempt, capped at one hour.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := syncBaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= syncMaxDelay {
			return syncMaxDelay
		}
	}
	return d
}
