package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/filtrotek/storefront/internal/models"
)

// ERPSyncRepository stores inventory adjustments waiting to reach the ERP.
type ERPSyncRepository struct {
	db *sqlx.DB
}

func NewERPSyncRepository(db *sqlx.DB) *ERPSyncRepository {
	return &ERPSyncRepository{db: db}
}

func (r *ERPSyncRepository) Create(ctx context.Context, t *models.ERPSyncTask) error {
	if t.Status == "" {
		t.Status = models.ERPSyncPending
	}
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO erp_sync_tasks (order_id, product_id, erp_id, delta, reason, attempts, last_error, status, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		t.OrderID, t.ProductID, t.ERPID, t.Delta, t.Reason, t.Attempts, t.LastError, t.Status, t.NextAttemptAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// ListDue returns pending tasks whose next attempt is at or before now.
func (r *ERPSyncRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ERPSyncTask, error) {
	tasks := []models.ERPSyncTask{}
	err := r.db.SelectContext(ctx, &tasks, `
		SELECT * FROM erp_sync_tasks
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY next_attempt_at
		LIMIT $2`, now, limit)
	return tasks, err
}

func (r *ERPSyncRepository) MarkDone(ctx context.Context, id, attempts int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE erp_sync_tasks SET status = 'done', attempts = $1, last_error = '', updated_at = NOW()
		WHERE id = $2`, attempts, id)
	return err
}

// MarkRetry records a failed attempt and when to try again.
func (r *ERPSyncRepository) MarkRetry(ctx context.Context, id, attempts int, lastErr string, next time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE erp_sync_tasks SET attempts = $1, last_error = $2, next_attempt_at = $3, updated_at = NOW()
		WHERE id = $4`, attempts, lastErr, next, id)
	return err
}

func (r *ERPSyncRepository) MarkFailed(ctx context.Context, id, attempts int, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE erp_sync_tasks SET status = 'failed', attempts = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3`, attempts, lastErr, id)
	return err
}
