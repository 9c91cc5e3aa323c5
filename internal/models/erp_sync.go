package models

import "time"

type ERPSyncStatus string

const (
	ERPSyncPending ERPSyncStatus = "pending"
	ERPSyncDone    ERPSyncStatus = "done"
	ERPSyncFailed  ERPSyncStatus = "failed"
)

// ERPSyncTask is an inventory adjustment that could not be delivered to the
// ERP and waits for the sync worker.
type ERPSyncTask struct {
	ID            int           `db:"id" json:"id"`
	OrderID       *int          `db:"order_id" json:"orderId,omitempty"`
	ProductID     *int          `db:"product_id" json:"productId,omitempty"`
	ERPID         string        `db:"erp_id" json:"erpId"`
	Delta         int           `db:"delta" json:"delta"`
	Reason        string        `db:"reason" json:"reason"`
	Attempts      int           `db:"attempts" json:"attempts"`
	LastError     string        `db:"last_error" json:"lastError"`
	Status        ERPSyncStatus `db:"status" json:"status"`
	NextAttemptAt time.Time     `db:"next_attempt_at" json:"nextAttemptAt"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updatedAt"`
}
