package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

var syncNow = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func TestPushAppliesChanges(t *testing.T) {
	adjuster := newFakeERP()
	tasks := newFakeTasks()
	svc := NewInventorySyncService(adjuster, tasks, &utils.FixedClock{T: syncNow}, 3)

	svc.Push(context.Background(), []InventoryChange{
		{ERPID: "erp-1", Delta: -2, Reason: "sale", Reference: "order:FLT-1"},
		{ERPID: "", Delta: -1, Reason: "sale"},
		{ERPID: "erp-2", Delta: 0, Reason: "sale"},
	})

	require.Len(t, adjuster.adjustments, 1)
	assert.Equal(t, "erp-1", adjuster.adjustments[0].ProductID)
	assert.Equal(t, -2, adjuster.adjustments[0].Quantity)
	assert.Equal(t, "order:FLT-1", adjuster.adjustments[0].Reference)
	assert.Empty(t, tasks.created)
}

func TestPushQueuesFailures(t *testing.T) {
	adjuster := newFakeERP()
	adjuster.adjustErr = errors.New("erp: status 503")
	tasks := newFakeTasks()
	svc := NewInventorySyncService(adjuster, tasks, &utils.FixedClock{T: syncNow}, 3)
	orderID := 12

	svc.Push(context.Background(), []InventoryChange{{OrderID: &orderID, ERPID: "erp-1", Delta: -2, Reason: "sale"}})

	require.Len(t, tasks.created, 1)
	task := tasks.created[0]
	assert.Equal(t, 1, task.Attempts)
	assert.Equal(t, models.ERPSyncPending, task.Status)
	assert.Equal(t, syncNow.Add(time.Minute), task.NextAttemptAt)
	assert.Equal(t, "erp: status 503", task.LastError)
	require.NotNil(t, task.OrderID)
	assert.Equal(t, 12, *task.OrderID)
}

func TestPushWithoutERPIsNoop(t *testing.T) {
	tasks := newFakeTasks()
	svc := NewInventorySyncService(nil, tasks, nil, 0)

	svc.Push(context.Background(), []InventoryChange{{ERPID: "erp-1", Delta: 1}})
	assert.Empty(t, tasks.created)
}

func TestRetryOutcomes(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		tasks := newFakeTasks()
		adjuster := newFakeERP()
		svc := NewInventorySyncService(adjuster, tasks, &utils.FixedClock{T: syncNow}, 3)

		err := svc.Retry(context.Background(), &models.ERPSyncTask{ID: 5, ERPID: "erp-1", Delta: 3, Attempts: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, tasks.done[5])
		assert.Equal(t, "sync-task:5", adjuster.adjustments[0].Reference)
	})

	t.Run("rescheduled with backoff", func(t *testing.T) {
		tasks := newFakeTasks()
		adjuster := newFakeERP()
		adjuster.adjustErr = errors.New("timeout")
		svc := NewInventorySyncService(adjuster, tasks, &utils.FixedClock{T: syncNow}, 3)

		err := svc.Retry(context.Background(), &models.ERPSyncTask{ID: 5, ERPID: "erp-1", Delta: 3, Attempts: 1})
		require.NoError(t, err)
		assert.Equal(t, syncNow.Add(2*time.Minute), tasks.retried[5])
		assert.Empty(t, tasks.failed)
	})

	t.Run("exhausted", func(t *testing.T) {
		tasks := newFakeTasks()
		adjuster := newFakeERP()
		adjuster.adjustErr = errors.New("timeout")
		svc := NewInventorySyncService(adjuster, tasks, &utils.FixedClock{T: syncNow}, 3)

		err := svc.Retry(context.Background(), &models.ERPSyncTask{ID: 5, ERPID: "erp-1", Delta: 3, Attempts: 2})
		require.NoError(t, err)
		assert.Equal(t, "timeout", tasks.failed[5])
		assert.Empty(t, tasks.retried)
	})
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Minute, RetryDelay(0))
	assert.Equal(t, time.Minute, RetryDelay(1))
	assert.Equal(t, 4*time.Minute, RetryDelay(3))
	assert.Equal(t, 32*time.Minute, RetryDelay(6))
	assert.Equal(t, time.Hour, RetryDelay(7))
	assert.Equal(t, time.Hour, RetryDelay(20))
}
