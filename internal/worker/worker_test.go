package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/service"
	"github.com/filtrotek/storefront/internal/utils"
)

type dueTasks struct {
	tasks []models.ERPSyncTask
	err   error
	now   time.Time
	limit int
}

func (d *dueTasks) ListDue(_ context.Context, now time.Time, limit int) ([]models.ERPSyncTask, error) {
	d.now, d.limit = now, limit
	return d.tasks, d.err
}

type retrier struct {
	ids []int
	err error
}

func (r *retrier) Retry(_ context.Context, t *models.ERPSyncTask) error {
	r.ids = append(r.ids, t.ID)
	return r.err
}

func TestRetryWorkerRunsDueTasks(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	tasks := &dueTasks{tasks: []models.ERPSyncTask{{ID: 1, ERPID: "e1"}, {ID: 2, ERPID: "e2"}}}
	sync := &retrier{err: errors.New("db down")}
	w := NewRetryWorker(tasks, sync, &utils.FixedClock{T: now}, time.Minute)

	w.run(context.Background())

	assert.Equal(t, now, tasks.now)
	assert.Equal(t, retryBatchSize, tasks.limit)
	assert.Equal(t, []int{1, 2}, sync.ids)
}

func TestRetryWorkerStopsOnCancel(t *testing.T) {
	tasks := &dueTasks{tasks: []models.ERPSyncTask{{ID: 1}, {ID: 2}}}
	sync := &retrier{}
	w := NewRetryWorker(tasks, sync, nil, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.run(ctx)

	assert.Empty(t, sync.ids)
}

func TestRetryWorkerListError(t *testing.T) {
	sync := &retrier{}
	w := NewRetryWorker(&dueTasks{err: errors.New("timeout")}, sync, nil, time.Minute)

	w.run(context.Background())

	assert.Empty(t, sync.ids)
}

type countingPublisher struct {
	calls atomic.Int32
}

func (p *countingPublisher) PublishDue(context.Context) (int, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestBlogPublishWorkerTicksUntilCancelled(t *testing.T) {
	pub := &countingPublisher{}
	w := NewBlogPublishWorker(pub, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return pub.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

type countingSyncer struct {
	calls atomic.Int32
	err   error
}

func (c *countingSyncer) SyncCatalog(context.Context) (*service.CatalogSyncResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &service.CatalogSyncResult{Fetched: 1, Created: 1}, nil
}

func TestCatalogSyncWorkerSyncsOnStartAndOnTick(t *testing.T) {
	syncer := &countingSyncer{}
	w := NewCatalogSyncWorker(syncer, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestCatalogSyncWorkerKeepsRunningAfterError(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("erp: status 503")}
	w := NewCatalogSyncWorker(syncer, time.Hour)

	w.run(context.Background())
	w.run(context.Background())
	assert.Equal(t, int32(2), syncer.calls.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.run(ctx)
	assert.Equal(t, int32(2), syncer.calls.Load())
}
