package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/service"
)

// CatalogSyncer mirrors the ERP catalog into the local products table.
type CatalogSyncer interface {
	SyncCatalog(ctx context.Context) (*service.CatalogSyncResult, error)
}

// CatalogSyncWorker periodically mirrors ERP products locally.
type CatalogSyncWorker struct {
	syncer   CatalogSyncer
	interval time.Duration
}

// NewCatalogSyncWorker constructs a CatalogSyncWorker.
func NewCatalogSyncWorker(syncer CatalogSyncer, interval time.Duration) *CatalogSyncWorker {
	return &CatalogSyncWorker{syncer: syncer, interval: interval}
}

// Start syncs once immediately, then on every tick until ctx is canceled.
func (w *CatalogSyncWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting catalog sync worker")

	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Catalog sync worker stopped")
			return
		}
	}
}

func (w *CatalogSyncWorker) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	res, err := w.syncer.SyncCatalog(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sync ERP catalog")
		return
	}
	log.Info().
		Int("fetched", res.Fetched).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Dur("duration", time.Since(start)).
		Msg("ERP catalog sync completed")
}
