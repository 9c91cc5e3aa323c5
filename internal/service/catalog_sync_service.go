package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/models"
)

// ProductMirror stores ERP products in the local products table.
type ProductMirror interface {
	UpsertByERPID(ctx context.Context, p *models.Product) (bool, error)
}

// CatalogSyncResult summarises one mirror pass.
type CatalogSyncResult struct {
	Fetched int
	Created int
	Updated int
	Failed  int
}

// CatalogSyncService copies the ERP catalog into the local mirror so that
// every ERP item has a purchasable local id and the DB fallback stays fresh.
type CatalogSyncService struct {
	erp      ERPCatalogReader
	mirror   ProductMirror
	catalog  catalogInvalidator
	pageSize int
	maxPages int
}

// NewCatalogSyncService constructs a CatalogSyncService.
func NewCatalogSyncService(reader ERPCatalogReader, mirror ProductMirror, catalog catalogInvalidator, pageSize, maxPages int) *CatalogSyncService {
	if pageSize <= 0 {
		pageSize = 100
	}
	if maxPages <= 0 {
		maxPages = 10
	}
	return &CatalogSyncService{erp: reader, mirror: mirror, catalog: catalog, pageSize: pageSize, maxPages: maxPages}
}

// SyncCatalog upserts every ERP product by erp_id. A failed row is logged
// and skipped; only a failed ERP read aborts the pass.
func (s *CatalogSyncService) SyncCatalog(ctx context.Context) (*CatalogSyncResult, error) {
	items, err := listERPProducts(ctx, s.erp, s.pageSize, s.maxPages)
	if err != nil {
		return nil, upstream("erp", err)
	}

	res := &CatalogSyncResult{Fetched: len(items)}
	for i := range items {
		it := &items[i]
		p := mergeERPProduct(models.Product{}, it)
		created, err := s.mirror.UpsertByERPID(ctx, &p)
		if err != nil {
			res.Failed++
			log.Warn().Err(err).Str("erp_id", it.ID).Str("item_code", it.Code).Msg("Failed to mirror ERP product")
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	if res.Created+res.Updated > 0 && s.catalog != nil {
		s.catalog.Invalidate()
	}
	return res, nil
}
