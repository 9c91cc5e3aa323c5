package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/metrics"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
	"github.com/filtrotek/storefront/pkg/erp"
)

const (
	StockSourceERP   = "erp"
	StockSourceLocal = "local"
)

// ERPStockLookup is the part of the ERP client used to read inventory.
type ERPStockLookup interface {
	GetProduct(ctx context.Context, id string) (*erp.Product, error)
	GetProductByCode(ctx context.Context, code string) (*erp.Product, error)
}

// StockLevel is the quantity available for a product and where it came from.
type StockLevel struct {
	Available int    `json:"available"`
	Source    string `json:"source"`
}

// StockResolver reads live inventory from the ERP, falling back to the
// local stock column when the ERP cannot answer.
type StockResolver struct {
	erp ERPStockLookup
}

// NewStockResolver creates a resolver. A nil lookup always uses local stock.
func NewStockResolver(lookup ERPStockLookup) *StockResolver {
	return &StockResolver{erp: lookup}
}

// Resolve looks the product up by item code, then by ERP id.
func (r *StockResolver) Resolve(ctx context.Context, p *models.Product) StockLevel {
	_, level := r.ResolveProduct(ctx, p)
	return level
}

// ResolveProduct returns p with the ERP-owned fields (price, stock, status)
// overlaid when the ERP answers, so callers price and gate a line the same way
// the catalog displays it. Otherwise it returns the local row unchanged.
func (r *StockResolver) ResolveProduct(ctx context.Context, p *models.Product) (models.Product, StockLevel) {
	if r.erp == nil {
		return *p, r.local(p, "erp_disabled", nil)
	}

	if p.ItemCode != "" {
		ep, err := r.erp.GetProductByCode(ctx, p.ItemCode)
		if err == nil {
			return r.fromERP(p, ep)
		}
		if !errors.Is(err, erp.ErrNotFound) {
			return *p, r.local(p, "erp_error", err)
		}
	}

	if p.ERPID != nil && *p.ERPID != "" {
		ep, err := r.erp.GetProduct(ctx, *p.ERPID)
		if err == nil {
			return r.fromERP(p, ep)
		}
		if errors.Is(err, erp.ErrNotFound) {
			return *p, r.local(p, "erp_not_found", err)
		}
		return *p, r.local(p, "erp_error", err)
	}

	return *p, r.local(p, "no_erp_reference", nil)
}

func (r *StockResolver) fromERP(p *models.Product, ep *erp.Product) (models.Product, StockLevel) {
	merged := mergeERPProduct(*p, ep)
	return merged, StockLevel{Available: merged.Stock, Source: StockSourceERP}
}

func (r *StockResolver) local(p *models.Product, reason string, err error) StockLevel {
	metrics.StockFallbacks.WithLabelValues(reason).Inc()
	evt := log.Warn()
	if err == nil {
		evt = log.Debug()
	}
	evt.Err(err).
		Int("product_id", p.ID).
		Str("item_code", p.ItemCode).
		Str("reason", reason).
		Int("local_stock", p.Stock).
		Str("local_price", p.Price.StringFixed(2)).
		Msg("Product resolved from local database")
	return StockLevel{Available: p.Stock, Source: StockSourceLocal}
}

// StockCheckItem is one line of a stock check request.
type StockCheckItem struct {
	ProductID int `json:"productId" binding:"required,gt=0"`
	Quantity  int `json:"quantity" binding:"required,gt=0"`
}

// StockCheckRequest is the body of POST /v1/stock/check.
type StockCheckRequest struct {
	Items []StockCheckItem `json:"items" binding:"required,min=1,max=100,dive"`
}

// StockCheckResult reports availability for one line.
type StockCheckResult struct {
	ProductID   int    `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Sufficient  bool   `json:"sufficient"`
	Source      string `json:"source"`
	Message     string `json:"message,omitempty"`
}

type productLookup interface {
	GetByID(ctx context.Context, id int) (*models.Product, error)
}

// StockService answers cart availability checks.
type StockService struct {
	products productLookup
	resolver *StockResolver
}

func NewStockService(products productLookup, resolver *StockResolver) *StockService {
	return &StockService{products: products, resolver: resolver}
}

// Check resolves each requested line. Unknown products are reported as
// unavailable rather than failing the whole request.
func (s *StockService) Check(ctx context.Context, req *StockCheckRequest) ([]StockCheckResult, error) {
	results := make([]StockCheckResult, 0, len(req.Items))
	for _, item := range req.Items {
		res := StockCheckResult{ProductID: item.ProductID, Requested: item.Quantity}
		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if !isNotFound(err) {
				return nil, err
			}
			res.Message = "Producto no encontrado"
			results = append(results, res)
			continue
		}
		level := s.resolver.Resolve(ctx, p)
		res.ProductName = p.DisplayName()
		res.Available = level.Available
		res.Source = level.Source
		res.Sufficient = item.Quantity <= level.Available
		if !res.Sufficient {
			res.Message = (&utils.InsufficientStockError{
				ProductName: p.DisplayName(),
				Available:   level.Available,
				Requested:   item.Quantity,
			}).Error()
		}
		results = append(results, res)
	}
	return results, nil
}
