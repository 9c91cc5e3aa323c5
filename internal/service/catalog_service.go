package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/filtrotek/storefront/internal/cache"
	"github.com/filtrotek/storefront/internal/metrics"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
	"github.com/filtrotek/storefront/pkg/erp"
)

const (
	CatalogSourceERP   = "erp"
	CatalogSourceLocal = "local"
	CatalogSourceCache = "cache"
)

// ERPCatalogReader is the read side of the ERP product API.
type ERPCatalogReader interface {
	ListProducts(ctx context.Context, page, pageSize int) (*erp.ProductPage, error)
	GetProduct(ctx context.Context, id string) (*erp.Product, error)
}

// CatalogStore is the local product mirror.
type CatalogStore interface {
	ListAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id int) (*models.Product, error)
	ListByERPIDs(ctx context.Context, erpIDs []string) ([]models.Product, error)
	UpsertByERPID(ctx context.Context, p *models.Product) (bool, error)
}

type rateSource interface {
	Current(ctx context.Context) *ExchangeRate
}

// CatalogQuery selects and pages catalog products.
type CatalogQuery struct {
	Category string
	Search   string
	Status   string
	Currency string
	Page     int
	Limit    int
}

func (q CatalogQuery) cacheKey() string {
	return strings.ToLower(q.Category) + "|" + strings.ToLower(q.Search) + "|" + q.Status
}

// CatalogProduct is a product with its price in the requested currency.
type CatalogProduct struct {
	models.Product
	DisplayPrice decimal.Decimal `json:"displayPrice"`
	Currency     string          `json:"currency"`
}

// CatalogPage is one page of catalog results.
type CatalogPage struct {
	Products []CatalogProduct
	Page     int
	Limit    int
	Total    int
	Source   string
}

// CatalogService merges live ERP data with the local mirror.
type CatalogService struct {
	erp      ERPCatalogReader
	store    CatalogStore
	rates    rateSource
	cache    *cache.TTLCache[[]models.Product]
	group    singleflight.Group
	pageSize int
	maxPages int
}

// NewCatalogService creates a CatalogService. A nil reader serves local rows only.
func NewCatalogService(reader ERPCatalogReader, store CatalogStore, rates rateSource, listCache *cache.TTLCache[[]models.Product], pageSize, maxPages int) *CatalogService {
	if pageSize <= 0 {
		pageSize = 100
	}
	if maxPages <= 0 {
		maxPages = 10
	}
	return &CatalogService{
		erp:      reader,
		store:    store,
		rates:    rates,
		cache:    listCache,
		pageSize: pageSize,
		maxPages: maxPages,
	}
}

// List returns the filtered catalog page and the source that answered.
func (s *CatalogService) List(ctx context.Context, q CatalogQuery) (*CatalogPage, error) {
	products, source, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	metrics.CatalogSource.WithLabelValues(source).Inc()

	page, limit, offset := paging(q.Page, q.Limit)
	total := len(products)
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	priced, err := s.price(ctx, products[offset:end], q.Currency)
	if err != nil {
		return nil, err
	}
	return &CatalogPage{Products: priced, Page: page, Limit: limit, Total: total, Source: source}, nil
}

type catalogLoad struct {
	products []models.Product
	source   string
}

func (s *CatalogService) load(ctx context.Context, q CatalogQuery) ([]models.Product, string, error) {
	if s.erp == nil {
		products, err := s.localFiltered(ctx, q)
		return products, CatalogSourceLocal, err
	}

	key := q.cacheKey()
	if products, ok := s.cache.Get(key); ok {
		return products, CatalogSourceCache, nil
	}

	// The load is shared by every waiter on key, so it must outlive the
	// request that happened to start it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		ctx := loadCtx
		if products, ok := s.cache.Get(key); ok {
			return catalogLoad{products, CatalogSourceCache}, nil
		}
		all, err := s.fetchERP(ctx)
		if err != nil {
			log.Warn().Err(err).Str("query", key).Msg("ERP catalog unavailable; serving local products")
			local, lerr := s.localFiltered(ctx, q)
			if lerr != nil {
				return nil, lerr
			}
			return catalogLoad{local, CatalogSourceLocal}, nil
		}
		filtered := filterProducts(all, q)
		s.cache.Set(key, filtered)
		return catalogLoad{filtered, CatalogSourceERP}, nil
	})
	if err != nil {
		return nil, "", err
	}
	res := v.(catalogLoad)
	return res.products, res.source, nil
}

func (s *CatalogService) localFiltered(ctx context.Context, q CatalogQuery) ([]models.Product, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterProducts(all, q), nil
}

// fetchERP reads every ERP page, up to maxPages, and merges local rows.
func (s *CatalogService) fetchERP(ctx context.Context) ([]models.Product, error) {
	items, err := listERPProducts(ctx, s.erp, s.pageSize, s.maxPages)
	if err != nil {
		return nil, err
	}
	return s.merge(ctx, items)
}

// listERPProducts reads ERP product pages until the last one or maxPages.
func listERPProducts(ctx context.Context, reader ERPCatalogReader, pageSize, maxPages int) ([]erp.Product, error) {
	var items []erp.Product
	for page := 1; page <= maxPages; page++ {
		res, err := reader.ListProducts(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}
		items = append(items, res.Data...)
		if page >= res.TotalPages || len(res.Data) < pageSize {
			break
		}
	}
	return items, nil
}

func (s *CatalogService) merge(ctx context.Context, items []erp.Product) ([]models.Product, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	local, err := s.store.ListByERPIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byERPID := make(map[string]models.Product, len(local))
	for _, p := range local {
		if p.ERPID != nil {
			byERPID[*p.ERPID] = p
		}
	}

	out := make([]models.Product, 0, len(items))
	for _, it := range items {
		local, ok := byERPID[it.ID]
		p := mergeERPProduct(local, &it)
		if !ok {
			// ERP-only items get a mirror row so they carry a local id that
			// checkout accepts.
			if _, err := s.store.UpsertByERPID(ctx, &p); err != nil {
				log.Warn().Err(err).Str("erp_id", it.ID).Str("item_code", it.Code).
					Msg("Failed to mirror ERP product; leaving it out of the catalog")
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// mergeERPProduct overlays ERP-owned fields (name, price, stock, status) on
// the local row. Translations and physical attributes stay local.
func mergeERPProduct(local models.Product, ep *erp.Product) models.Product {
	p := local
	erpID := ep.ID
	p.ERPID = &erpID
	p.ItemCode = ep.Code
	p.NameES = ep.Title
	p.Price = decimal.NewFromFloat(ep.Price).Round(2)
	if ep.PriceUSD > 0 {
		p.PriceUSD = decimal.NewNullDecimal(decimal.NewFromFloat(ep.PriceUSD).Round(2))
	}
	p.Stock = ep.Inventory
	p.Status = models.ProductInactive
	if ep.Active {
		p.Status = models.ProductActive
	}
	if p.DescriptionES == "" {
		p.DescriptionES = ep.Description
	}
	if p.CategoryES == "" {
		p.CategoryES = ep.Category
	}
	if p.Tags == "" {
		p.Tags = ep.Tags
	}
	return p
}

func filterProducts(in []models.Product, q CatalogQuery) []models.Product {
	category := strings.ToLower(strings.TrimSpace(q.Category))
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Product, 0, len(in))
	for _, p := range in {
		if q.Status != "" && string(p.Status) != q.Status {
			continue
		}
		if category != "" && strings.ToLower(p.CategoryES) != category && strings.ToLower(p.CategoryEN) != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.NameES), search) &&
			!strings.Contains(strings.ToLower(p.NameEN), search) &&
			!strings.Contains(strings.ToLower(p.ItemCode), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// GetProduct resolves ref as a local id or, failing that, an ERP id.
func (s *CatalogService) GetProduct(ctx context.Context, ref, currency string) (*CatalogProduct, string, error) {
	var p models.Product
	source := CatalogSourceLocal

	if id, err := strconv.Atoi(ref); err == nil {
		local, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, "", err
		}
		p = *local
		if s.erp != nil && p.ERPID != nil && *p.ERPID != "" {
			ep, err := s.erp.GetProduct(ctx, *p.ERPID)
			if err == nil {
				p, source = mergeERPProduct(p, ep), CatalogSourceERP
			} else {
				log.Warn().Err(err).Int("product_id", id).Msg("ERP product read failed; serving local row")
			}
		}
	} else {
		if s.erp == nil {
			return nil, "", utils.ErrProductNotFound
		}
		ep, err := s.erp.GetProduct(ctx, ref)
		if errors.Is(err, erp.ErrNotFound) {
			return nil, "", utils.ErrProductNotFound
		}
		if err != nil {
			return nil, "", upstream("erp", err)
		}
		merged, err := s.merge(ctx, []erp.Product{*ep})
		if err != nil {
			return nil, "", err
		}
		if len(merged) == 0 {
			return nil, "", errors.New("erp product could not be mirrored locally")
		}
		p, source = merged[0], CatalogSourceERP
	}
	metrics.CatalogSource.WithLabelValues(source).Inc()

	priced, err := s.price(ctx, []models.Product{p}, currency)
	if err != nil {
		return nil, "", err
	}
	return &priced[0], source, nil
}

// Invalidate drops cached listings after a product mutation.
func (s *CatalogService) Invalidate() {
	s.cache.Purge()
}

// price sets DisplayPrice in currency. USD uses price_usd when present and
// converts the MXN price otherwise.
func (s *CatalogService) price(ctx context.Context, products []models.Product, currency string) ([]CatalogProduct, error) {
	currency = strings.ToUpper(currency)
	if currency != "USD" {
		currency = "MXN"
	}

	var rate decimal.Decimal
	out := make([]CatalogProduct, len(products))
	for i, p := range products {
		cp := CatalogProduct{Product: p, DisplayPrice: p.Price, Currency: currency}
		if currency == "USD" {
			if p.PriceUSD.Valid {
				cp.DisplayPrice = p.PriceUSD.Decimal
			} else {
				if rate.IsZero() {
					rate = s.rates.Current(ctx).Decimal()
				}
				if !rate.IsPositive() {
					return nil, errors.New("exchange rate unavailable")
				}
				cp.DisplayPrice = p.Price.DivRound(rate, 2)
			}
		}
		out[i] = cp
	}
	return out, nil
}

// paging normalises page and limit the way the repositories do.
func paging(page, limit int) (int, int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}
