package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/cache"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/repository"
	"github.com/filtrotek/storefront/internal/utils"
	"github.com/filtrotek/storefront/pkg/erp"
	"github.com/filtrotek/storefront/pkg/payment"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

type fakeProducts struct {
	mu        sync.Mutex
	byID      map[int]*models.Product
	nextID    int
	deleted   []int
	err       error
	upsertErr error
}

func newFakeProducts(ps ...models.Product) *fakeProducts {
	f := &fakeProducts{byID: map[int]*models.Product{}, nextID: 100}
	for i := range ps {
		p := ps[i]
		f.byID[p.ID] = &p
	}
	return f
}

func (f *fakeProducts) GetByID(_ context.Context, id int) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, utils.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []int) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProducts) ListAll(_ context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Product, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProducts) ListByERPIDs(_ context.Context, erpIDs []string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, id := range erpIDs {
		want[id] = true
	}
	var out []models.Product
	for _, p := range f.byID {
		if p.ERPID != nil && want[*p.ERPID] {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProducts) ListPaged(ctx context.Context, _ repository.ProductFilter) ([]models.Product, int, error) {
	all, err := f.ListAll(ctx)
	return all, len(all), err
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProducts) Update(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[p.ID]; !ok {
		return utils.ErrProductNotFound
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeProducts) UpsertByItemCode(_ context.Context, p *models.Product) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.byID {
		if existing.ItemCode == p.ItemCode {
			p.ID = id
			cp := *p
			f.byID[id] = &cp
			return false, nil
		}
	}
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.byID[p.ID] = &cp
	return true, nil
}

func (f *fakeProducts) UpsertByERPID(_ context.Context, p *models.Product) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	for id, existing := range f.byID {
		if existing.ERPID != nil && *existing.ERPID == *p.ERPID {
			existing.ItemCode = p.ItemCode
			existing.NameES = p.NameES
			existing.Price = p.Price
			existing.Stock = p.Stock
			existing.Status = p.Status
			p.ID = id
			return false, nil
		}
	}
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.byID[p.ID] = &cp
	return true, nil
}

// fakeERP records every call it receives.
type fakeERP struct {
	mu          sync.Mutex
	products    map[string]*erp.Product
	err         error
	adjustErr   error
	listCalls   atomic.Int32
	listDelay   time.Duration
	adjustments []erp.InventoryAdjustment
	created     []erp.ProductInput
	updated     map[string]erp.ProductInput
	deletedIDs  []string
}

func newFakeERP(ps ...erp.Product) *fakeERP {
	f := &fakeERP{products: map[string]*erp.Product{}, updated: map[string]erp.ProductInput{}}
	for i := range ps {
		p := ps[i]
		f.products[p.ID] = &p
	}
	return f
}

func (f *fakeERP) GetProduct(_ context.Context, id string) (*erp.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, erp.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeERP) GetProductByCode(_ context.Context, code string) (*erp.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.products {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, erp.ErrNotFound
}

func (f *fakeERP) ListProducts(ctx context.Context, page, pageSize int) (*erp.ProductPage, error) {
	f.listCalls.Add(1)
	if f.listDelay > 0 {
		time.Sleep(f.listDelay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]string, 0, len(f.products))
	for id := range f.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	totalPages := (len(ids) + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(ids) {
		start = len(ids)
	}
	if end > len(ids) {
		end = len(ids)
	}
	out := &erp.ProductPage{Page: page, PageSize: pageSize, TotalPages: totalPages, TotalItems: len(ids)}
	for _, id := range ids[start:end] {
		out.Data = append(out.Data, *f.products[id])
	}
	return out, nil
}

func (f *fakeERP) CreateProduct(_ context.Context, in *erp.ProductInput) (*erp.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, *in)
	p := &erp.Product{ID: "erp-" + in.Code, Code: in.Code, Title: in.Title, Price: in.Price, Active: in.Active}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeERP) UpdateProduct(_ context.Context, id string, in *erp.ProductInput) (*erp.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.updated[id] = *in
	return &erp.Product{ID: id, Code: in.Code, Title: in.Title, Price: in.Price, Active: in.Active}, nil
}

func (f *fakeERP) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deletedIDs = append(f.deletedIDs, id)
	if _, ok := f.products[id]; !ok {
		return erp.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeERP) AdjustInventory(_ context.Context, adj *erp.InventoryAdjustment) (*erp.InventoryAdjustmentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjustments = append(f.adjustments, *adj)
	if f.adjustErr != nil {
		return nil, f.adjustErr
	}
	return &erp.InventoryAdjustmentResult{ProductID: adj.ProductID}, nil
}

type fakePayments struct {
	currency  string
	intent    *payment.Intent
	err       error
	lastInput *payment.IntentInput
	event     *payment.Event
	parseErr  error
	refundID  string
	refundErr error
	refunded  []string
}

func (f *fakePayments) Currency() string { return f.currency }

func (f *fakePayments) CreatePaymentIntent(_ context.Context, in *payment.IntentInput) (*payment.Intent, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func (f *fakePayments) ParseEvent(_ []byte, _ string) (*payment.Event, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.event, nil
}

func (f *fakePayments) Refund(_ context.Context, piID string) (string, error) {
	f.refunded = append(f.refunded, piID)
	if f.refundErr != nil {
		return "", f.refundErr
	}
	return f.refundID, nil
}

type fakeSnapshots struct {
	data    map[string]*cache.CheckoutSnapshot
	deleted []string
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{data: map[string]*cache.CheckoutSnapshot{}}
}

func (f *fakeSnapshots) Set(_ context.Context, snap *cache.CheckoutSnapshot) error {
	f.data[snap.PaymentIntentID] = snap
	return nil
}

func (f *fakeSnapshots) Get(_ context.Context, id string) (*cache.CheckoutSnapshot, error) {
	snap, ok := f.data[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return snap, nil
}

func (f *fakeSnapshots) Delete(_ context.Context, id string) error {
	delete(f.data, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeDiscounts struct {
	codes  map[string]*models.DiscountCode
	usages map[int][]models.DiscountCodeUsage
}

func newFakeDiscounts(ds ...models.DiscountCode) *fakeDiscounts {
	f := &fakeDiscounts{codes: map[string]*models.DiscountCode{}, usages: map[int][]models.DiscountCodeUsage{}}
	for i := range ds {
		d := ds[i]
		f.codes[d.Code] = &d
	}
	return f
}

func (f *fakeDiscounts) GetByCode(_ context.Context, code string) (*models.DiscountCode, error) {
	for k, d := range f.codes {
		if equalFoldASCII(k, code) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, utils.ErrDiscountNotFound
}

func (f *fakeDiscounts) GetByID(_ context.Context, id int) (*models.DiscountCode, error) {
	for _, d := range f.codes {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, utils.ErrDiscountNotFound
}

func (f *fakeDiscounts) List(_ context.Context, _, _ int) ([]models.DiscountCode, int, error) {
	var out []models.DiscountCode
	for _, d := range f.codes {
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (f *fakeDiscounts) Create(_ context.Context, d *models.DiscountCode) error {
	if _, ok := f.codes[d.Code]; ok {
		return utils.ErrDuplicateCode
	}
	d.ID = len(f.codes) + 1
	cp := *d
	f.codes[d.Code] = &cp
	return nil
}

func (f *fakeDiscounts) Update(_ context.Context, d *models.DiscountCode) error {
	for k, existing := range f.codes {
		if existing.ID == d.ID {
			delete(f.codes, k)
		}
	}
	cp := *d
	f.codes[d.Code] = &cp
	return nil
}

func (f *fakeDiscounts) Delete(_ context.Context, id int) error {
	for k, d := range f.codes {
		if d.ID == id {
			delete(f.codes, k)
			return nil
		}
	}
	return utils.ErrDiscountNotFound
}

func (f *fakeDiscounts) ListUsages(_ context.Context, codeID int) ([]models.DiscountCodeUsage, error) {
	return f.usages[codeID], nil
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		x, y := a[i], b[i]
		if 'a' <= x && x <= 'z' {
			x -= 'a' - 'A'
		}
		if 'a' <= y && y <= 'z' {
			y -= 'a' - 'A'
		}
		if x != y {
			return false
		}
	}
	return true
}

type fakeTasks struct {
	created []models.ERPSyncTask
	done    map[int]int
	retried map[int]time.Time
	failed  map[int]string
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{done: map[int]int{}, retried: map[int]time.Time{}, failed: map[int]string{}}
}

func (f *fakeTasks) Create(_ context.Context, t *models.ERPSyncTask) error {
	t.ID = len(f.created) + 1
	f.created = append(f.created, *t)
	return nil
}

func (f *fakeTasks) MarkDone(_ context.Context, id, attempts int) error {
	f.done[id] = attempts
	return nil
}

func (f *fakeTasks) MarkRetry(_ context.Context, id, _ int, _ string, next time.Time) error {
	f.retried[id] = next
	return nil
}

func (f *fakeTasks) MarkFailed(_ context.Context, id, _ int, lastErr string) error {
	f.failed[id] = lastErr
	return nil
}

type fakeInventory struct {
	changes []InventoryChange
}

func (f *fakeInventory) Push(_ context.Context, changes []InventoryChange) {
	f.changes = append(f.changes, changes...)
}

type fakeNotifier struct {
	orders []*models.Order
}

func (f *fakeNotifier) OrderPlaced(_ context.Context, o *models.Order) {
	f.orders = append(f.orders, o)
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate() { f.calls++ }

// fakeOrders covers both the webhook finalizer and the admin order store.
type fakeOrders struct {
	byID       map[int]*models.Order
	seenEvents map[string]bool
	seenPIs    map[string]bool
	finalized  []*repository.FinalizeInput
	cancelled  []int
	finalErr   error
	stats      *repository.OrderStats
	statsAt    time.Time
}

func newFakeOrders(orders ...models.Order) *fakeOrders {
	f := &fakeOrders{byID: map[int]*models.Order{}, seenEvents: map[string]bool{}, seenPIs: map[string]bool{}}
	for i := range orders {
		o := orders[i]
		f.byID[o.ID] = &o
	}
	return f
}

func (f *fakeOrders) FinalizeOrder(_ context.Context, in *repository.FinalizeInput) (*repository.FinalizeResult, error) {
	if f.finalErr != nil {
		return nil, f.finalErr
	}
	f.finalized = append(f.finalized, in)
	pi := ""
	if in.Order.PaymentIntentID != nil {
		pi = *in.Order.PaymentIntentID
	}
	if f.seenEvents[in.EventID] || f.seenPIs[pi] {
		return &repository.FinalizeResult{Duplicate: true}, nil
	}
	f.seenEvents[in.EventID] = true
	f.seenPIs[pi] = true

	o := in.Order
	o.ID = len(f.byID) + 1
	o.OrderNumber = "FLT-" + in.Now.Format("20060102") + "-000001"
	f.byID[o.ID] = o
	return &repository.FinalizeResult{Created: true, Order: o}, nil
}

func (f *fakeOrders) GetByID(_ context.Context, id int) (*models.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, utils.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) GetByNumber(_ context.Context, number string) (*models.Order, error) {
	for _, o := range f.byID {
		if o.OrderNumber == number {
			cp := *o
			return &cp, nil
		}
	}
	return nil, utils.ErrOrderNotFound
}

func (f *fakeOrders) ListByUser(_ context.Context, userID, _, _ int) ([]models.Order, int, error) {
	var out []models.Order
	for _, o := range f.byID {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (f *fakeOrders) List(_ context.Context, _ repository.OrderFilter) ([]models.Order, int, error) {
	var out []models.Order
	for _, o := range f.byID {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id int, from, to models.OrderStatus) error {
	o, ok := f.byID[id]
	if !ok {
		return utils.ErrOrderNotFound
	}
	if o.Status != from {
		return utils.ErrInvalidTransition
	}
	o.Status = to
	return nil
}

func (f *fakeOrders) CancelAndRestock(_ context.Context, o *models.Order, _ string) error {
	stored, ok := f.byID[o.ID]
	if !ok {
		return utils.ErrOrderNotFound
	}
	stored.Status = models.OrderCancelled
	f.cancelled = append(f.cancelled, o.ID)
	return nil
}

func (f *fakeOrders) Stats(_ context.Context, now time.Time) (*repository.OrderStats, error) {
	f.statsAt = now
	if f.stats == nil {
		return &repository.OrderStats{}, nil
	}
	return f.stats, nil
}
