package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filtrotek/storefront/internal/config"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
	"github.com/filtrotek/storefront/pkg/erp"
	"github.com/filtrotek/storefront/pkg/payment"
)

func testPricing() Pricing {
	return NewPricing(config.PricingConfig{TaxRate: 0.16, ShippingFlatRate: 150, FreeShippingThreshold: 2000})
}

type checkoutFixture struct {
	svc       *CheckoutService
	products  *fakeProducts
	payments  *fakePayments
	snapshots *fakeSnapshots
}

func newCheckoutFixture(t *testing.T, lookup ERPStockLookup, ps ...models.Product) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		products: newFakeProducts(ps...),
		payments: &fakePayments{
			currency: "mxn",
			intent:   &payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"},
		},
		snapshots: newFakeSnapshots(),
	}
	discounts := NewDiscountService(newFakeDiscounts(models.DiscountCode{
		ID:       3,
		Code:     "BIENVENIDA10",
		Type:     models.DiscountPercentage,
		Value:    dec("10"),
		IsActive: true,
	}), nil)
	f.svc = NewCheckoutService(f.products, NewStockResolver(lookup), discounts, testPricing(), f.payments, f.snapshots)
	return f
}

func validCheckout(items ...CheckoutItemRequest) *CheckoutRequest {
	return &CheckoutRequest{
		Name:       "Ana López",
		Email:      "ana@example.com",
		Phone:      "5512345678",
		Street:     "Av. Reforma 100",
		City:       "CDMX",
		State:      "CDMX",
		PostalCode: "06600",
		Items:      items,
	}
}

func filterProduct(id int, code, price string, stock int) models.Product {
	return models.Product{
		ID:       id,
		ItemCode: code,
		NameES:   "Filtro " + code,
		Price:    dec(price),
		Stock:    stock,
		Status:   models.ProductActive,
	}
}

func TestCheckoutAppliesDiscountShippingAndTax(t *testing.T) {
	f := newCheckoutFixture(t, nil, filterProduct(1, "F-100", "500.00", 10))
	req := validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 2})
	req.DiscountCode = "bienvenida10"

	resp, err := f.svc.CreatePaymentIntent(context.Background(), 42, req)
	require.NoError(t, err)

	totals := resp.Summary.Totals
	assert.Equal(t, "1000.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "150.00", totals.Shipping.StringFixed(2))
	assert.Equal(t, "144.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "1194.00", totals.Total.StringFixed(2))
	assert.Equal(t, "MXN", resp.Summary.Currency)
	assert.Equal(t, "BIENVENIDA10", resp.Summary.DiscountCode)
	assert.Equal(t, "pi_123_secret", resp.ClientSecret)

	require.NotNil(t, f.payments.lastInput)
	assert.True(t, f.payments.lastInput.Amount.Equal(dec("1194")))
	md := f.payments.lastInput.Metadata
	assert.Equal(t, "1:2", md["items"])
	assert.Equal(t, "42", md["user_id"])
	assert.Equal(t, "3", md["discount_code_id"])
	assert.Equal(t, "1194.00", md["total"])

	snap, err := f.snapshots.Get(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.DiscountCodeID)
	assert.Equal(t, "MX", snap.Shipping.Country)
	require.NotNil(t, snap.UserID)
	assert.Equal(t, 42, *snap.UserID)
}

func TestCheckoutFreeShippingAtThreshold(t *testing.T) {
	f := newCheckoutFixture(t, nil, filterProduct(1, "F-100", "1000.00", 10))

	resp, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)

	assert.True(t, resp.Summary.Totals.Shipping.IsZero())
	assert.Equal(t, "2320.00", resp.Summary.Totals.Total.StringFixed(2))
	_, hasUser := f.payments.lastInput.Metadata["user_id"]
	assert.False(t, hasUser)
}

func TestCheckoutMergesRepeatedLines(t *testing.T) {
	f := newCheckoutFixture(t, nil, filterProduct(1, "F-100", "100.00", 3))

	resp, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(
		CheckoutItemRequest{ProductID: 1, Quantity: 1},
		CheckoutItemRequest{ProductID: 1, Quantity: 2},
	))
	require.NoError(t, err)
	require.Len(t, resp.Summary.Items, 1)
	assert.Equal(t, 3, resp.Summary.Items[0].Quantity)
}

func TestCheckoutRejectsInsufficientStock(t *testing.T) {
	f := newCheckoutFixture(t, nil, filterProduct(1, "F-100", "500.00", 1))

	_, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 2}))

	var stockErr *utils.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Contains(t, err.Error(), "Disponible: 1, Solicitado: 2")
	assert.Nil(t, f.payments.lastInput)
}

func TestCheckoutUsesERPStockOverLocal(t *testing.T) {
	lookup := newFakeERP(erp.Product{ID: "e1", Code: "F-100", Price: 500, Inventory: 5, Active: true})
	f := newCheckoutFixture(t, lookup, filterProduct(1, "F-100", "500.00", 0))

	_, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 4}))
	require.NoError(t, err)
}

func TestCheckoutChargesTheCatalogPrice(t *testing.T) {
	reader := newFakeERP(erp.Product{ID: "e1", Code: "F-100", Title: "Filtro sedimentos", Price: 250, Inventory: 5, Active: true})
	row := filterProduct(1, "F-100", "100.00", 5)
	row.ERPID = strPtr("e1")
	row.Status = models.ProductDraft
	f := newCheckoutFixture(t, reader, row)

	catalog := newCatalog(reader, f.products)
	listed, _, err := catalog.GetProduct(context.Background(), "1", "MXN")
	require.NoError(t, err)

	resp, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)
	require.Len(t, resp.Summary.Items, 1)
	assert.Equal(t, listed.DisplayPrice.StringFixed(2), resp.Summary.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "250.00", resp.Summary.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "e1", resp.Summary.Items[0].ERPID)
	assert.Equal(t, "Filtro sedimentos", resp.Summary.Items[0].Name)
}

func TestCheckoutRejectsProductTheERPDeactivated(t *testing.T) {
	reader := newFakeERP(erp.Product{ID: "e1", Code: "F-100", Price: 250, Inventory: 5, Active: false})
	f := newCheckoutFixture(t, reader, filterProduct(1, "F-100", "100.00", 5))

	_, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 1}))
	assert.ErrorIs(t, err, utils.ErrProductNotFound)
}

func TestCheckoutUsesLocalPriceWhenERPFails(t *testing.T) {
	lookup := newFakeERP()
	lookup.err = errors.New("connection refused")
	f := newCheckoutFixture(t, lookup, filterProduct(1, "F-100", "100.00", 5))

	resp, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, "200.00", resp.Summary.Totals.Subtotal.StringFixed(2))
}

func TestCheckoutFallsBackToLocalStockWhenERPFails(t *testing.T) {
	lookup := newFakeERP()
	lookup.err = errors.New("connection refused")
	f := newCheckoutFixture(t, lookup, filterProduct(1, "F-100", "500.00", 1))

	_, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 2}))

	var stockErr *utils.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
}

func TestCheckoutValidatesForm(t *testing.T) {
	f := newCheckoutFixture(t, nil, filterProduct(1, "F-100", "500.00", 10))
	req := validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 0})
	req.Email = "not-an-email"
	req.PostalCode = "123"

	_, err := f.svc.CreatePaymentIntent(context.Background(), 0, req)

	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "postalCode")
	assert.Contains(t, verr.Fields, "items[0].quantity")
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, nil)

	_, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout())

	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "items")
}

func TestCheckoutRejectsInactiveProduct(t *testing.T) {
	p := filterProduct(1, "F-100", "500.00", 10)
	p.Status = models.ProductDraft
	f := newCheckoutFixture(t, nil, p)

	_, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 1}))
	assert.ErrorIs(t, err, utils.ErrProductNotFound)
}

func TestCheckoutRejectsUnknownDiscount(t *testing.T) {
	f := newCheckoutFixture(t, nil, filterProduct(1, "F-100", "500.00", 10))
	req := validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 1})
	req.DiscountCode = "NOEXISTE"

	_, err := f.svc.CreatePaymentIntent(context.Background(), 0, req)

	var rejected *utils.DiscountRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, ReasonInvalidCode, rejected.Reason)
}

func TestCheckoutWrapsPaymentFailure(t *testing.T) {
	f := newCheckoutFixture(t, nil, filterProduct(1, "F-100", "500.00", 10))
	f.payments.err = errors.New("card_declined")

	_, err := f.svc.CreatePaymentIntent(context.Background(), 0, validCheckout(CheckoutItemRequest{ProductID: 1, Quantity: 1}))

	var upErr *utils.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "payment", upErr.Service)
	assert.ErrorIs(t, err, utils.ErrUpstream)
}

func TestPricingCompute(t *testing.T) {
	p := testPricing()

	totals := p.Compute(dec("1999.99"), dec("0"))
	assert.Equal(t, "150.00", totals.Shipping.StringFixed(2))

	totals = p.Compute(dec("100"), dec("250"))
	assert.Equal(t, "100.00", totals.Discount.StringFixed(2))
	assert.True(t, totals.Tax.IsZero())
	assert.Equal(t, "150.00", totals.Total.StringFixed(2))
}

func TestItemsMetadataRoundTrip(t *testing.T) {
	got, err := decodeItems("7:2,9:1,7:1")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{7: 3, 9: 1}, got)

	_, err = decodeItems("7-2")
	assert.Error(t, err)
	_, err = decodeItems("")
	assert.Error(t, err)
}
