package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/cache"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
	"github.com/filtrotek/storefront/pkg/payment"
)

// maxMetadataValue is the processor's limit for a single metadata value.
const maxMetadataValue = 500

// CheckoutItemRequest is one cart line as the browser submits it.
type CheckoutItemRequest struct {
	ProductID int    `json:"productId" validate:"required,gt=0"`
	ItemCode  string `json:"itemCode"`
	Quantity  int    `json:"quantity" validate:"required,gt=0,lte=999"`
}

// CheckoutRequest is the body of POST /v1/checkout/payment-intent.
type CheckoutRequest struct {
	Name         string                `json:"name" validate:"required,min=2,max=120"`
	Email        string                `json:"email" validate:"required,email"`
	Phone        string                `json:"phone" validate:"required,min=10,max=20"`
	Street       string                `json:"street" validate:"required,min=3,max=255"`
	City         string                `json:"city" validate:"required,max=150"`
	State        string                `json:"state" validate:"required,max=150"`
	PostalCode   string                `json:"postalCode" validate:"required,numeric,len=5"`
	Country      string                `json:"country" validate:"omitempty,iso3166_1_alpha2"`
	Items        []CheckoutItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	DiscountCode string                `json:"discountCode" validate:"max=50"`
}

// CheckoutSummary is the priced cart returned with the client secret.
type CheckoutSummary struct {
	Items        []cache.CheckoutItem `json:"items"`
	Totals       Totals               `json:"totals"`
	Currency     string               `json:"currency"`
	DiscountCode string               `json:"discountCode,omitempty"`
}

// CheckoutResponse is returned to the browser to confirm the payment.
type CheckoutResponse struct {
	ClientSecret    string          `json:"clientSecret"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Summary         CheckoutSummary `json:"summary"`
}

// PaymentIntentCreator creates processor-side intents.
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, in *payment.IntentInput) (*payment.Intent, error)
	Currency() string
}

// SnapshotStore keeps checkout snapshots until the payment settles.
type SnapshotStore interface {
	Set(ctx context.Context, snap *cache.CheckoutSnapshot) error
	Get(ctx context.Context, paymentIntentID string) (*cache.CheckoutSnapshot, error)
	Delete(ctx context.Context, paymentIntentID string) error
}

type discountValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, productIDs []int) (*DiscountResult, error)
}

// CheckoutService prices a cart and prepares its payment.
type CheckoutService struct {
	products  productLookup
	stock     *StockResolver
	discounts discountValidator
	pricing   Pricing
	payments  PaymentIntentCreator
	snapshots SnapshotStore
}

// NewCheckoutService constructs a CheckoutService.
func NewCheckoutService(
	products productLookup,
	stock *StockResolver,
	discounts discountValidator,
	pricing Pricing,
	payments PaymentIntentCreator,
	snapshots SnapshotStore,
) *CheckoutService {
	return &CheckoutService{
		products:  products,
		stock:     stock,
		discounts: discounts,
		pricing:   pricing,
		payments:  payments,
		snapshots: snapshots,
	}
}

// CreatePaymentIntent validates the form and cart against server-side prices
// and stock, then creates the payment intent and stores the order snapshot.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, userID int, req *CheckoutRequest) (*CheckoutResponse, error) {
	// 1. Form
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Country == "" {
		req.Country = "MX"
	}

	// 2. Cart lines, priced from the ERP when it answers and from the
	// local mirror otherwise
	lines := mergeLines(req.Items)
	items := make([]cache.CheckoutItem, 0, len(lines))
	productIDs := make([]int, 0, len(lines))
	subtotal := decimal.Zero
	for _, line := range lines {
		row, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		resolved, level := s.stock.ResolveProduct(ctx, row)
		p := &resolved
		if p.Status != models.ProductActive {
			return nil, utils.ErrProductNotFound
		}

		if line.Quantity > level.Available {
			return nil, &utils.InsufficientStockError{
				ProductName: p.DisplayName(),
				Available:   level.Available,
				Requested:   line.Quantity,
			}
		}

		item := cache.CheckoutItem{
			ProductID: p.ID,
			ItemCode:  p.ItemCode,
			Name:      p.DisplayName(),
			UnitPrice: p.Price,
			Quantity:  line.Quantity,
		}
		if p.ERPID != nil {
			item.ERPID = *p.ERPID
		}
		items = append(items, item)
		productIDs = append(productIDs, p.ID)
		subtotal = subtotal.Add(item.Subtotal())
	}

	// 3. Discount
	discount := decimal.Zero
	var discountCode string
	var discountCodeID int
	if code := strings.TrimSpace(req.DiscountCode); code != "" {
		res, err := s.discounts.Validate(ctx, code, subtotal, productIDs)
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			return nil, &utils.DiscountRejectedError{Reason: res.Reason}
		}
		discount = res.DiscountAmount
		discountCode = res.Code
		discountCodeID = res.CodeID
	}

	totals := s.pricing.Compute(subtotal, discount)
	currency := strings.ToUpper(s.payments.Currency())

	snap := &cache.CheckoutSnapshot{
		CustomerName:  req.Name,
		CustomerEmail: req.Email,
		CustomerPhone: req.Phone,
		Shipping: models.ShippingAddress{
			Street:     req.Street,
			City:       req.City,
			State:      req.State,
			PostalCode: req.PostalCode,
			Country:    req.Country,
		},
		Items:          items,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.Discount,
		ShippingCost:   totals.Shipping,
		Tax:            totals.Tax,
		Total:          totals.Total,
		Currency:       currency,
		DiscountCode:   discountCode,
		DiscountCodeID: discountCodeID,
	}
	if userID > 0 {
		uid := userID
		snap.UserID = &uid
	}

	// 4. Payment intent
	intent, err := s.payments.CreatePaymentIntent(ctx, &payment.IntentInput{
		Amount:       totals.Total,
		ReceiptEmail: req.Email,
		Description:  fmt.Sprintf("Pedido Filtrotek (%d artículos)", totalQuantity(items)),
		Metadata:     checkoutMetadata(snap),
	})
	if err != nil {
		return nil, upstream("payment", err)
	}

	// 5. Snapshot for the webhook; metadata covers a lost snapshot.
	snap.PaymentIntentID = intent.ID
	if err := s.snapshots.Set(ctx, snap); err != nil {
		log.Error().Err(err).Str("payment_intent_id", intent.ID).Msg("Failed to store checkout snapshot")
	}

	log.Info().
		Str("payment_intent_id", intent.ID).
		Int("user_id", userID).
		Str("total", totals.Total.StringFixed(2)).
		Int("items", len(items)).
		Msg("Payment intent created")

	return &CheckoutResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Summary: CheckoutSummary{
			Items:        items,
			Totals:       totals,
			Currency:     currency,
			DiscountCode: discountCode,
		},
	}, nil
}

// mergeLines sums quantities of repeated products, keeping first-seen order.
func mergeLines(in []CheckoutItemRequest) []CheckoutItemRequest {
	index := make(map[int]int, len(in))
	out := make([]CheckoutItemRequest, 0, len(in))
	for _, it := range in {
		if i, ok := index[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

func totalQuantity(items []cache.CheckoutItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// checkoutMetadata summarises the snapshot in the intent's metadata so the
// order can be rebuilt if the snapshot is lost.
func checkoutMetadata(snap *cache.CheckoutSnapshot) map[string]string {
	md := map[string]string{
		"customer_name":        snap.CustomerName,
		"customer_email":       snap.CustomerEmail,
		"customer_phone":       snap.CustomerPhone,
		"shipping_street":      truncate(snap.Shipping.Street, maxMetadataValue),
		"shipping_city":        snap.Shipping.City,
		"shipping_state":       snap.Shipping.State,
		"shipping_postal_code": snap.Shipping.PostalCode,
		"shipping_country":     snap.Shipping.Country,
		"subtotal":             snap.Subtotal.StringFixed(2),
		"discount":             snap.DiscountAmount.StringFixed(2),
		"shipping":             snap.ShippingCost.StringFixed(2),
		"tax":                  snap.Tax.StringFixed(2),
		"total":                snap.Total.StringFixed(2),
		"item_count":           strconv.Itoa(len(snap.Items)),
	}
	if snap.UserID != nil {
		md["user_id"] = strconv.Itoa(*snap.UserID)
	}
	if snap.DiscountCode != "" {
		md["discount_code"] = snap.DiscountCode
		md["discount_code_id"] = strconv.Itoa(snap.DiscountCodeID)
	}
	if items := encodeItems(snap.Items); len(items) <= maxMetadataValue {
		md["items"] = items
	}
	return md
}

// encodeItems renders lines as "productId:qty" pairs, e.g. "7:2,9:1".
func encodeItems(items []cache.CheckoutItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%d:%d", it.ProductID, it.Quantity)
	}
	return strings.Join(parts, ",")
}

// decodeItems parses encodeItems output into product id to quantity.
func decodeItems(s string) (map[int]int, error) {
	out := map[int]int{}
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("no items")
	}
	for _, part := range strings.Split(s, ",") {
		id, qty, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("malformed item %q", part)
		}
		pid, err := strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("malformed product id %q", id)
		}
		q, err := strconv.Atoi(qty)
		if err != nil || q <= 0 {
			return nil, fmt.Errorf("malformed quantity %q", qty)
		}
		out[pid] += q
	}
	return out, nil
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
