package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/models"
)

// CheckoutTTL bounds how long a snapshot waits for its payment to settle.
const CheckoutTTL = 72 * time.Hour

// CheckoutItem is a cart line priced at checkout time.
type CheckoutItem struct {
	ProductID int             `json:"productId"`
	ERPID     string          `json:"erpId,omitempty"`
	ItemCode  string          `json:"itemCode"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is UnitPrice times Quantity.
func (i CheckoutItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CheckoutSnapshot is everything needed to create the order once the
// payment intent succeeds.
type CheckoutSnapshot struct {
	PaymentIntentID string                 `json:"paymentIntentId"`
	UserID          *int                   `json:"userId,omitempty"`
	CustomerName    string                 `json:"customerName"`
	CustomerEmail   string                 `json:"customerEmail"`
	CustomerPhone   string                 `json:"customerPhone"`
	Shipping        models.ShippingAddress `json:"shipping"`
	Items           []CheckoutItem         `json:"items"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	DiscountAmount  decimal.Decimal        `json:"discountAmount"`
	ShippingCost    decimal.Decimal        `json:"shippingCost"`
	Tax             decimal.Decimal        `json:"tax"`
	Total           decimal.Decimal        `json:"total"`
	Currency        string                 `json:"currency"`
	DiscountCode    string                 `json:"discountCode,omitempty"`
	DiscountCodeID  int                    `json:"discountCodeId,omitempty"`
	CachedAt        time.Time              `json:"cachedAt"`
}

// CheckoutCache stores snapshots keyed by payment intent id.
type CheckoutCache struct {
	redis *RedisClient
}

// NewCheckoutCache creates a new CheckoutCache.
func NewCheckoutCache(redis *RedisClient) *CheckoutCache {
	return &CheckoutCache{redis: redis}
}

func (c *CheckoutCache) key(paymentIntentID string) string {
	return fmt.Sprintf("checkout:pi:%s", paymentIntentID)
}

// Set stores the snapshot for CheckoutTTL.
func (c *CheckoutCache) Set(ctx context.Context, snap *CheckoutSnapshot) error {
	snap.CachedAt = time.Now()

	jsonData, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout snapshot: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(snap.PaymentIntentID), string(jsonData), CheckoutTTL); err != nil {
		return fmt.Errorf("failed to store checkout snapshot: %w", err)
	}
	return nil
}

// Get loads the snapshot. A missing snapshot returns ErrCacheMiss.
func (c *CheckoutCache) Get(ctx context.Context, paymentIntentID string) (*CheckoutSnapshot, error) {
	jsonData, err := c.redis.Get(ctx, c.key(paymentIntentID))
	if err != nil {
		return nil, err
	}

	var snap CheckoutSnapshot
	if err := json.Unmarshal([]byte(jsonData), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout snapshot: %w", err)
	}
	return &snap, nil
}

// Delete drops the snapshot after the order is stored.
func (c *CheckoutCache) Delete(ctx context.Context, paymentIntentID string) error {
	return c.redis.Delete(ctx, c.key(paymentIntentID))
}
