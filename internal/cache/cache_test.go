package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := NewRedisClientFromAddr(mr.Addr())
	t.Cleanup(func() { rc.Close() })
	return rc, mr
}

func TestCheckoutCacheRoundTrip(t *testing.T) {
	rc, mr := newTestRedis(t)
	c := NewCheckoutCache(rc)
	ctx := context.Background()

	snap := &CheckoutSnapshot{
		PaymentIntentID: "pi_1",
		CustomerName:    "Ana",
		CustomerEmail:   "ana@example.com",
		Shipping:        models.ShippingAddress{City: "Monterrey", Country: "MX"},
		Items: []CheckoutItem{
			{ProductID: 7, ItemCode: "CP-10", Name: "Cartucho", UnitPrice: decimal.RequireFromString("450.00"), Quantity: 2},
		},
		Total: decimal.RequireFromString("1044.00"),
	}
	require.NoError(t, c.Set(ctx, snap))
	assert.InDelta(t, CheckoutTTL.Seconds(), mr.TTL("checkout:pi:pi_1").Seconds(), 1)

	got, err := c.Get(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "Monterrey", got.Shipping.City)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Subtotal().Equal(decimal.RequireFromString("900")))
	assert.True(t, got.Total.Equal(snap.Total))

	require.NoError(t, c.Delete(ctx, "pi_1"))
	_, err = c.Get(ctx, "pi_1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRateCache(t *testing.T) {
	rc, mr := newTestRedis(t)
	c := NewRateCache(rc, time.Hour)
	ctx := context.Background()

	_, err := c.Get(ctx, "USD", "MXN")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "USD", "MXN", 17.25))
	rate, err := c.Get(ctx, "USD", "MXN")
	require.NoError(t, err)
	assert.Equal(t, 17.25, rate)

	mr.FastForward(2 * time.Hour)
	_, err = c.Get(ctx, "USD", "MXN")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestTTLCacheExpiresWithClock(t *testing.T) {
	clock := &utils.FixedClock{T: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewTTLCache[[]int](5*time.Minute, clock)

	c.Set("all", []int{1, 2})
	v, ok := c.Get("all")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, v)

	clock.T = clock.T.Add(4*time.Minute + 59*time.Second)
	_, ok = c.Get("all")
	assert.True(t, ok)

	clock.T = clock.T.Add(time.Second)
	_, ok = c.Get("all")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCachePurge(t *testing.T) {
	c := NewTTLCache[string](time.Minute, nil)
	c.Set("a", "x")
	c.Set("b", "y")
	c.Purge()
	_, ok := c.Get("a")
	assert.False(t, ok)
}
