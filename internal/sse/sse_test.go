package sse

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

func TestHubPublishAndUnsubscribe(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe("a", 1)
	b := hub.Subscribe("b", 2)
	assert.Equal(t, 2, hub.Len())

	hub.Publish("ping", map[string]int{"n": 1})
	for _, s := range []*Subscriber{a, b} {
		msg := <-s.Messages
		assert.Equal(t, "ping", msg.Event)
		assert.JSONEq(t, `{"n":1}`, string(msg.Data))
	}

	hub.Unsubscribe("a")
	hub.Unsubscribe("a")
	_, open := <-a.Messages
	assert.False(t, open)
	assert.Equal(t, 1, hub.Len())
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	s := hub.Subscribe("slow", 1)

	for i := 0; i < clientBuffer+5; i++ {
		hub.Publish("tick", i)
	}
	assert.Len(t, s.Messages, clientBuffer)
}

func TestOrderFeed(t *testing.T) {
	hub := NewHub()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	feed := NewOrderFeed(hub, &utils.FixedClock{T: now})

	// No subscribers: nothing to do.
	feed.OrderPlaced(context.Background(), &models.Order{ID: 1})

	s := hub.Subscribe("admin", 1)
	o := &models.Order{
		ID: 7, OrderNumber: "FLT-20260504-000007", CustomerName: "Ana",
		Status: models.OrderPending, Total: decimal.RequireFromString("1194"), Currency: "MXN",
		Items: []models.OrderItem{{Quantity: 2}, {Quantity: 1}},
	}
	feed.OrderPlaced(context.Background(), o)
	o.Status = models.OrderShipped
	feed.OrderStatusChanged(context.Background(), o)

	created := <-s.Messages
	assert.Equal(t, EventOrderCreated, created.Event)
	var ev OrderEvent
	require.NoError(t, json.Unmarshal(created.Data, &ev))
	assert.Equal(t, "FLT-20260504-000007", ev.OrderNumber)
	assert.Equal(t, 3, ev.Items)
	assert.Equal(t, "pending", ev.Status)
	assert.True(t, ev.At.Equal(now))

	changed := <-s.Messages
	assert.Equal(t, EventOrderStatusChanged, changed.Event)
	assert.Len(t, s.Messages, 0)
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	s := hub.Subscribe("a", 1)

	hub.Close()

	_, open := <-s.Messages
	assert.False(t, open)
	assert.Equal(t, 0, hub.Len())
	hub.Unsubscribe("a")
}
