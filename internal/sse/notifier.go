package sse

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload pushed to the admin dashboard.
type OrderEvent struct {
	OrderID      int             `json:"orderId"`
	OrderNumber  string          `json:"orderNumber"`
	CustomerName string          `json:"customerName"`
	Status       string          `json:"status"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
	Items        int             `json:"items"`
	At           time.Time       `json:"at"`
}

// OrderFeed publishes order events to the Hub.
type OrderFeed struct {
	hub   *Hub
	clock utils.Clock
}

// NewOrderFeed creates an OrderFeed.
func NewOrderFeed(hub *Hub, clock utils.Clock) *OrderFeed {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &OrderFeed{hub: hub, clock: clock}
}

// OrderPlaced announces a paid order.
func (f *OrderFeed) OrderPlaced(_ context.Context, o *models.Order) {
	f.publish(EventOrderCreated, o)
}

// OrderStatusChanged announces an admin status change.
func (f *OrderFeed) OrderStatusChanged(_ context.Context, o *models.Order) {
	f.publish(EventOrderStatusChanged, o)
}

func (f *OrderFeed) publish(event string, o *models.Order) {
	if f.hub.Len() == 0 {
		return
	}
	items := 0
	for _, it := range o.Items {
		items += it.Quantity
	}
	f.hub.Publish(event, &OrderEvent{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		Status:       string(o.Status),
		Total:        o.Total,
		Currency:     o.Currency,
		Items:        items,
		At:           f.clock.Now(),
	})
}
