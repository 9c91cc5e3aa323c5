package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// orderTransitions lists the statuses reachable from each status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// ShippingAddress is the destination captured at checkout.
type ShippingAddress struct {
	Street     string `db:"shipping_street" json:"street"`
	City       string `db:"shipping_city" json:"city"`
	State      string `db:"shipping_state" json:"state"`
	PostalCode string `db:"shipping_postal_code" json:"postalCode"`
	Country    string `db:"shipping_country" json:"country"`
}

// Order is a paid purchase. Customer and item data are snapshots taken at
// checkout time, not live references.
type Order struct {
	ID              int             `db:"id" json:"id"`
	OrderNumber     string          `db:"order_number" json:"orderNumber"`
	UserID          *int            `db:"user_id" json:"userId,omitempty"`
	CustomerName    string          `db:"customer_name" json:"customerName"`
	CustomerEmail   string          `db:"customer_email" json:"customerEmail"`
	CustomerPhone   string          `db:"customer_phone" json:"customerPhone"`
	ShippingAddress                 `json:"shippingAddress"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingCost    decimal.Decimal `db:"shipping_cost" json:"shippingCost"`
	Tax             decimal.Decimal `db:"tax" json:"tax"`
	DiscountAmount  decimal.Decimal `db:"discount_amount" json:"discountAmount"`
	Total           decimal.Decimal `db:"total" json:"total"`
	Currency        string          `db:"currency" json:"currency"`
	DiscountCode    *string         `db:"discount_code" json:"discountCode,omitempty"`
	PaymentIntentID *string         `db:"payment_intent_id" json:"paymentIntentId,omitempty"`
	Status          OrderStatus     `db:"status" json:"status"`
	Notes           string          `db:"notes" json:"notes"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`

	Items []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem is one purchased line.
type OrderItem struct {
	ID          int             `db:"id" json:"id"`
	OrderID     int             `db:"order_id" json:"orderId"`
	ProductID   *int            `db:"product_id" json:"productId,omitempty"`
	ProductName string          `db:"product_name" json:"productName"`
	ItemCode    string          `db:"item_code" json:"itemCode"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
}
