package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/cache"
	"github.com/filtrotek/storefront/internal/metrics"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/repository"
	"github.com/filtrotek/storefront/internal/utils"
	"github.com/filtrotek/storefront/pkg/payment"
)

// Webhook outcomes, also used as metric labels.
const (
	WebhookCreated   = "created"
	WebhookDuplicate = "duplicate"
	WebhookLogged    = "logged"
	WebhookIgnored   = "ignored"
)

// EventParser verifies and decodes a webhook delivery.
type EventParser interface {
	ParseEvent(payload []byte, signature string) (*payment.Event, error)
}

// OrderFinalizer turns a settled payment into an order atomically.
type OrderFinalizer interface {
	FinalizeOrder(ctx context.Context, in *repository.FinalizeInput) (*repository.FinalizeResult, error)
}

type productBatchLookup interface {
	GetByIDs(ctx context.Context, ids []int) ([]models.Product, error)
}

type inventoryPusher interface {
	Push(ctx context.Context, changes []InventoryChange)
}

type orderNotifier interface {
	OrderPlaced(ctx context.Context, o *models.Order)
}

// WebhookResult tells the handler what happened to an event.
type WebhookResult struct {
	EventID     string `json:"eventId"`
	EventType   string `json:"eventType"`
	Outcome     string `json:"outcome"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

// PaymentWebhookService finalizes orders from payment processor events.
type PaymentWebhookService struct {
	parser    EventParser
	orders    OrderFinalizer
	snapshots SnapshotStore
	products  productBatchLookup
	inventory inventoryPusher
	notifier  orderNotifier
	clock     utils.Clock
}

// NewPaymentWebhookService creates a PaymentWebhookService.
func NewPaymentWebhookService(
	parser EventParser,
	orders OrderFinalizer,
	snapshots SnapshotStore,
	products productBatchLookup,
	inventory inventoryPusher,
	notifier orderNotifier,
	clock utils.Clock,
) *PaymentWebhookService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &PaymentWebhookService{
		parser:    parser,
		orders:    orders,
		snapshots: snapshots,
		products:  products,
		inventory: inventory,
		notifier:  notifier,
		clock:     clock,
	}
}

// ProcessWebhook verifies the signature and handles the event. An error
// means the delivery should be retried by the processor.
func (s *PaymentWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	ev, err := s.parser.ParseEvent(payload, signature)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected webhook with invalid signature")
		return nil, utils.ErrInvalidSignature
	}

	result := &WebhookResult{EventID: ev.ID, EventType: ev.Type}
	switch ev.Type {
	case payment.EventPaymentSucceeded:
		err = s.handleSucceeded(ctx, ev, result)
	case payment.EventPaymentFailed, payment.EventPaymentCanceled:
		result.Outcome = WebhookLogged
		entry := log.Info().Str("event_id", ev.ID).Str("event_type", ev.Type)
		if ev.PaymentIntent != nil {
			entry = entry.Str("payment_intent_id", ev.PaymentIntent.ID).Str("failure", ev.PaymentIntent.FailureMessage)
		}
		entry.Msg("Payment did not complete")
	default:
		result.Outcome = WebhookIgnored
		log.Debug().Str("event_id", ev.ID).Str("event_type", ev.Type).Msg("Ignoring webhook event")
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Type, "error").Inc()
		return nil, err
	}

	metrics.WebhookEvents.WithLabelValues(ev.Type, result.Outcome).Inc()
	return result, nil
}

func (s *PaymentWebhookService) handleSucceeded(ctx context.Context, ev *payment.Event, result *WebhookResult) error {
	pi := ev.PaymentIntent
	if pi == nil || pi.ID == "" {
		return fmt.Errorf("event %s carries no payment intent", ev.ID)
	}

	snap, err := s.loadSnapshot(ctx, pi)
	if err != nil {
		log.Error().Err(err).Str("event_id", ev.ID).Str("payment_intent_id", pi.ID).Msg("Cannot rebuild checkout for paid intent")
		return utils.ErrSnapshotMissing
	}

	order := orderFromSnapshot(snap)
	res, err := s.orders.FinalizeOrder(ctx, &repository.FinalizeInput{
		EventID:        ev.ID,
		EventType:      ev.Type,
		Order:          order,
		DiscountCodeID: snap.DiscountCodeID,
		Now:            s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("finalize order for %s: %w", pi.ID, err)
	}
	if res.Duplicate {
		result.Outcome = WebhookDuplicate
		log.Info().Str("event_id", ev.ID).Str("payment_intent_id", pi.ID).Msg("Webhook already processed")
		return nil
	}

	result.Outcome = WebhookCreated
	result.OrderNumber = res.Order.OrderNumber
	metrics.OrdersCreated.Inc()
	log.Info().
		Str("order_number", res.Order.OrderNumber).
		Str("payment_intent_id", pi.ID).
		Str("total", res.Order.Total.StringFixed(2)).
		Msg("Order created")

	// The order is committed; nothing below may fail the delivery.
	s.inventory.Push(ctx, saleAdjustments(res.Order, snap.Items))
	s.notifier.OrderPlaced(ctx, res.Order)
	if err := s.snapshots.Delete(ctx, pi.ID); err != nil {
		log.Warn().Err(err).Str("payment_intent_id", pi.ID).Msg("Failed to drop checkout snapshot")
	}
	return nil
}

// loadSnapshot reads the cached checkout, rebuilding it from the intent's
// metadata when the cache entry is gone.
func (s *PaymentWebhookService) loadSnapshot(ctx context.Context, pi *payment.PaymentIntentData) (*cache.CheckoutSnapshot, error) {
	snap, err := s.snapshots.Get(ctx, pi.ID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Str("payment_intent_id", pi.ID).Msg("Snapshot read failed; rebuilding from metadata")
	}
	return s.rebuildSnapshot(ctx, pi)
}

func (s *PaymentWebhookService) rebuildSnapshot(ctx context.Context, pi *payment.PaymentIntentData) (*cache.CheckoutSnapshot, error) {
	md := pi.Metadata
	quantities, err := decodeItems(md["items"])
	if err != nil {
		return nil, fmt.Errorf("metadata items: %w", err)
	}
	ids := sortedKeys(quantities)
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[int]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	snap := &cache.CheckoutSnapshot{
		PaymentIntentID: pi.ID,
		CustomerName:    md["customer_name"],
		CustomerEmail:   md["customer_email"],
		CustomerPhone:   md["customer_phone"],
		Shipping: models.ShippingAddress{
			Street:     md["shipping_street"],
			City:       md["shipping_city"],
			State:      md["shipping_state"],
			PostalCode: md["shipping_postal_code"],
			Country:    md["shipping_country"],
		},
		Currency:     strings.ToUpper(pi.Currency),
		DiscountCode: md["discount_code"],
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("product %d no longer exists", id)
		}
		item := cache.CheckoutItem{
			ProductID: p.ID,
			ItemCode:  p.ItemCode,
			Name:      p.DisplayName(),
			UnitPrice: p.Price,
			Quantity:  quantities[id],
		}
		if p.ERPID != nil {
			item.ERPID = *p.ERPID
		}
		snap.Items = append(snap.Items, item)
	}

	// Amounts are what the customer was charged, not today's prices.
	amounts := map[string]*decimal.Decimal{
		"subtotal": &snap.Subtotal,
		"discount": &snap.DiscountAmount,
		"shipping": &snap.ShippingCost,
		"tax":      &snap.Tax,
		"total":    &snap.Total,
	}
	for key, dst := range amounts {
		v, err := decimal.NewFromString(md[key])
		if err != nil {
			return nil, fmt.Errorf("metadata %s: %w", key, err)
		}
		*dst = v
	}
	if uid, err := strconv.Atoi(md["user_id"]); err == nil && uid > 0 {
		snap.UserID = &uid
	}
	if id, err := strconv.Atoi(md["discount_code_id"]); err == nil {
		snap.DiscountCodeID = id
	}

	log.Info().Str("payment_intent_id", pi.ID).Int("items", len(snap.Items)).Msg("Checkout snapshot rebuilt from metadata")
	return snap, nil
}

func orderFromSnapshot(snap *cache.CheckoutSnapshot) *models.Order {
	piID := snap.PaymentIntentID
	o := &models.Order{
		UserID:          snap.UserID,
		CustomerName:    snap.CustomerName,
		CustomerEmail:   snap.CustomerEmail,
		CustomerPhone:   snap.CustomerPhone,
		ShippingAddress: snap.Shipping,
		Subtotal:        snap.Subtotal,
		ShippingCost:    snap.ShippingCost,
		Tax:             snap.Tax,
		DiscountAmount:  snap.DiscountAmount,
		Total:           snap.Total,
		Currency:        snap.Currency,
		PaymentIntentID: &piID,
		Status:          models.OrderPending,
	}
	if snap.DiscountCode != "" {
		code := snap.DiscountCode
		o.DiscountCode = &code
	}
	for _, it := range snap.Items {
		pid := it.ProductID
		o.Items = append(o.Items, models.OrderItem{
			ProductID:   &pid,
			ProductName: it.Name,
			ItemCode:    it.ItemCode,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal(),
		})
	}
	return o
}

// saleAdjustments are the negative ERP deltas for an order's lines.
func saleAdjustments(o *models.Order, items []cache.CheckoutItem) []InventoryChange {
	changes := make([]InventoryChange, 0, len(items))
	orderID := o.ID
	for _, it := range items {
		if it.ERPID == "" {
			continue
		}
		pid := it.ProductID
		changes = append(changes, InventoryChange{
			OrderID:   &orderID,
			ProductID: &pid,
			ERPID:     it.ERPID,
			Delta:     -it.Quantity,
			Reason:    "sale",
			Reference: "order:" + o.OrderNumber,
		})
	}
	return changes
}
