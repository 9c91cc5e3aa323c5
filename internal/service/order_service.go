package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/repository"
	"github.com/filtrotek/storefront/internal/utils"
)

// OrderStore reads and updates orders.
type OrderStore interface {
	GetByID(ctx context.Context, id int) (*models.Order, error)
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	ListByUser(ctx context.Context, userID, page, limit int) ([]models.Order, int, error)
	List(ctx context.Context, f repository.OrderFilter) ([]models.Order, int, error)
	UpdateStatus(ctx context.Context, id int, from, to models.OrderStatus) error
	CancelAndRestock(ctx context.Context, o *models.Order, note string) error
	Stats(ctx context.Context, now time.Time) (*repository.OrderStats, error)
}

// Refunder returns a captured payment.
type Refunder interface {
	Refund(ctx context.Context, paymentIntentID string) (string, error)
}

// UpdateOrderStatusRequest is the body of PUT /v1/admin/orders/:id/status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
	Note   string `json:"note" binding:"max=500"`
}

// StatusWatcher is told about every admin status change.
type StatusWatcher interface {
	OrderStatusChanged(ctx context.Context, o *models.Order)
}

// RefundResult is returned by Refund.
type RefundResult struct {
	Order    *models.Order `json:"order"`
	RefundID string        `json:"refundId"`
}

// OrderService serves customer order history and the admin order lifecycle.
type OrderService struct {
	orders    OrderStore
	products  productBatchLookup
	payments  Refunder
	inventory inventoryPusher
	clock     utils.Clock
	watcher   StatusWatcher
}

// NewOrderService creates an OrderService.
func NewOrderService(orders OrderStore, products productBatchLookup, payments Refunder, inventory inventoryPusher, clock utils.Clock) *OrderService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &OrderService{
		orders:    orders,
		products:  products,
		payments:  payments,
		inventory: inventory,
		clock:     clock,
	}
}

// WatchStatus registers w to receive status changes.
func (s *OrderService) WatchStatus(w StatusWatcher) {
	s.watcher = w
}

// ListForUser returns the customer's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID, page, limit int) ([]models.Order, int, error) {
	return s.orders.ListByUser(ctx, userID, page, limit)
}

// GetForUser returns the order only if it belongs to userID.
func (s *OrderService) GetForUser(ctx context.Context, userID int, number string) (*models.Order, error) {
	o, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return nil, utils.ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) List(ctx context.Context, f repository.OrderFilter) ([]models.Order, int, error) {
	return s.orders.List(ctx, f)
}

func (s *OrderService) Get(ctx context.Context, id int) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// UpdateStatus applies a lifecycle transition. Cancelling puts the stock back.
func (s *OrderService) UpdateStatus(ctx context.Context, id int, req *UpdateOrderStatusRequest) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := models.OrderStatus(req.Status)
	if !o.Status.CanTransition(next) {
		return nil, utils.ErrInvalidTransition
	}

	if next == models.OrderCancelled {
		note := "Cancelado por administración"
		if req.Note != "" {
			note = req.Note
		}
		if err := s.cancel(ctx, o, note); err != nil {
			return nil, err
		}
	} else if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, next); err != nil {
		return nil, err
	}

	log.Info().Str("order_number", o.OrderNumber).Str("from", string(o.Status)).Str("to", string(next)).Msg("Order status updated")
	updated, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, updated)
	return updated, nil
}

// Refund returns the payment, cancels the order and restores stock.
func (s *OrderService) Refund(ctx context.Context, id int) (*RefundResult, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(models.OrderCancelled) {
		return nil, utils.ErrNotRefundable
	}
	if o.PaymentIntentID == nil || *o.PaymentIntentID == "" {
		return nil, utils.ErrNotRefundable
	}

	refundID, err := s.payments.Refund(ctx, *o.PaymentIntentID)
	if err != nil {
		return nil, upstream("payment", err)
	}
	if err := s.cancel(ctx, o, fmt.Sprintf("Reembolso %s", refundID)); err != nil {
		// The money is already back with the customer; the order needs manual attention.
		log.Error().Err(err).Str("order_number", o.OrderNumber).Str("refund_id", refundID).Msg("Refund issued but order not cancelled")
		return nil, err
	}

	log.Info().Str("order_number", o.OrderNumber).Str("refund_id", refundID).Msg("Order refunded")
	updated, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, updated)
	return &RefundResult{Order: updated, RefundID: refundID}, nil
}

func (s *OrderService) statusChanged(ctx context.Context, o *models.Order) {
	if s.watcher != nil {
		s.watcher.OrderStatusChanged(ctx, o)
	}
}

// Stats summarises orders for the dashboard.
func (s *OrderService) Stats(ctx context.Context) (*repository.OrderStats, error) {
	return s.orders.Stats(ctx, s.clock.Now())
}

func (s *OrderService) cancel(ctx context.Context, o *models.Order, note string) error {
	if err := s.orders.CancelAndRestock(ctx, o, note); err != nil {
		return err
	}
	s.inventory.Push(ctx, s.restockAdjustments(ctx, o))
	return nil
}

// restockAdjustments are the positive ERP deltas for a cancelled order.
func (s *OrderService) restockAdjustments(ctx context.Context, o *models.Order) []InventoryChange {
	ids := make([]int, 0, len(o.Items))
	for _, it := range o.Items {
		if it.ProductID != nil {
			ids = append(ids, *it.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Str("order_number", o.OrderNumber).Msg("Cannot load products for ERP restock")
		return nil
	}
	erpIDs := make(map[int]string, len(products))
	for _, p := range products {
		if p.ERPID != nil {
			erpIDs[p.ID] = *p.ERPID
		}
	}

	orderID := o.ID
	var changes []InventoryChange
	for _, it := range o.Items {
		if it.ProductID == nil || erpIDs[*it.ProductID] == "" {
			continue
		}
		pid := *it.ProductID
		changes = append(changes, InventoryChange{
			OrderID:   &orderID,
			ProductID: &pid,
			ERPID:     erpIDs[pid],
			Delta:     it.Quantity,
			Reason:    "cancellation",
			Reference: "order:" + o.OrderNumber,
		})
	}
	return changes
}
