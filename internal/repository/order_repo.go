package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/database"
	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

// orderNumberLock serializes order number generation across transactions.
const orderNumberLock = 7301

// FinalizeInput is what a succeeded payment turns into.
type FinalizeInput struct {
	EventID        string
	EventType      string
	Order          *models.Order
	DiscountCodeID int
	Now            time.Time
}

// FinalizeResult reports what FinalizeOrder did.
type FinalizeResult struct {
	Created bool
	// Duplicate is set when the event or the payment intent was already
	// processed. Order then holds the existing order when known.
	Duplicate bool
	Order     *models.Order
	// DiscountExhausted is set when the code reached its limit between
	// checkout and payment; usage is still recorded.
	DiscountExhausted bool
}

// OrderFilter narrows admin order listings. Empty fields are ignored.
type OrderFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// OrderStats summarises orders for the admin dashboard.
type OrderStats struct {
	TotalOrders   int             `json:"totalOrders"`
	ByStatus      map[string]int  `json:"byStatus"`
	Revenue       decimal.Decimal `json:"revenue"`
	OrdersToday   int             `json:"ordersToday"`
	RevenueToday  decimal.Decimal `json:"revenueToday"`
	AverageTicket decimal.Decimal `json:"averageTicket"`
}

// OrderRepository handles orders and their line items.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FinalizeOrder records the webhook event, inserts the order and its items,
// decrements stock and records discount usage in one transaction. Replays
// of the same event or payment intent are no-ops.
func (r *OrderRepository) FinalizeOrder(ctx context.Context, in *FinalizeInput) (*FinalizeResult, error) {
	o := in.Order
	if o.PaymentIntentID == nil || *o.PaymentIntentID == "" {
		return nil, errors.New("finalize order: payment intent id required")
	}
	result := &FinalizeResult{}

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO processed_webhook_events (event_id, event_type, payment_intent_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (event_id) DO NOTHING`, in.EventID, in.EventType, *o.PaymentIntentID)
		if err != nil {
			return fmt.Errorf("record webhook event: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			result.Duplicate = true
			return nil
		}

		var existingID int
		err = tx.GetContext(ctx, &existingID, `SELECT id FROM orders WHERE payment_intent_id = $1`, *o.PaymentIntentID)
		if err == nil {
			result.Duplicate = true
			result.Order = &models.Order{ID: existingID}
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check existing order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, orderNumberLock); err != nil {
			return fmt.Errorf("lock order numbers: %w", err)
		}
		ymd := in.Now.In(utils.MexicoCity).Format("20060102")
		var next int
		if err := tx.GetContext(ctx, &next, `
			SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 14) AS INT)), 0) + 1
			FROM orders
			WHERE order_number LIKE 'FLT-' || $1 || '-%'`, ymd); err != nil {
			return fmt.Errorf("next order number: %w", err)
		}
		o.OrderNumber = utils.OrderNumber(ymd, next)
		if o.Status == "" {
			o.Status = models.OrderPending
		}

		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO orders (order_number, user_id, customer_name, customer_email, customer_phone,
			    shipping_street, shipping_city, shipping_state, shipping_postal_code, shipping_country,
			    subtotal, shipping_cost, tax, discount_amount, total, currency, discount_code,
			    payment_intent_id, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			RETURNING id, created_at, updated_at`,
			o.OrderNumber, o.UserID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
			o.Street, o.City, o.State, o.PostalCode, o.Country,
			o.Subtotal, o.ShippingCost, o.Tax, o.DiscountAmount, o.Total, o.Currency, o.DiscountCode,
			o.PaymentIntentID, o.Status, o.Notes,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range o.Items {
			item := &o.Items[i]
			item.OrderID = o.ID
			if err := tx.QueryRowxContext(ctx, `
				INSERT INTO order_items (order_id, product_id, product_name, item_code, unit_price, quantity, subtotal)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id`,
				item.OrderID, item.ProductID, item.ProductName, item.ItemCode, item.UnitPrice, item.Quantity, item.Subtotal,
			).Scan(&item.ID); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			if item.ProductID != nil {
				if _, err := tx.ExecContext(ctx, `
					UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2`,
					item.Quantity, *item.ProductID); err != nil {
					return fmt.Errorf("decrement stock: %w", err)
				}
			}
		}

		if in.DiscountCodeID > 0 {
			res, err := tx.ExecContext(ctx, `
				UPDATE discount_codes SET usage_count = usage_count + 1, updated_at = NOW()
				WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`, in.DiscountCodeID)
			if err != nil {
				return fmt.Errorf("increment discount usage: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				result.DiscountExhausted = true
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO discount_code_usages (discount_code_id, order_id, user_id, amount_applied)
				VALUES ($1, $2, $3, $4)`, in.DiscountCodeID, o.ID, o.UserID, o.DiscountAmount); err != nil {
				return fmt.Errorf("record discount usage: %w", err)
			}
		}

		result.Created = true
		result.Order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.DiscountExhausted {
		log.Warn().
			Int("discount_code_id", in.DiscountCodeID).
			Str("order_number", o.OrderNumber).
			Msg("discount code usage limit reached at finalization; order kept")
	}
	return result, nil
}

// GetByID returns the order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	return r.getOne(ctx, `SELECT * FROM orders WHERE id = $1`, id)
}

// GetByNumber returns the order with its items.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT * FROM orders WHERE order_number = $1`, number)
}

// GetByPaymentIntent returns the order created for a payment intent.
func (r *OrderRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	return r.getOne(ctx, `SELECT * FROM orders WHERE payment_intent_id = $1`, paymentIntentID)
}

func (r *OrderRepository) getOne(ctx context.Context, q string, arg interface{}) (*models.Order, error) {
	var o models.Order
	err := r.db.GetContext(ctx, &o, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	orders := []models.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make(pq.Int64Array, len(orders))
	index := make(map[int]int, len(orders))
	for i, o := range orders {
		ids[i] = int64(o.ID)
		index[o.ID] = i
	}
	var items []models.OrderItem
	if err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`, ids); err != nil {
		return err
	}
	for _, it := range items {
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

// ListByUser returns a customer's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID, page, limit int) ([]models.Order, int, error) {
	_, limit, offset := pageOffset(page, limit)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM orders WHERE user_id = $1`, userID); err != nil {
		return nil, 0, err
	}
	orders := []models.Order{}
	if err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset); err != nil {
		return nil, 0, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// List returns orders for the back-office. Search matches order number,
// customer name or e-mail.
func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]models.Order, int, error) {
	_, limit, offset := pageOffset(f.Page, f.Limit)

	const baseWhere = `WHERE ($1 = '' OR status = $1)
        AND ($2 = '' OR order_number ILIKE '%' || $2 || '%' OR customer_name ILIKE '%' || $2 || '%' OR customer_email ILIKE '%' || $2 || '%')`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM orders `+baseWhere, f.Status, f.Search); err != nil {
		return nil, 0, err
	}
	orders := []models.Order{}
	if err := r.db.SelectContext(ctx, &orders, `SELECT * FROM orders `+baseWhere+`
        ORDER BY created_at DESC LIMIT $3 OFFSET $4`, f.Status, f.Search, limit, offset); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus moves the order from one status to another. It fails with
// ErrInvalidTransition if the order is no longer in from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int, from, to models.OrderStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrInvalidTransition
	}
	return nil
}

// CancelAndRestock cancels a refundable order and puts its quantities back
// into local stock.
func (r *OrderRepository) CancelAndRestock(ctx context.Context, o *models.Order, note string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = 'cancelled',
			    notes = CASE WHEN notes = '' THEN $1 ELSE notes || E'\n' || $1 END,
			    updated_at = NOW()
			WHERE id = $2 AND status IN ('pending', 'processing')`, note, o.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return utils.ErrNotRefundable
		}
		for _, it := range o.Items {
			if it.ProductID == nil {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2`,
				it.Quantity, *it.ProductID); err != nil {
				return fmt.Errorf("restock product %d: %w", *it.ProductID, err)
			}
		}
		return nil
	})
}

// Stats aggregates order counts and revenue. Cancelled orders do not count
// towards revenue.
func (r *OrderRepository) Stats(ctx context.Context, now time.Time) (*OrderStats, error) {
	stats := &OrderStats{ByStatus: map[string]int{}}

	var rows []struct {
		Status string          `db:"status"`
		Count  int             `db:"count"`
		Sum    decimal.Decimal `db:"sum"`
	}
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT status, COUNT(1) AS count, COALESCE(SUM(total), 0) AS sum
		FROM orders GROUP BY status`); err != nil {
		return nil, err
	}
	paid := 0
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
		if row.Status != string(models.OrderCancelled) {
			stats.Revenue = stats.Revenue.Add(row.Sum)
			paid += row.Count
		}
	}
	if paid > 0 {
		stats.AverageTicket = stats.Revenue.Div(decimal.NewFromInt(int64(paid))).Round(2)
	}

	local := now.In(utils.MexicoCity)
	startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, utils.MexicoCity)
	var today struct {
		Count int             `db:"count"`
		Sum   decimal.Decimal `db:"sum"`
	}
	if err := r.db.GetContext(ctx, &today, `
		SELECT COUNT(1) AS count, COALESCE(SUM(total), 0) AS sum
		FROM orders WHERE created_at >= $1 AND status <> 'cancelled'`, startOfDay); err != nil {
		return nil, err
	}
	stats.OrdersToday = today.Count
	stats.RevenueToday = today.Sum
	return stats, nil
}
