package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func sampleOrder() *models.Order {
	return &models.Order{
		CustomerName:    "Ana López",
		CustomerEmail:   "ana@example.com",
		ShippingAddress: models.ShippingAddress{City: "Monterrey", Country: "MX"},
		Subtotal:        decimal.RequireFromString("900"),
		Tax:             decimal.RequireFromString("144"),
		Total:           decimal.RequireFromString("1044"),
		Currency:        "MXN",
		PaymentIntentID: strPtr("pi_123"),
		Items: []models.OrderItem{{
			ProductID:   intPtr(7),
			ProductName: "Cartucho 10in",
			ItemCode:    "CP-10",
			UnitPrice:   decimal.RequireFromString("450"),
			Quantity:    2,
			Subtotal:    decimal.RequireFromString("900"),
		}},
	}
}

var finalizeNow = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

func expectNewOrder(mock sqlmock.Sqlmock) {
	mock.ExpectExec("INSERT INTO processed_webhook_events").
		WithArgs("evt_1", "payment_intent.succeeded", "pi_123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM orders WHERE payment_intent_id").
		WithArgs("pi_123").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE\\(MAX").
		WithArgs("20250301").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(4))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, finalizeNow, finalizeNow))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectExec("UPDATE products SET stock = stock -").
		WithArgs(2, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestFinalizeOrderCreatesOrderInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	expectNewOrder(mock)
	mock.ExpectCommit()

	res, err := repo.FinalizeOrder(context.Background(), &FinalizeInput{
		EventID:   "evt_1",
		EventType: "payment_intent.succeeded",
		Order:     sampleOrder(),
		Now:       finalizeNow,
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Duplicate)
	assert.Equal(t, "FLT-20250301-000004", res.Order.OrderNumber)
	assert.Equal(t, 11, res.Order.ID)
	assert.Equal(t, 11, res.Order.Items[0].OrderID)
	assert.Equal(t, models.OrderPending, res.Order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeOrderRecordsDiscountUsageEvenWhenLimitReached(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	order := sampleOrder()
	order.DiscountCode = strPtr("BIENVENIDA10")
	order.DiscountAmount = decimal.RequireFromString("90")

	mock.ExpectBegin()
	expectNewOrder(mock)
	mock.ExpectExec("UPDATE discount_codes SET usage_count = usage_count \\+ 1").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO discount_code_usages").
		WithArgs(3, 11, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := repo.FinalizeOrder(context.Background(), &FinalizeInput{
		EventID:        "evt_1",
		EventType:      "payment_intent.succeeded",
		Order:          order,
		DiscountCodeID: 3,
		Now:            finalizeNow,
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.DiscountExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeOrderSkipsReplayedEvent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_webhook_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := repo.FinalizeOrder(context.Background(), &FinalizeInput{
		EventID: "evt_1", EventType: "payment_intent.succeeded", Order: sampleOrder(), Now: finalizeNow,
	})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.True(t, res.Duplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeOrderSkipsSecondEventForSameIntent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_webhook_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM orders WHERE payment_intent_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	res, err := repo.FinalizeOrder(context.Background(), &FinalizeInput{
		EventID: "evt_2", EventType: "payment_intent.succeeded", Order: sampleOrder(), Now: finalizeNow,
	})
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 11, res.Order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeOrderRollsBackOnItemFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_webhook_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM orders WHERE payment_intent_id").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COALESCE\\(MAX").WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, finalizeNow, finalizeNow))
	mock.ExpectQuery("INSERT INTO order_items").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.FinalizeOrder(context.Background(), &FinalizeInput{
		EventID: "evt_1", EventType: "payment_intent.succeeded", Order: sampleOrder(), Now: finalizeNow,
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAndRestockRejectsShippedOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status = 'cancelled'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CancelAndRestock(context.Background(), &models.Order{ID: 5}, "refund")
	assert.ErrorIs(t, err, utils.ErrNotRefundable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAndRestockPutsStockBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status = 'cancelled'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE products SET stock = stock \\+").WithArgs(2, 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CancelAndRestock(context.Background(), sampleOrderWithID(5), "refund")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sampleOrderWithID(id int) *models.Order {
	o := sampleOrder()
	o.ID = id
	return o
}

func TestUpdateStatusIsConditional(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderShipped, 5, models.OrderProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 5, models.OrderProcessing, models.OrderShipped)
	assert.ErrorIs(t, err, utils.ErrInvalidTransition)
}

func TestUserCreateMapsUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.User{Email: "ana@example.com", Role: models.RoleCustomer})
	assert.ErrorIs(t, err, utils.ErrEmailTaken)
}

func TestDiscountGetByCodeNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDiscountRepository(db)

	mock.ExpectQuery("SELECT \\* FROM discount_codes WHERE UPPER\\(code\\)").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByCode(context.Background(), "nope")
	assert.ErrorIs(t, err, utils.ErrDiscountNotFound)
}

func TestBlogPublishDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBlogRepository(db)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("UPDATE blog_posts").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("como-elegir-un-filtro"))

	slugs, err := repo.PublishDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"como-elegir-un-filtro"}, slugs)
}

func TestERPSyncListDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewERPSyncRepository(db)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM erp_sync_tasks").
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "erp_id", "delta", "attempts", "status"}).
			AddRow(1, "erp-7", -2, 1, "pending"))

	tasks, err := repo.ListDue(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, -2, tasks[0].Delta)
}

func TestProductGetByIDsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	products, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductUpsertByERPID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO products .* ON CONFLICT \\(erp_id\\) DO UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uuid", "created_at", "updated_at", "inserted"}).
			AddRow(31, "9f1c2d7e-0000-4000-8000-000000000031", now, now, true))

	p := &models.Product{
		ERPID:    strPtr("erp-31"),
		ItemCode: "F-900",
		NameES:   "Solo ERP",
		Price:    decimal.RequireFromString("450"),
		Stock:    3,
		Status:   models.ProductActive,
	}
	created, err := repo.UpsertByERPID(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 31, p.ID)
	assert.Equal(t, "9f1c2d7e-0000-4000-8000-000000000031", p.UUID)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.UpsertByERPID(context.Background(), &models.Product{ItemCode: "F-1"})
	assert.Error(t, err)
}
