package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// DiscountCode is a promotional code applied at checkout.
type DiscountCode struct {
	ID                   int                 `db:"id" json:"id"`
	Code                 string              `db:"code" json:"code"`
	Description          string              `db:"description" json:"description"`
	Type                 DiscountType        `db:"discount_type" json:"discountType"`
	Value                decimal.Decimal     `db:"value" json:"value"`
	MinPurchaseAmount    decimal.NullDecimal `db:"min_purchase_amount" json:"minPurchaseAmount"`
	MaxDiscountAmount    decimal.NullDecimal `db:"max_discount_amount" json:"maxDiscountAmount"`
	UsageLimit           *int                `db:"usage_limit" json:"usageLimit,omitempty"`
	UsageCount           int                 `db:"usage_count" json:"usageCount"`
	StartDate            *time.Time          `db:"start_date" json:"startDate,omitempty"`
	EndDate              *time.Time          `db:"end_date" json:"endDate,omitempty"`
	IsActive             bool                `db:"is_active" json:"isActive"`
	ApplicableProductIDs pq.Int64Array       `db:"applicable_product_ids" json:"applicableProductIds"`
	CreatedAt            time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time           `db:"updated_at" json:"updatedAt"`
}

// DiscountCodeUsage records that an order consumed a code.
type DiscountCodeUsage struct {
	ID             int             `db:"id" json:"id"`
	DiscountCodeID int             `db:"discount_code_id" json:"discountCodeId"`
	OrderID        int             `db:"order_id" json:"orderId"`
	UserID         *int            `db:"user_id" json:"userId,omitempty"`
	AmountApplied  decimal.Decimal `db:"amount_applied" json:"amountApplied"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}
