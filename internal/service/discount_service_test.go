package service

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

var discountNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newDiscountService(ds ...models.DiscountCode) *DiscountService {
	return NewDiscountService(newFakeDiscounts(ds...), &utils.FixedClock{T: discountNow})
}

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func TestValidateDiscountRejections(t *testing.T) {
	tests := []struct {
		name     string
		code     models.DiscountCode
		subtotal string
		products []int
		reason   string
	}{
		{
			name:     "inactive",
			code:     models.DiscountCode{Code: "OFF", Type: models.DiscountFixed, Value: dec("50")},
			subtotal: "100",
			reason:   ReasonInvalidCode,
		},
		{
			name: "not yet valid",
			code: models.DiscountCode{Code: "OFF", Type: models.DiscountFixed, Value: dec("50"), IsActive: true,
				StartDate: timePtr(discountNow.Add(24 * time.Hour))},
			subtotal: "100",
			reason:   ReasonNotYetValid,
		},
		{
			name: "expired",
			code: models.DiscountCode{Code: "OFF", Type: models.DiscountFixed, Value: dec("50"), IsActive: true,
				EndDate: timePtr(discountNow.Add(-time.Hour))},
			subtotal: "100",
			reason:   ReasonExpired,
		},
		{
			name: "usage exhausted",
			code: models.DiscountCode{Code: "OFF", Type: models.DiscountFixed, Value: dec("50"), IsActive: true,
				UsageLimit: intPtr(5), UsageCount: 5},
			subtotal: "100",
			reason:   ReasonUsageExhausted,
		},
		{
			name: "below minimum",
			code: models.DiscountCode{Code: "OFF", Type: models.DiscountFixed, Value: dec("50"), IsActive: true,
				MinPurchaseAmount: decimal.NewNullDecimal(dec("500"))},
			subtotal: "499.99",
			reason:   "Compra mínima de $500.00 requerida",
		},
		{
			name: "product restriction",
			code: models.DiscountCode{Code: "OFF", Type: models.DiscountFixed, Value: dec("50"), IsActive: true,
				ApplicableProductIDs: pq.Int64Array{1, 2}},
			subtotal: "100",
			products: []int{1, 3},
			reason:   ReasonNotApplicable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newDiscountService(tt.code)

			res, err := svc.Validate(context.Background(), "off", dec(tt.subtotal), tt.products)
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, tt.reason, res.Reason)
			assert.True(t, res.DiscountAmount.IsZero())
		})
	}
}

func TestValidateDiscountUnknownCode(t *testing.T) {
	svc := newDiscountService()

	res, err := svc.Validate(context.Background(), " nada ", dec("100"), nil)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonInvalidCode, res.Reason)
	assert.Equal(t, "NADA", res.Code)
}

func TestValidateDiscountAccepted(t *testing.T) {
	svc := newDiscountService(models.DiscountCode{
		ID: 9, Code: "FILTROS15", Type: models.DiscountPercentage, Value: dec("15"), IsActive: true,
		StartDate:            timePtr(discountNow.Add(-time.Hour)),
		EndDate:              timePtr(discountNow.Add(time.Hour)),
		UsageLimit:           intPtr(10),
		UsageCount:           9,
		ApplicableProductIDs: pq.Int64Array{1, 2},
	})

	res, err := svc.Validate(context.Background(), "FILTROS15", dec("800"), []int{2})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 9, res.CodeID)
	assert.Equal(t, "120.00", res.DiscountAmount.StringFixed(2))
}

func TestComputeDiscountCaps(t *testing.T) {
	pct := &models.DiscountCode{Type: models.DiscountPercentage, Value: dec("50"), MaxDiscountAmount: decimal.NewNullDecimal(dec("200"))}
	assert.Equal(t, "200.00", ComputeDiscount(pct, dec("1000")).StringFixed(2))
	assert.Equal(t, "100.00", ComputeDiscount(pct, dec("200")).StringFixed(2))

	fixed := &models.DiscountCode{Type: models.DiscountFixed, Value: dec("300")}
	assert.Equal(t, "300.00", ComputeDiscount(fixed, dec("1000")).StringFixed(2))
	assert.Equal(t, "120.00", ComputeDiscount(fixed, dec("120")).StringFixed(2))
}

func TestCreateDiscountNormalisesCode(t *testing.T) {
	svc := newDiscountService()

	d, err := svc.Create(context.Background(), &DiscountCodeRequest{
		Code:         "  verano ",
		DiscountType: models.DiscountPercentage,
		Value:        dec("20"),
	})
	require.NoError(t, err)
	assert.Equal(t, "VERANO", d.Code)
	assert.True(t, d.IsActive)
}

func TestCreateDiscountRejectsBadValues(t *testing.T) {
	svc := newDiscountService()
	start := discountNow
	end := discountNow.Add(-time.Hour)

	_, err := svc.Create(context.Background(), &DiscountCodeRequest{
		Code:         "MAL",
		DiscountType: models.DiscountPercentage,
		Value:        dec("150"),
		StartDate:    &start,
		EndDate:      &end,
	})

	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "value")
	assert.Contains(t, verr.Fields, "endDate")
}

func TestCreateDiscountDuplicate(t *testing.T) {
	svc := newDiscountService(models.DiscountCode{ID: 1, Code: "VERANO"})

	_, err := svc.Create(context.Background(), &DiscountCodeRequest{Code: "verano", DiscountType: models.DiscountFixed, Value: dec("10")})
	assert.ErrorIs(t, err, utils.ErrDuplicateCode)
}
