package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

// Customer-facing rejection reasons.
const (
	ReasonInvalidCode     = "Código de descuento inválido"
	ReasonNotYetValid     = "Este código aún no está vigente"
	ReasonExpired         = "Este código ha expirado"
	ReasonUsageExhausted  = "Este código ha alcanzado su límite de usos"
	ReasonMinimumPurchase = "Compra mínima de $%s requerida"
	ReasonNotApplicable   = "Este código no aplica a los productos de tu carrito"
)

// DiscountStore persists discount codes.
type DiscountStore interface {
	GetByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	GetByID(ctx context.Context, id int) (*models.DiscountCode, error)
	List(ctx context.Context, page, limit int) ([]models.DiscountCode, int, error)
	Create(ctx context.Context, d *models.DiscountCode) error
	Update(ctx context.Context, d *models.DiscountCode) error
	Delete(ctx context.Context, id int) error
	ListUsages(ctx context.Context, codeID int) ([]models.DiscountCodeUsage, error)
}

// DiscountResult is the outcome of validating a code against a cart.
type DiscountResult struct {
	Valid          bool                `json:"valid"`
	Reason         string              `json:"reason,omitempty"`
	Code           string              `json:"code"`
	DiscountType   models.DiscountType `json:"discountType,omitempty"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	CodeID         int                 `json:"-"`
}

// ValidateDiscountRequest is the body of POST /v1/discount-codes/validate.
type ValidateDiscountRequest struct {
	Code       string          `json:"code" binding:"required"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ProductIDs []int           `json:"productIds"`
}

// DiscountCodeRequest is the admin create/update body.
type DiscountCodeRequest struct {
	Code                 string              `json:"code" binding:"required,min=3,max=50"`
	Description          string              `json:"description"`
	DiscountType         models.DiscountType `json:"discountType" binding:"required,oneof=percentage fixed"`
	Value                decimal.Decimal     `json:"value"`
	MinPurchaseAmount    *decimal.Decimal    `json:"minPurchaseAmount"`
	MaxDiscountAmount    *decimal.Decimal    `json:"maxDiscountAmount"`
	UsageLimit           *int                `json:"usageLimit" binding:"omitempty,gt=0"`
	StartDate            *time.Time          `json:"startDate"`
	EndDate              *time.Time          `json:"endDate"`
	IsActive             *bool               `json:"isActive"`
	ApplicableProductIDs []int64             `json:"applicableProductIds"`
}

// DiscountService validates codes and manages them for the back-office.
type DiscountService struct {
	store DiscountStore
	clock utils.Clock
}

// NewDiscountService creates a DiscountService. A nil clock uses the wall clock.
func NewDiscountService(store DiscountStore, clock utils.Clock) *DiscountService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &DiscountService{store: store, clock: clock}
}

// Validate runs the checks in order: existence and active flag, date window,
// usage limit, minimum purchase, product restriction. Rejections are
// returned as an invalid result, not an error.
func (s *DiscountService) Validate(ctx context.Context, code string, subtotal decimal.Decimal, productIDs []int) (*DiscountResult, error) {
	code = strings.TrimSpace(code)
	res := &DiscountResult{Code: strings.ToUpper(code), DiscountAmount: decimal.Zero}

	d, err := s.store.GetByCode(ctx, code)
	if errors.Is(err, utils.ErrDiscountNotFound) {
		res.Reason = ReasonInvalidCode
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	res.Code = d.Code
	if !d.IsActive {
		res.Reason = ReasonInvalidCode
		return res, nil
	}

	now := s.clock.Now()
	if d.StartDate != nil && now.Before(*d.StartDate) {
		res.Reason = ReasonNotYetValid
		return res, nil
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		res.Reason = ReasonExpired
		return res, nil
	}
	if d.UsageLimit != nil && d.UsageCount >= *d.UsageLimit {
		res.Reason = ReasonUsageExhausted
		return res, nil
	}
	if d.MinPurchaseAmount.Valid && subtotal.LessThan(d.MinPurchaseAmount.Decimal) {
		res.Reason = fmt.Sprintf(ReasonMinimumPurchase, d.MinPurchaseAmount.Decimal.StringFixed(2))
		return res, nil
	}
	if len(d.ApplicableProductIDs) > 0 && !allAllowed(d.ApplicableProductIDs, productIDs) {
		res.Reason = ReasonNotApplicable
		return res, nil
	}

	res.Valid = true
	res.CodeID = d.ID
	res.DiscountType = d.Type
	res.DiscountAmount = ComputeDiscount(d, subtotal)
	return res, nil
}

// ComputeDiscount returns the amount a valid code takes off subtotal.
// Percentages are capped by MaxDiscountAmount; no discount exceeds subtotal.
func ComputeDiscount(d *models.DiscountCode, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Type {
	case models.DiscountPercentage:
		amount = subtotal.Mul(d.Value).Div(decimal.NewFromInt(100))
		if d.MaxDiscountAmount.Valid && amount.GreaterThan(d.MaxDiscountAmount.Decimal) {
			amount = d.MaxDiscountAmount.Decimal
		}
	case models.DiscountFixed:
		amount = d.Value
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2)
}

func allAllowed(allowed pq.Int64Array, productIDs []int) bool {
	set := make(map[int64]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	for _, id := range productIDs {
		if _, ok := set[int64(id)]; !ok {
			return false
		}
	}
	return true
}

func (s *DiscountService) List(ctx context.Context, page, limit int) ([]models.DiscountCode, int, error) {
	return s.store.List(ctx, page, limit)
}

func (s *DiscountService) Get(ctx context.Context, id int) (*models.DiscountCode, error) {
	return s.store.GetByID(ctx, id)
}

func (s *DiscountService) Usages(ctx context.Context, id int) ([]models.DiscountCodeUsage, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListUsages(ctx, id)
}

func (s *DiscountService) Create(ctx context.Context, req *DiscountCodeRequest) (*models.DiscountCode, error) {
	d := &models.DiscountCode{IsActive: true}
	if err := applyDiscountRequest(d, req); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DiscountService) Update(ctx context.Context, id int, req *DiscountCodeRequest) (*models.DiscountCode, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyDiscountRequest(d, req); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DiscountService) Delete(ctx context.Context, id int) error {
	return s.store.Delete(ctx, id)
}

func applyDiscountRequest(d *models.DiscountCode, req *DiscountCodeRequest) error {
	fields := map[string]string{}
	if !req.Value.IsPositive() {
		fields["value"] = "debe ser mayor a 0"
	}
	if req.DiscountType == models.DiscountPercentage && req.Value.GreaterThan(decimal.NewFromInt(100)) {
		fields["value"] = "un porcentaje no puede ser mayor a 100"
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		fields["endDate"] = "debe ser posterior a la fecha de inicio"
	}
	if len(fields) > 0 {
		return &utils.ValidationError{Fields: fields}
	}

	d.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	d.Description = req.Description
	d.Type = req.DiscountType
	d.Value = req.Value
	d.MinPurchaseAmount = nullDecimal(req.MinPurchaseAmount)
	d.MaxDiscountAmount = nullDecimal(req.MaxDiscountAmount)
	d.UsageLimit = req.UsageLimit
	d.StartDate = req.StartDate
	d.EndDate = req.EndDate
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	d.ApplicableProductIDs = nil
	if len(req.ApplicableProductIDs) > 0 {
		d.ApplicableProductIDs = pq.Int64Array(req.ApplicableProductIDs)
	}
	return nil
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}
