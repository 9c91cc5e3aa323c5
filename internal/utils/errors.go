package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common application errors used across services.
var (
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrAccountInactive    = errors.New("ACCOUNT_INACTIVE")
	ErrEmailTaken         = errors.New("EMAIL_TAKEN")
	ErrUserNotFound       = errors.New("USER_NOT_FOUND")
	ErrProductNotFound    = errors.New("PRODUCT_NOT_FOUND")
	ErrCategoryNotFound   = errors.New("CATEGORY_NOT_FOUND")
	ErrVariantNotFound    = errors.New("VARIANT_NOT_FOUND")
	ErrOrderNotFound      = errors.New("ORDER_NOT_FOUND")
	ErrDiscountNotFound   = errors.New("DISCOUNT_NOT_FOUND")
	ErrPostNotFound       = errors.New("POST_NOT_FOUND")
	ErrDuplicateCode      = errors.New("DUPLICATE_CODE")
	ErrDuplicateSlug      = errors.New("DUPLICATE_SLUG")
	ErrInvalidTransition  = errors.New("INVALID_STATUS_TRANSITION")
	ErrInvalidSignature   = errors.New("INVALID_SIGNATURE")
	ErrSnapshotMissing    = errors.New("CHECKOUT_SNAPSHOT_MISSING")
	ErrNotRefundable      = errors.New("ORDER_NOT_REFUNDABLE")
	ErrUpstream           = errors.New("UPSTREAM_ERROR")
	ErrStorageDisabled    = errors.New("STORAGE_DISABLED")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the field messages sorted by field name.
func (e *ValidationError) Messages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return out
}

// InsufficientStockError rejects a cart line whose quantity exceeds stock.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Stock insuficiente para %s. Disponible: %d, Solicitado: %d", e.ProductName, e.Available, e.Requested)
}

// DiscountRejectedError carries the customer-facing reason a code was refused.
type DiscountRejectedError struct {
	Reason string
}

func (e *DiscountRejectedError) Error() string {
	return e.Reason
}

// UpstreamError is a failure of a third-party service such as the ERP or
// the payment processor. It matches ErrUpstream.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Service + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
