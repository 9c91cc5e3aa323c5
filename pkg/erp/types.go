package erp

import "fmt"

// Product is an item as the ERP models it.
type Product struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	PriceUSD    float64 `json:"priceUsd,omitempty"`
	Inventory   int     `json:"inventory"`
	Active      bool    `json:"active"`
	Tags        string  `json:"tags,omitempty"`
}

// ProductPage is one page of the product listing.
type ProductPage struct {
	Data       []Product `json:"data"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
	TotalItems int       `json:"totalItems"`
}

// ProductInput is the writable subset of Product.
type ProductInput struct {
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	PriceUSD    float64 `json:"priceUsd,omitempty"`
	Active      bool    `json:"active"`
	Tags        string  `json:"tags,omitempty"`
}

// InventoryAdjustment changes stock by a relative quantity.
type InventoryAdjustment struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
	Reference string `json:"reference,omitempty"`
}

// InventoryAdjustmentResult is returned after an adjustment is applied.
type InventoryAdjustmentResult struct {
	ProductID string `json:"productId"`
	Inventory int    `json:"inventory"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("erp: status %d: %s", e.StatusCode, e.Body)
}
