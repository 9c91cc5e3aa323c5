package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FilterCategory groups filter products (e.g. "cartuchos plisados").
type FilterCategory struct {
	ID            int       `db:"id" json:"id"`
	Slug          string    `db:"slug" json:"slug"`
	NameES        string    `db:"name_es" json:"nameEs"`
	NameEN        string    `db:"name_en" json:"nameEn"`
	DescriptionES string    `db:"description_es" json:"descriptionEs"`
	DescriptionEN string    `db:"description_en" json:"descriptionEn"`
	ImageURL      string    `db:"image_url" json:"imageUrl"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`

	Variants []FilterCategoryVariant `db:"-" json:"variants,omitempty"`
}

// FilterCategoryVariant is a size of a filter category sold under its own ERP code.
type FilterCategoryVariant struct {
	ID         int             `db:"id" json:"id"`
	CategoryID int             `db:"category_id" json:"categoryId"`
	Size       string          `db:"size" json:"size"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Currency   string          `db:"currency" json:"currency"`
	ERPCode    string          `db:"erp_code" json:"erpCode"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updatedAt"`
}
