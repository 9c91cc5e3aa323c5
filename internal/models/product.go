package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductDraft    ProductStatus = "draft"
)

// ValidProductStatus reports whether s is a known product status.
func ValidProductStatus(s string) bool {
	switch ProductStatus(s) {
	case ProductActive, ProductInactive, ProductDraft:
		return true
	}
	return false
}

// Product is the local mirror of an ERP item plus the fields the ERP does not
// model (translations, dimensions, filter category).
type Product struct {
	ID               int                 `db:"id" json:"id"`
	UUID             string              `db:"uuid" json:"uuid"`
	ERPID            *string             `db:"erp_id" json:"erpId,omitempty"`
	ItemCode         string              `db:"item_code" json:"itemCode"`
	NameES           string              `db:"name_es" json:"nameEs"`
	NameEN           string              `db:"name_en" json:"nameEn"`
	DescriptionES    string              `db:"description_es" json:"descriptionEs"`
	DescriptionEN    string              `db:"description_en" json:"descriptionEn"`
	CategoryES       string              `db:"category_es" json:"categoryEs"`
	CategoryEN       string              `db:"category_en" json:"categoryEn"`
	Price            decimal.Decimal     `db:"price" json:"price"`
	PriceUSD         decimal.NullDecimal `db:"price_usd" json:"priceUsd"`
	Stock            int                 `db:"stock" json:"stock"`
	Status           ProductStatus       `db:"status" json:"status"`
	Tags             string              `db:"tags" json:"tags"`
	Dimensions       string              `db:"dimensions" json:"dimensions"`
	Material         string              `db:"material" json:"material"`
	Warranty         string              `db:"warranty" json:"warranty"`
	ImageURL         string              `db:"image_url" json:"imageUrl"`
	FilterCategoryID *int                `db:"filter_category_id" json:"filterCategoryId,omitempty"`
	CreatedAt        time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updatedAt"`
}

// DisplayName returns the Spanish name, falling back to English.
func (p *Product) DisplayName() string {
	if p.NameES != "" {
		return p.NameES
	}
	return p.NameEN
}
