package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/repository"
	"github.com/filtrotek/storefront/internal/utils"
	"github.com/filtrotek/storefront/pkg/erp"
)

// ERPProductWriter is the write side of the ERP product API.
type ERPProductWriter interface {
	CreateProduct(ctx context.Context, in *erp.ProductInput) (*erp.Product, error)
	UpdateProduct(ctx context.Context, id string, in *erp.ProductInput) (*erp.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ProductStore is the local product table.
type ProductStore interface {
	ListPaged(ctx context.Context, f repository.ProductFilter) ([]models.Product, int, error)
	GetByID(ctx context.Context, id int) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int) error
}

type catalogInvalidator interface {
	Invalidate()
}

// ProductRequest is the admin create/update body.
type ProductRequest struct {
	ItemCode         string           `json:"itemCode" binding:"required,max=100"`
	NameES           string           `json:"nameEs" binding:"required,max=255"`
	NameEN           string           `json:"nameEn" binding:"max=255"`
	DescriptionES    string           `json:"descriptionEs"`
	DescriptionEN    string           `json:"descriptionEn"`
	CategoryES       string           `json:"categoryEs" binding:"max=150"`
	CategoryEN       string           `json:"categoryEn" binding:"max=150"`
	Price            decimal.Decimal  `json:"price"`
	PriceUSD         *decimal.Decimal `json:"priceUsd"`
	Stock            int              `json:"stock" binding:"gte=0"`
	Status           string           `json:"status" binding:"omitempty,oneof=active inactive draft"`
	Tags             string           `json:"tags"`
	Dimensions       string           `json:"dimensions"`
	Material         string           `json:"material"`
	Warranty         string           `json:"warranty"`
	ImageURL         string           `json:"imageUrl"`
	FilterCategoryID *int             `json:"filterCategoryId"`
}

// ProductManagementService handles admin product CRUD. Writes go to the ERP
// first; the local row is only changed once the ERP accepted them.
type ProductManagementService struct {
	erp       ERPProductWriter
	products  ProductStore
	catalog   catalogInvalidator
	inventory inventoryPusher
}

// NewProductManagementService constructs a ProductManagementService. A nil
// writer manages local rows only.
func NewProductManagementService(writer ERPProductWriter, products ProductStore, catalog catalogInvalidator, inventory inventoryPusher) *ProductManagementService {
	return &ProductManagementService{
		erp:       writer,
		products:  products,
		catalog:   catalog,
		inventory: inventory,
	}
}

// List returns local products for the back-office.
func (s *ProductManagementService) List(ctx context.Context, f repository.ProductFilter) ([]models.Product, int, error) {
	return s.products.ListPaged(ctx, f)
}

// Get returns one local product.
func (s *ProductManagementService) Get(ctx context.Context, id int) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

// Create registers the product in the ERP and then mirrors it locally.
func (s *ProductManagementService) Create(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	p := &models.Product{}
	if err := applyProductRequest(p, req); err != nil {
		return nil, err
	}

	if s.erp != nil {
		ep, err := s.erp.CreateProduct(ctx, erpInput(p))
		if err != nil {
			return nil, upstream("erp", err)
		}
		p.ERPID = &ep.ID
	}

	if err := s.products.Create(ctx, p); err != nil {
		if p.ERPID != nil {
			log.Error().Err(err).Str("erp_id", *p.ERPID).Str("item_code", p.ItemCode).
				Msg("Product created in ERP but local insert failed")
		}
		return nil, err
	}
	s.catalog.Invalidate()

	log.Info().Int("product_id", p.ID).Str("item_code", p.ItemCode).Msg("Product created")
	return p, nil
}

// Update changes the product in the ERP, creating it there if it was never
// linked, then updates the local row. A stock change is pushed as a delta.
func (s *ProductManagementService) Update(ctx context.Context, id int, req *ProductRequest) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousStock := p.Stock
	if err := applyProductRequest(p, req); err != nil {
		return nil, err
	}

	if s.erp != nil {
		if p.ERPID == nil || *p.ERPID == "" {
			ep, err := s.erp.CreateProduct(ctx, erpInput(p))
			if err != nil {
				return nil, upstream("erp", err)
			}
			p.ERPID = &ep.ID
		} else if _, err := s.erp.UpdateProduct(ctx, *p.ERPID, erpInput(p)); err != nil {
			return nil, upstream("erp", err)
		}
	}

	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.catalog.Invalidate()

	if delta := p.Stock - previousStock; delta != 0 && p.ERPID != nil {
		pid := p.ID
		s.inventory.Push(ctx, []InventoryChange{{
			ProductID: &pid,
			ERPID:     *p.ERPID,
			Delta:     delta,
			Reason:    "admin_adjustment",
			Reference: "product:" + itoa(p.ID),
		}})
	}
	return p, nil
}

// Delete removes the product from the ERP, then locally. A product the ERP
// no longer knows is still deleted locally.
func (s *ProductManagementService) Delete(ctx context.Context, id int) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.erp != nil && p.ERPID != nil && *p.ERPID != "" {
		if err := s.erp.DeleteProduct(ctx, *p.ERPID); err != nil && !errors.Is(err, erp.ErrNotFound) {
			return upstream("erp", err)
		}
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.catalog.Invalidate()
	log.Info().Int("product_id", id).Str("item_code", p.ItemCode).Msg("Product deleted")
	return nil
}

func applyProductRequest(p *models.Product, req *ProductRequest) error {
	fields := map[string]string{}
	if !req.Price.IsPositive() {
		fields["price"] = "debe ser mayor a 0"
	}
	if req.PriceUSD != nil && req.PriceUSD.IsNegative() {
		fields["priceUsd"] = "no puede ser negativo"
	}
	if len(fields) > 0 {
		return &utils.ValidationError{Fields: fields}
	}

	p.ItemCode = strings.TrimSpace(req.ItemCode)
	p.NameES = req.NameES
	p.NameEN = req.NameEN
	p.DescriptionES = req.DescriptionES
	p.DescriptionEN = req.DescriptionEN
	p.CategoryES = req.CategoryES
	p.CategoryEN = req.CategoryEN
	p.Price = req.Price.Round(2)
	p.PriceUSD = nullDecimal(req.PriceUSD)
	p.Stock = req.Stock
	if req.Status != "" {
		p.Status = models.ProductStatus(req.Status)
	}
	if p.Status == "" {
		p.Status = models.ProductActive
	}
	p.Tags = req.Tags
	p.Dimensions = req.Dimensions
	p.Material = req.Material
	p.Warranty = req.Warranty
	p.ImageURL = req.ImageURL
	p.FilterCategoryID = req.FilterCategoryID
	return nil
}

func erpInput(p *models.Product) *erp.ProductInput {
	price, _ := p.Price.Float64()
	in := &erp.ProductInput{
		Code:        p.ItemCode,
		Title:       p.NameES,
		Description: p.DescriptionES,
		Category:    p.CategoryES,
		Price:       price,
		Active:      p.Status == models.ProductActive,
		Tags:        p.Tags,
	}
	if p.PriceUSD.Valid {
		in.PriceUSD, _ = p.PriceUSD.Decimal.Float64()
	}
	return in
}
