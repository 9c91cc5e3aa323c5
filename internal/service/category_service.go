package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

// CategoryStore persists filter categories and their size variants.
type CategoryStore interface {
	List(ctx context.Context, includeInactive bool) ([]models.FilterCategory, error)
	GetBySlug(ctx context.Context, slug string) (*models.FilterCategory, error)
	GetByID(ctx context.Context, id int) (*models.FilterCategory, error)
	Create(ctx context.Context, c *models.FilterCategory) error
	Update(ctx context.Context, c *models.FilterCategory) error
	Delete(ctx context.Context, id int) error
	GetVariant(ctx context.Context, id int) (*models.FilterCategoryVariant, error)
	CreateVariant(ctx context.Context, v *models.FilterCategoryVariant) error
	UpdateVariant(ctx context.Context, v *models.FilterCategoryVariant) error
	DeleteVariant(ctx context.Context, id int) error
}

// CategoryRequest is the admin create/update body.
type CategoryRequest struct {
	Slug          string `json:"slug" binding:"max=150"`
	NameES        string `json:"nameEs" binding:"required,max=150"`
	NameEN        string `json:"nameEn" binding:"max=150"`
	DescriptionES string `json:"descriptionEs"`
	DescriptionEN string `json:"descriptionEn"`
	ImageURL      string `json:"imageUrl"`
	Status        string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// VariantRequest is the admin body for a category size.
type VariantRequest struct {
	Size     string          `json:"size" binding:"required,max=50"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency" binding:"omitempty,oneof=MXN USD"`
	ERPCode  string          `json:"erpCode" binding:"max=100"`
}

// CategoryService manages filter categories.
type CategoryService struct {
	store CategoryStore
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

// ListPublic returns active categories with their variants.
func (s *CategoryService) ListPublic(ctx context.Context) ([]models.FilterCategory, error) {
	return s.store.List(ctx, false)
}

// ListAll includes inactive categories.
func (s *CategoryService) ListAll(ctx context.Context) ([]models.FilterCategory, error) {
	return s.store.List(ctx, true)
}

// GetBySlug hides inactive categories from the storefront.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*models.FilterCategory, error) {
	c, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if c.Status != "active" {
		return nil, utils.ErrCategoryNotFound
	}
	return c, nil
}

func (s *CategoryService) Get(ctx context.Context, id int) (*models.FilterCategory, error) {
	return s.store.GetByID(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, req *CategoryRequest) (*models.FilterCategory, error) {
	c := &models.FilterCategory{}
	applyCategoryRequest(c, req)
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id int, req *CategoryRequest) (*models.FilterCategory, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyCategoryRequest(c, req)
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id int) error {
	return s.store.Delete(ctx, id)
}

// AddVariant creates a size under category id.
func (s *CategoryService) AddVariant(ctx context.Context, categoryID int, req *VariantRequest) (*models.FilterCategoryVariant, error) {
	if _, err := s.store.GetByID(ctx, categoryID); err != nil {
		return nil, err
	}
	v := &models.FilterCategoryVariant{CategoryID: categoryID}
	if err := applyVariantRequest(v, req); err != nil {
		return nil, err
	}
	if err := s.store.CreateVariant(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *CategoryService) UpdateVariant(ctx context.Context, id int, req *VariantRequest) (*models.FilterCategoryVariant, error) {
	v, err := s.store.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyVariantRequest(v, req); err != nil {
		return nil, err
	}
	if err := s.store.UpdateVariant(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *CategoryService) DeleteVariant(ctx context.Context, id int) error {
	return s.store.DeleteVariant(ctx, id)
}

func applyCategoryRequest(c *models.FilterCategory, req *CategoryRequest) {
	c.Slug = utils.Slugify(req.Slug)
	if c.Slug == "" {
		c.Slug = utils.Slugify(req.NameES)
	}
	c.NameES = req.NameES
	c.NameEN = req.NameEN
	c.DescriptionES = req.DescriptionES
	c.DescriptionEN = req.DescriptionEN
	c.ImageURL = req.ImageURL
	if req.Status != "" {
		c.Status = req.Status
	}
}

func applyVariantRequest(v *models.FilterCategoryVariant, req *VariantRequest) error {
	if req.Price.IsNegative() {
		return &utils.ValidationError{Fields: map[string]string{"price": "no puede ser negativo"}}
	}
	v.Size = strings.TrimSpace(req.Size)
	v.Price = req.Price.Round(2)
	v.Currency = strings.ToUpper(req.Currency)
	if v.Currency == "" {
		v.Currency = "MXN"
	}
	v.ERPCode = req.ERPCode
	return nil
}
