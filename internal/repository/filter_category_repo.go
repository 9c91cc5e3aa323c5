package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

// FilterCategoryRepository handles filter categories and their size variants.
type FilterCategoryRepository struct {
	db *sqlx.DB
}

func NewFilterCategoryRepository(db *sqlx.DB) *FilterCategoryRepository {
	return &FilterCategoryRepository{db: db}
}

// List returns categories with their variants. Inactive ones are skipped
// unless includeInactive is set.
func (r *FilterCategoryRepository) List(ctx context.Context, includeInactive bool) ([]models.FilterCategory, error) {
	cats := []models.FilterCategory{}
	err := r.db.SelectContext(ctx, &cats, `
		SELECT * FROM filter_categories
		WHERE $1 OR status = 'active'
		ORDER BY name_es`, includeInactive)
	if err != nil {
		return nil, err
	}
	if err := r.attachVariants(ctx, cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *FilterCategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.FilterCategory, error) {
	return r.getOne(ctx, `SELECT * FROM filter_categories WHERE slug = $1`, slug)
}

func (r *FilterCategoryRepository) GetByID(ctx context.Context, id int) (*models.FilterCategory, error) {
	return r.getOne(ctx, `SELECT * FROM filter_categories WHERE id = $1`, id)
}

func (r *FilterCategoryRepository) getOne(ctx context.Context, q string, arg interface{}) (*models.FilterCategory, error) {
	var cat models.FilterCategory
	err := r.db.GetContext(ctx, &cat, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	cats := []models.FilterCategory{cat}
	if err := r.attachVariants(ctx, cats); err != nil {
		return nil, err
	}
	return &cats[0], nil
}

func (r *FilterCategoryRepository) attachVariants(ctx context.Context, cats []models.FilterCategory) error {
	if len(cats) == 0 {
		return nil
	}
	ids := make(pq.Int64Array, len(cats))
	index := make(map[int]int, len(cats))
	for i, c := range cats {
		ids[i] = int64(c.ID)
		index[c.ID] = i
	}
	var variants []models.FilterCategoryVariant
	err := r.db.SelectContext(ctx, &variants, `
		SELECT * FROM filter_category_variants
		WHERE category_id = ANY($1)
		ORDER BY category_id, id`, ids)
	if err != nil {
		return err
	}
	for _, v := range variants {
		i := index[v.CategoryID]
		cats[i].Variants = append(cats[i].Variants, v)
	}
	return nil
}

// Create inserts the category. A taken slug returns ErrDuplicateSlug.
func (r *FilterCategoryRepository) Create(ctx context.Context, c *models.FilterCategory) error {
	if c.Status == "" {
		c.Status = "active"
	}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO filter_categories (slug, name_es, name_en, description_es, description_en, image_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		c.Slug, c.NameES, c.NameEN, c.DescriptionES, c.DescriptionEN, c.ImageURL, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return utils.ErrDuplicateSlug
	}
	return err
}

func (r *FilterCategoryRepository) Update(ctx context.Context, c *models.FilterCategory) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE filter_categories
		SET slug = $1, name_es = $2, name_en = $3, description_es = $4, description_en = $5,
		    image_url = $6, status = $7, updated_at = NOW()
		WHERE id = $8`,
		c.Slug, c.NameES, c.NameEN, c.DescriptionES, c.DescriptionEN, c.ImageURL, c.Status, c.ID)
	if isUniqueViolation(err) {
		return utils.ErrDuplicateSlug
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrCategoryNotFound
	}
	return nil
}

// Delete removes the category; its variants go with it.
func (r *FilterCategoryRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM filter_categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrCategoryNotFound
	}
	return nil
}

func (r *FilterCategoryRepository) GetVariant(ctx context.Context, id int) (*models.FilterCategoryVariant, error) {
	var v models.FilterCategoryVariant
	err := r.db.GetContext(ctx, &v, `SELECT * FROM filter_category_variants WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *FilterCategoryRepository) CreateVariant(ctx context.Context, v *models.FilterCategoryVariant) error {
	if v.Currency == "" {
		v.Currency = "MXN"
	}
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO filter_category_variants (category_id, size, price, currency, erp_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		v.CategoryID, v.Size, v.Price, v.Currency, v.ERPCode,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

func (r *FilterCategoryRepository) UpdateVariant(ctx context.Context, v *models.FilterCategoryVariant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE filter_category_variants
		SET size = $1, price = $2, currency = $3, erp_code = $4, updated_at = NOW()
		WHERE id = $5`,
		v.Size, v.Price, v.Currency, v.ERPCode, v.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrVariantNotFound
	}
	return nil
}

func (r *FilterCategoryRepository) DeleteVariant(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM filter_category_variants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrVariantNotFound
	}
	return nil
}

// UpsertBySlug updates the category with c.Slug or inserts it, reporting
// whether a row was created.
func (r *FilterCategoryRepository) UpsertBySlug(ctx context.Context, c *models.FilterCategory) (bool, error) {
	var created bool
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO filter_categories (slug, name_es, name_en, description_es, description_en, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		ON CONFLICT (slug) DO UPDATE SET
		    name_es = EXCLUDED.name_es,
		    name_en = EXCLUDED.name_en,
		    description_es = EXCLUDED.description_es,
		    description_en = EXCLUDED.description_en,
		    updated_at = NOW()
		RETURNING id, (xmax = 0) AS created`,
		c.Slug, c.NameES, c.NameEN, c.DescriptionES, c.DescriptionEN,
	).Scan(&c.ID, &created)
	return created, err
}

// UpsertVariant matches an existing variant by category and size.
func (r *FilterCategoryRepository) UpsertVariant(ctx context.Context, v *models.FilterCategoryVariant) (bool, error) {
	var id int
	err := r.db.GetContext(ctx, &id, `
		SELECT id FROM filter_category_variants WHERE category_id = $1 AND size = $2 LIMIT 1`,
		v.CategoryID, v.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return true, r.CreateVariant(ctx, v)
	}
	if err != nil {
		return false, err
	}
	v.ID = id
	if v.Currency == "" {
		v.Currency = "MXN"
	}
	return false, r.UpdateVariant(ctx, v)
}
