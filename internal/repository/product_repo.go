package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

// ProductFilter narrows admin product listings. Empty fields are ignored.
type ProductFilter struct {
	Category string
	Search   string
	Status   string
	Page     int
	Limit    int
}

// ProductRepository handles data access for the local product mirror.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListAll returns every product row ordered by name.
func (r *ProductRepository) ListAll(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, `SELECT * FROM products ORDER BY name_es`); err != nil {
		return nil, err
	}
	return products, nil
}

// ListPaged returns products matching f and the total count.
// Category matches either language; search is ILIKE on names and item code.
func (r *ProductRepository) ListPaged(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	_, limit, offset := pageOffset(f.Page, f.Limit)

	const baseWhere = `WHERE ($1 = '' OR category_es = $1 OR category_en = $1)
        AND ($2 = '' OR name_es ILIKE '%' || $2 || '%' OR name_en ILIKE '%' || $2 || '%' OR item_code ILIKE '%' || $2 || '%')
        AND ($3 = '' OR status = $3)`

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM products `+baseWhere, f.Category, f.Search, f.Status); err != nil {
		return nil, 0, err
	}

	products := []models.Product{}
	listQuery := `SELECT * FROM products ` + baseWhere + `
        ORDER BY name_es LIMIT $4 OFFSET $5`
	if err := r.db.SelectContext(ctx, &products, listQuery, f.Category, f.Search, f.Status, limit, offset); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetByID returns ErrProductNotFound when no row matches.
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	err := r.db.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByItemCode returns ErrProductNotFound when no row matches.
func (r *ProductRepository) GetByItemCode(ctx context.Context, code string) (*models.Product, error) {
	var p models.Product
	err := r.db.GetContext(ctx, &p, `SELECT * FROM products WHERE item_code = $1 ORDER BY id LIMIT 1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns the rows that exist among ids, in no particular order.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int) ([]models.Product, error) {
	products := []models.Product{}
	if len(ids) == 0 {
		return products, nil
	}
	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	if err := r.db.SelectContext(ctx, &products, `SELECT * FROM products WHERE id = ANY($1)`, arr); err != nil {
		return nil, err
	}
	return products, nil
}

// ListByERPIDs returns local rows linked to the given ERP ids.
func (r *ProductRepository) ListByERPIDs(ctx context.Context, erpIDs []string) ([]models.Product, error) {
	products := []models.Product{}
	if len(erpIDs) == 0 {
		return products, nil
	}
	if err := r.db.SelectContext(ctx, &products, `SELECT * FROM products WHERE erp_id = ANY($1)`, pq.StringArray(erpIDs)); err != nil {
		return nil, err
	}
	return products, nil
}

// Create inserts p, assigning a UUID when missing.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.ProductActive
	}
	const q = `
        INSERT INTO products (uuid, erp_id, item_code, name_es, name_en, description_es, description_en,
            category_es, category_en, price, price_usd, stock, status, tags, dimensions, material,
            warranty, image_url, filter_category_id)
        VALUES (:uuid, :erp_id, :item_code, :name_es, :name_en, :description_es, :description_en,
            :category_es, :category_en, :price, :price_usd, :stock, :status, :tags, :dimensions, :material,
            :warranty, :image_url, :filter_category_id)
        RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, p)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	}
	return rows.Err()
}

// Update writes every editable column of p.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	const q = `
        UPDATE products SET erp_id = :erp_id, item_code = :item_code, name_es = :name_es, name_en = :name_en,
            description_es = :description_es, description_en = :description_en, category_es = :category_es,
            category_en = :category_en, price = :price, price_usd = :price_usd, stock = :stock, status = :status,
            tags = :tags, dimensions = :dimensions, material = :material, warranty = :warranty,
            image_url = :image_url, filter_category_id = :filter_category_id, updated_at = NOW()
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, q, p)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}

// UpsertByItemCode updates the row with p.ItemCode or inserts a new one.
// It reports whether a row was created.
func (r *ProductRepository) UpsertByItemCode(ctx context.Context, p *models.Product) (bool, error) {
	existing, err := r.GetByItemCode(ctx, p.ItemCode)
	if errors.Is(err, utils.ErrProductNotFound) {
		return true, r.Create(ctx, p)
	}
	if err != nil {
		return false, err
	}
	p.ID = existing.ID
	p.UUID = existing.UUID
	if p.ERPID == nil {
		p.ERPID = existing.ERPID
	}
	if p.ImageURL == "" {
		p.ImageURL = existing.ImageURL
	}
	if p.FilterCategoryID == nil {
		p.FilterCategoryID = existing.FilterCategoryID
	}
	return false, r.Update(ctx, p)
}

// UpsertByERPID inserts or refreshes the mirror row for p.ERPID. Only the
// ERP-owned columns are overwritten on conflict; translations, dimensions and
// the filter category stay as edited locally. It reports whether a row was
// created and fills p.ID, p.UUID and the timestamps.
func (r *ProductRepository) UpsertByERPID(ctx context.Context, p *models.Product) (bool, error) {
	if p.ERPID == nil || *p.ERPID == "" {
		return false, errors.New("upsert by erp id: missing erp id")
	}
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	const q = `
        INSERT INTO products (uuid, erp_id, item_code, name_es, description_es, category_es,
            price, price_usd, stock, status, tags)
        VALUES (:uuid, :erp_id, :item_code, :name_es, :description_es, :category_es,
            :price, :price_usd, :stock, :status, :tags)
        ON CONFLICT (erp_id) DO UPDATE SET
            item_code = EXCLUDED.item_code, name_es = EXCLUDED.name_es,
            price = EXCLUDED.price, price_usd = COALESCE(EXCLUDED.price_usd, products.price_usd),
            stock = EXCLUDED.stock, status = EXCLUDED.status, updated_at = NOW()
        RETURNING id, uuid, created_at, updated_at, (xmax = 0) AS inserted`
	rows, err := r.db.NamedQueryContext(ctx, q, p)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	var created bool
	if rows.Next() {
		if err := rows.Scan(&p.ID, &p.UUID, &p.CreatedAt, &p.UpdatedAt, &created); err != nil {
			return false, err
		}
		return created, nil
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return false, sql.ErrNoRows
}
