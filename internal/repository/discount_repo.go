package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

// DiscountRepository handles discount codes and their usage records.
type DiscountRepository struct {
	db *sqlx.DB
}

func NewDiscountRepository(db *sqlx.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// GetByCode looks the code up case-insensitively.
func (r *DiscountRepository) GetByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var d models.DiscountCode
	err := r.db.GetContext(ctx, &d, `SELECT * FROM discount_codes WHERE UPPER(code) = UPPER($1)`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrDiscountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DiscountRepository) GetByID(ctx context.Context, id int) (*models.DiscountCode, error) {
	var d models.DiscountCode
	err := r.db.GetContext(ctx, &d, `SELECT * FROM discount_codes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrDiscountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DiscountRepository) List(ctx context.Context, page, limit int) ([]models.DiscountCode, int, error) {
	_, limit, offset := pageOffset(page, limit)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM discount_codes`); err != nil {
		return nil, 0, err
	}
	codes := []models.DiscountCode{}
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM discount_codes ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

const discountColumns = `code, description, discount_type, value, min_purchase_amount, max_discount_amount,
            usage_limit, start_date, end_date, is_active, applicable_product_ids`

// Create inserts the code. A taken code returns ErrDuplicateCode.
func (r *DiscountRepository) Create(ctx context.Context, d *models.DiscountCode) error {
	q := `INSERT INTO discount_codes (` + discountColumns + `)
        VALUES (:code, :description, :discount_type, :value, :min_purchase_amount, :max_discount_amount,
            :usage_limit, :start_date, :end_date, :is_active, :applicable_product_ids)
        RETURNING id, usage_count, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, d)
	if isUniqueViolation(err) {
		return utils.ErrDuplicateCode
	}
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&d.ID, &d.UsageCount, &d.CreatedAt, &d.UpdatedAt)
	}
	return rows.Err()
}

func (r *DiscountRepository) Update(ctx context.Context, d *models.DiscountCode) error {
	const q = `
        UPDATE discount_codes SET code = :code, description = :description, discount_type = :discount_type,
            value = :value, min_purchase_amount = :min_purchase_amount, max_discount_amount = :max_discount_amount,
            usage_limit = :usage_limit, start_date = :start_date, end_date = :end_date, is_active = :is_active,
            applicable_product_ids = :applicable_product_ids, updated_at = NOW()
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, q, d)
	if isUniqueViolation(err) {
		return utils.ErrDuplicateCode
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrDiscountNotFound
	}
	return nil
}

func (r *DiscountRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM discount_codes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrDiscountNotFound
	}
	return nil
}

// ListUsages returns the redemptions of a code, newest first.
func (r *DiscountRepository) ListUsages(ctx context.Context, codeID int) ([]models.DiscountCodeUsage, error) {
	usages := []models.DiscountCodeUsage{}
	err := r.db.SelectContext(ctx, &usages, `
		SELECT * FROM discount_code_usages WHERE discount_code_id = $1 ORDER BY created_at DESC`, codeID)
	if err != nil {
		return nil, err
	}
	return usages, nil
}
