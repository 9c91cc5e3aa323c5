package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

type BlogRepository struct {
	db *sqlx.DB
}

func NewBlogRepository(db *sqlx.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

// List returns posts filtered by status (empty = all) with the total count.
func (r *BlogRepository) List(ctx context.Context, status string, page, limit int) ([]models.BlogPost, int, error) {
	_, limit, offset := pageOffset(page, limit)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(1) FROM blog_posts WHERE ($1 = '' OR status = $1)`, status); err != nil {
		return nil, 0, err
	}
	posts := []models.BlogPost{}
	err := r.db.SelectContext(ctx, &posts, `
		SELECT * FROM blog_posts
		WHERE ($1 = '' OR status = $1)
		ORDER BY COALESCE(published_at, created_at) DESC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListAllPublished returns every published post, for the sitemap.
func (r *BlogRepository) ListAllPublished(ctx context.Context) ([]models.BlogPost, error) {
	posts := []models.BlogPost{}
	err := r.db.SelectContext(ctx, &posts, `
		SELECT * FROM blog_posts WHERE status = 'published' ORDER BY published_at DESC`)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *BlogRepository) GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	var p models.BlogPost
	err := r.db.GetContext(ctx, &p, `SELECT * FROM blog_posts WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *BlogRepository) GetByID(ctx context.Context, id int) (*models.BlogPost, error) {
	var p models.BlogPost
	err := r.db.GetContext(ctx, &p, `SELECT * FROM blog_posts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *BlogRepository) Create(ctx context.Context, p *models.BlogPost) error {
	const q = `
        INSERT INTO blog_posts (slug, title_es, title_en, excerpt_es, excerpt_en, content_es, content_en,
            cover_image_url, author, status, published_at, scheduled_for)
        VALUES (:slug, :title_es, :title_en, :excerpt_es, :excerpt_en, :content_es, :content_en,
            :cover_image_url, :author, :status, :published_at, :scheduled_for)
        RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, p)
	if isUniqueViolation(err) {
		return utils.ErrDuplicateSlug
	}
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		return rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	}
	return rows.Err()
}

func (r *BlogRepository) Update(ctx context.Context, p *models.BlogPost) error {
	const q = `
        UPDATE blog_posts SET slug = :slug, title_es = :title_es, title_en = :title_en, excerpt_es = :excerpt_es,
            excerpt_en = :excerpt_en, content_es = :content_es, content_en = :content_en,
            cover_image_url = :cover_image_url, author = :author, status = :status,
            published_at = :published_at, scheduled_for = :scheduled_for, updated_at = NOW()
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, q, p)
	if isUniqueViolation(err) {
		return utils.ErrDuplicateSlug
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrPostNotFound
	}
	return nil
}

func (r *BlogRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrPostNotFound
	}
	return nil
}

// PublishDue publishes scheduled posts whose time has come and returns
// their slugs.
func (r *BlogRepository) PublishDue(ctx context.Context, now time.Time) ([]string, error) {
	var slugs []string
	err := r.db.SelectContext(ctx, &slugs, `
		UPDATE blog_posts
		SET status = 'published', published_at = scheduled_for, updated_at = NOW()
		WHERE status = 'scheduled' AND scheduled_for <= $1
		RETURNING slug`, now)
	return slugs, err
}
