package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

// BlogStore persists blog posts.
type BlogStore interface {
	List(ctx context.Context, status string, page, limit int) ([]models.BlogPost, int, error)
	GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	GetByID(ctx context.Context, id int) (*models.BlogPost, error)
	Create(ctx context.Context, p *models.BlogPost) error
	Update(ctx context.Context, p *models.BlogPost) error
	Delete(ctx context.Context, id int) error
	PublishDue(ctx context.Context, now time.Time) ([]string, error)
}

// BlogPostRequest is the admin create/update body.
type BlogPostRequest struct {
	Slug          string     `json:"slug" binding:"max=200"`
	TitleES       string     `json:"titleEs" binding:"required,max=255"`
	TitleEN       string     `json:"titleEn" binding:"max=255"`
	ExcerptES     string     `json:"excerptEs"`
	ExcerptEN     string     `json:"excerptEn"`
	ContentES     string     `json:"contentEs" binding:"required"`
	ContentEN     string     `json:"contentEn"`
	CoverImageURL string     `json:"coverImageUrl"`
	Author        string     `json:"author" binding:"max=120"`
	Status        string     `json:"status" binding:"omitempty,oneof=draft published scheduled archived"`
	ScheduledFor  *time.Time `json:"scheduledFor"`
}

// BlogService manages posts and publishes scheduled ones.
type BlogService struct {
	store BlogStore
	clock utils.Clock
}

// NewBlogService creates a BlogService.
func NewBlogService(store BlogStore, clock utils.Clock) *BlogService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &BlogService{store: store, clock: clock}
}

// ListPublished returns published posts, newest first.
func (s *BlogService) ListPublished(ctx context.Context, page, limit int) ([]models.BlogPost, int, error) {
	return s.store.List(ctx, string(models.BlogPublished), page, limit)
}

// GetPublished hides drafts and scheduled posts from readers.
func (s *BlogService) GetPublished(ctx context.Context, slug string) (*models.BlogPost, error) {
	p, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p.Status != models.BlogPublished {
		return nil, utils.ErrPostNotFound
	}
	return p, nil
}

func (s *BlogService) List(ctx context.Context, status string, page, limit int) ([]models.BlogPost, int, error) {
	return s.store.List(ctx, status, page, limit)
}

func (s *BlogService) Get(ctx context.Context, id int) (*models.BlogPost, error) {
	return s.store.GetByID(ctx, id)
}

func (s *BlogService) Create(ctx context.Context, req *BlogPostRequest) (*models.BlogPost, error) {
	p := &models.BlogPost{}
	if err := s.apply(p, req); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BlogService) Update(ctx context.Context, id int, req *BlogPostRequest) (*models.BlogPost, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(p, req); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BlogService) Delete(ctx context.Context, id int) error {
	return s.store.Delete(ctx, id)
}

// PublishDue publishes scheduled posts whose time has passed.
func (s *BlogService) PublishDue(ctx context.Context) (int, error) {
	slugs, err := s.store.PublishDue(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, slug := range slugs {
		log.Info().Str("slug", slug).Msg("Scheduled post published")
	}
	return len(slugs), nil
}

// apply copies req onto p. Publishing stamps published_at once; scheduling
// requires a date.
func (s *BlogService) apply(p *models.BlogPost, req *BlogPostRequest) error {
	status := models.BlogStatus(req.Status)
	if status == "" {
		status = models.BlogDraft
	}
	if status == models.BlogScheduled && req.ScheduledFor == nil {
		return &utils.ValidationError{Fields: map[string]string{"scheduledFor": "es requerido para publicaciones programadas"}}
	}

	p.Slug = utils.Slugify(req.Slug)
	if p.Slug == "" {
		p.Slug = utils.Slugify(req.TitleES)
	}
	p.TitleES = req.TitleES
	p.TitleEN = req.TitleEN
	p.ExcerptES = req.ExcerptES
	p.ExcerptEN = req.ExcerptEN
	p.ContentES = req.ContentES
	p.ContentEN = req.ContentEN
	p.CoverImageURL = req.CoverImageURL
	p.Author = req.Author
	p.Status = status

	switch status {
	case models.BlogPublished:
		if p.PublishedAt == nil {
			now := s.clock.Now()
			p.PublishedAt = &now
		}
		p.ScheduledFor = nil
	case models.BlogScheduled:
		p.ScheduledFor = req.ScheduledFor
		p.PublishedAt = nil
	default:
		p.ScheduledFor = req.ScheduledFor
	}
	return nil
}
