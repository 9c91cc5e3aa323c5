package models

import "time"

type BlogStatus string

const (
	BlogDraft     BlogStatus = "draft"
	BlogPublished BlogStatus = "published"
	BlogScheduled BlogStatus = "scheduled"
	BlogArchived  BlogStatus = "archived"
)

// ValidBlogStatus reports whether s is a known post status.
func ValidBlogStatus(s string) bool {
	switch BlogStatus(s) {
	case BlogDraft, BlogPublished, BlogScheduled, BlogArchived:
		return true
	}
	return false
}

type BlogPost struct {
	ID            int        `db:"id" json:"id"`
	Slug          string     `db:"slug" json:"slug"`
	TitleES       string     `db:"title_es" json:"titleEs"`
	TitleEN       string     `db:"title_en" json:"titleEn"`
	ExcerptES     string     `db:"excerpt_es" json:"excerptEs"`
	ExcerptEN     string     `db:"excerpt_en" json:"excerptEn"`
	ContentES     string     `db:"content_es" json:"contentEs"`
	ContentEN     string     `db:"content_en" json:"contentEn"`
	CoverImageURL string     `db:"cover_image_url" json:"coverImageUrl"`
	Author        string     `db:"author" json:"author"`
	Status        BlogStatus `db:"status" json:"status"`
	PublishedAt   *time.Time `db:"published_at" json:"publishedAt,omitempty"`
	ScheduledFor  *time.Time `db:"scheduled_for" json:"scheduledFor,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}
