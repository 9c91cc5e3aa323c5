package service

import (
	"context"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/filtrotek/storefront/internal/models"
)

var sitemapLocales = []string{"es", "en"}

// Storefront pages that always exist.
var staticPages = []string{"", "productos", "categorias", "blog", "nosotros", "contacto", "preguntas-frecuentes", "envios", "privacidad", "terminos"}

type sitemapProducts interface {
	ListAll(ctx context.Context) ([]models.Product, error)
}

type sitemapPosts interface {
	ListAllPublished(ctx context.Context) ([]models.BlogPost, error)
}

type sitemapCategories interface {
	List(ctx context.Context, includeInactive bool) ([]models.FilterCategory, error)
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// SitemapService renders sitemap.xml for both storefront languages.
type SitemapService struct {
	baseURL    string
	products   sitemapProducts
	posts      sitemapPosts
	categories sitemapCategories
}

// NewSitemapService creates a SitemapService rooted at baseURL.
func NewSitemapService(baseURL string, products sitemapProducts, posts sitemapPosts, categories sitemapCategories) *SitemapService {
	return &SitemapService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		products:   products,
		posts:      posts,
		categories: categories,
	}
}

// Generate returns the sitemap document.
func (s *SitemapService) Generate(ctx context.Context) ([]byte, error) {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListAllPublished(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx, false)
	if err != nil {
		return nil, err
	}

	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, lang := range sitemapLocales {
		for _, page := range staticPages {
			priority := "0.5"
			if page == "" {
				priority = "1.0"
			}
			set.URLs = append(set.URLs, sitemapURL{Loc: s.loc(lang, page), ChangeFreq: "weekly", Priority: priority})
		}
		for _, p := range products {
			if p.Status != models.ProductActive {
				continue
			}
			set.URLs = append(set.URLs, sitemapURL{
				Loc:        s.loc(lang, "productos/"+strconv.Itoa(p.ID)),
				LastMod:    lastMod(p.UpdatedAt),
				ChangeFreq: "daily",
				Priority:   "0.8",
			})
		}
		for _, c := range categories {
			set.URLs = append(set.URLs, sitemapURL{
				Loc:        s.loc(lang, "categorias/"+c.Slug),
				LastMod:    lastMod(c.UpdatedAt),
				ChangeFreq: "weekly",
				Priority:   "0.7",
			})
		}
		for _, p := range posts {
			set.URLs = append(set.URLs, sitemapURL{
				Loc:        s.loc(lang, "blog/"+p.Slug),
				LastMod:    lastMod(p.UpdatedAt),
				ChangeFreq: "monthly",
				Priority:   "0.6",
			})
		}
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func (s *SitemapService) loc(lang, path string) string {
	if path == "" {
		return s.baseURL + "/" + lang
	}
	return s.baseURL + "/" + lang + "/" + path
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
