package api

import (
	"context"

	"github.com/superman-links/links-bridge/app/builder"
	"github.com/superman-links/links-bridge/app/bulk"
	"github.com/superman-links/links-bridge/app/database"
	"github.com/superman-links/links-bridge/app/metrics"
	"github.com/superman-links/links-bridge/app/release"
	"github.com/superman-links/links-bridge/app/seo"
)

const (
	Namespace = "superman-links/v1"
	KeyHeader = "X-Superman-Links-Key"

	pluginName = "Superman Links"

	defaultPerPage = 100
	maxPerPage     = 500
)

// SiteInfo is what the API needs to know about the host site.
type SiteInfo interface {
	SiteName() string
	SiteURL() string
	PlatformVersion() string
	Permalink(id int64, slug, status string) string
	RankMathActive() bool
	YoastActive() bool
	ElementorActive() bool
	ElementorVersion() string
}

type SEOService interface {
	Resolve(ctx context.Context, postID int64) (seo.Metadata, error)
	SetFocusKeyword(ctx context.Context, postID int64, keyword string) (seo.ProviderTag, error)
}

type TemplateCodec interface {
	Export(ctx context.Context, postID int64) (*builder.Document, error)
	Import(ctx context.Context, doc *builder.Document) (*builder.ApplyResult, error)
	Update(ctx context.Context, postID int64, doc *builder.Document) (*builder.ApplyResult, error)
	List(ctx context.Context, postTypes []string, page, perPage int) ([]builder.Summary, int, error)
}

// LifecycleTrigger announces mutated records to the webhook receiver.
type LifecycleTrigger interface {
	Saved(ctx context.Context, postID int64) bool
	Deleted(ctx context.Context, post database.Post) bool
}

type ReleaseStatus interface {
	Cached(ctx context.Context) *release.Status
}

var (
	_ TemplateCodec = (*builder.Codec)(nil)
	_ SEOService    = (*seo.Resolver)(nil)
)

type Handler struct {
	posts    database.PostRepository
	options  database.OptionRepository
	seo      SEOService
	bulk     *bulk.Engine
	codec    TemplateCodec
	trigger  LifecycleTrigger
	site     SiteInfo
	releases ReleaseStatus
	metrics  *metrics.Collector
	version  string
}

// PageResponse is a content record with its resolved SEO metadata.
type PageResponse struct {
	ID            int64        `json:"id"`
	URL           string       `json:"url"`
	Slug          string       `json:"slug"`
	Title         string       `json:"title"`
	PostType      string       `json:"post_type"`
	Status        string       `json:"status"`
	PublishedAt   string       `json:"published_at"`
	ModifiedAt    string       `json:"modified_at"`
	Author        string       `json:"author"`
	WordCount     int          `json:"word_count"`
	SEO           seo.Metadata `json:"seo"`
	FeaturedImage *string      `json:"featured_image"`
	Categories    []string     `json:"categories"`
	Tags          []string     `json:"tags"`
}

type ListResponse[T any] struct {
	Pages       []T `json:"pages"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
}

type PingResponse struct {
	Status           string  `json:"status"`
	Plugin           string  `json:"plugin"`
	Version          string  `json:"version"`
	WordPress        string  `json:"wordpress"`
	SiteName         string  `json:"site_name"`
	SiteURL          string  `json:"site_url"`
	RankMathActive   bool    `json:"rankmath_active"`
	YoastActive      bool    `json:"yoast_active"`
	ElementorActive  bool    `json:"elementor_active"`
	ElementorVersion *string `json:"elementor_version"`
	LatestVersion    *string `json:"latest_version"`
	UpdateAvailable  bool    `json:"update_available"`
}

type FocusKeywordResponse struct {
	Success      bool            `json:"success"`
	PostID       int64           `json:"post_id"`
	FocusKeyword string          `json:"focus_keyword"`
	SEOPlugin    seo.ProviderTag `json:"seo_plugin"`
}

type TemplateResponse struct {
	Success bool `json:"success"`
	*builder.ApplyResult
	Message string `json:"message"`
}

type TrashResponse struct {
	Success bool   `json:"success"`
	PostID  int64  `json:"post_id"`
	Status  string `json:"status"`
}
