package builder

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/superman-links/links-bridge/app/cache"
	"github.com/superman-links/links-bridge/app/database"
	"github.com/superman-links/links-bridge/app/sanitize"
	"github.com/superman-links/links-bridge/app/seo"
)

const presentationTTL = 24 * time.Hour

// SEOStore is the slice of the SEO resolver the codec needs.
type SEOStore interface {
	Resolve(ctx context.Context, postID int64) (seo.Metadata, error)
	SetFocusKeyword(ctx context.Context, postID int64, keyword string) (seo.ProviderTag, error)
	SetMetaText(ctx context.Context, postID int64, title, description string) error
}

// Site describes the host site the codec exports from and imports into.
type Site interface {
	SiteURL() string
	Permalink(id int64, slug, status string) string
	ElementorVersion() string
}

type Codec struct {
	posts  database.PostRepository
	meta   database.MetaRepository
	seo    SEOStore
	site   Site
	styles cache.Store
	now    func() time.Time
}

func NewCodec(posts database.PostRepository, meta database.MetaRepository, seoStore SEOStore, site Site, styles cache.Store) *Codec {
	return &Codec{
		posts:  posts,
		meta:   meta,
		seo:    seoStore,
		site:   site,
		styles: styles,
		now:    time.Now,
	}
}

// ApplyResult describes the record a document was applied to.
type ApplyResult struct {
	PostID           int64  `json:"post_id"`
	URL              string `json:"url"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	IsNew            bool   `json:"is_new"`
	ElementorVersion string `json:"elementor_version"`
}

// Summary is the listing view of a builder record.
type Summary struct {
	ID               int64   `json:"id"`
	URL              string  `json:"url"`
	Slug             string  `json:"slug"`
	Title            string  `json:"title"`
	PostType         string  `json:"post_type"`
	Status           string  `json:"status"`
	ModifiedAt       string  `json:"modified_at"`
	TemplateType     string  `json:"template_type"`
	ElementorVersion string  `json:"elementor_version"`
	WidgetCount      int     `json:"widget_count"`
	FeaturedImage    *string `json:"featured_image"`
}

// IsBuilderContent reports whether the record was last edited in the
// page builder.
func (c *Codec) IsBuilderContent(ctx context.Context, postID int64) (bool, error) {
	mode, err := c.meta.GetMeta(ctx, postID, MetaEditMode)
	if err != nil {
		return false, fmt.Errorf("failed to read edit mode: %w", err)
	}
	return mode == EditModeBuilder, nil
}

// Export reads a builder record into a portable document.
func (c *Codec) Export(ctx context.Context, postID int64) (*Document, error) {
	post, err := c.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post %d: %w", postID, err)
	}
	if post == nil {
		return nil, ErrNotFound
	}

	isBuilder, err := c.IsBuilderContent(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !isBuilder {
		return nil, ErrNotBuilderContent
	}

	fields, err := c.readMeta(ctx, postID, MetaData, MetaPageSettings, MetaTemplateType, MetaVersion)
	if err != nil {
		return nil, err
	}

	css, err := c.presentation(ctx, postID)
	if err != nil {
		return nil, err
	}

	md, err := c.seo.Resolve(ctx, postID)
	if err != nil {
		return nil, err
	}

	keyword, err := c.storedFocusKeyword(ctx, postID)
	if err != nil {
		return nil, err
	}

	templateType := fields[MetaTemplateType]
	if templateType == "" {
		templateType = DefaultTemplateType
	}

	title := post.Title
	permalink := c.site.Permalink(post.ID, post.Slug, post.Status)

	return &Document{
		Version: DocumentVersion,
		Type:    DocumentType,
		Source: Source{
			SiteURL:    c.site.SiteURL(),
			PostID:     post.ID,
			PostURL:    permalink,
			ExportedAt: c.now().Format(time.RFC3339),
		},
		Page: PageDescriptor{
			Title:        &title,
			Slug:         post.Slug,
			PostType:     post.PostType,
			Status:       post.Status,
			TemplateType: templateType,
		},
		Elementor: Payload{
			Version:      fields[MetaVersion],
			Data:         decodeStored(fields[MetaData]),
			PageSettings: decodeStored(fields[MetaPageSettings]),
			CSS:          css,
		},
		SEO: &SEOSnapshot{
			FocusKeyword:    keyword,
			MetaTitle:       md.MetaTitle,
			MetaDescription: md.MetaDescription,
		},
	}, nil
}

// Import creates a new record from a document.
func (c *Codec) Import(ctx context.Context, doc *Document) (*ApplyResult, error) {
	if !doc.HasLayoutData() {
		return nil, ErrMissingLayoutData
	}

	title := DefaultImportTitle
	if doc.Page.Title != nil {
		title = *doc.Page.Title
	}
	title = sanitize.Text(title)

	postType := doc.Page.PostType
	if !slices.Contains(importPostTypes, postType) {
		postType = database.TypePage
	}
	status := doc.Page.Status
	if !slices.Contains(importStatuses, status) {
		status = database.StatusDraft
	}

	slug := ""
	if doc.Page.Slug != "" {
		slug = sanitize.Slug(doc.Page.Slug)
	}
	if slug == "" && status != database.StatusDraft && status != database.StatusPending {
		slug = sanitize.Slug(title)
	}

	postID, err := c.posts.InsertPost(ctx, database.NewPost{
		PostType: postType,
		Status:   status,
		Slug:     slug,
		Title:    title,
	})
	if err != nil {
		return nil, &CreateError{Err: err}
	}

	return c.apply(ctx, postID, doc, true)
}

// Update replaces the builder state of an existing record. Title, slug and
// status are left alone.
func (c *Codec) Update(ctx context.Context, postID int64, doc *Document) (*ApplyResult, error) {
	if !doc.HasLayoutData() {
		return nil, ErrMissingLayoutData
	}

	post, err := c.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post %d: %w", postID, err)
	}
	if post == nil {
		return nil, ErrNotFound
	}

	return c.apply(ctx, postID, doc, false)
}

func (c *Codec) apply(ctx context.Context, postID int64, doc *Document, isNew bool) (*ApplyResult, error) {
	data, err := encodeForStorage(doc.Elementor.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode layout data: %w", err)
	}

	templateType := doc.Page.TemplateType
	if templateType == "" {
		templateType = DefaultTemplateType
	}
	version := c.site.ElementorVersion()

	writes := [][2]string{
		{MetaData, data},
		{MetaEditMode, EditModeBuilder},
		{MetaTemplateType, templateType},
		{MetaVersion, version},
	}
	if !isEmptyValue(doc.Elementor.PageSettings) {
		settings, err := encodeForStorage(doc.Elementor.PageSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to encode page settings: %w", err)
		}
		writes = append(writes, [2]string{MetaPageSettings, settings})
	}

	for _, w := range writes {
		if err := c.meta.SetMeta(ctx, postID, w[0], w[1]); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", w[0], err)
		}
	}

	if !doc.SEO.isEmpty() {
		c.applySEO(ctx, postID, doc.SEO)
	}

	c.invalidatePresentation(ctx, postID)

	if !isNew {
		if err := c.posts.TouchPost(ctx, postID); err != nil {
			return nil, err
		}
	}

	post, err := c.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload post %d: %w", postID, err)
	}
	if post == nil {
		return nil, ErrNotFound
	}

	return &ApplyResult{
		PostID:           post.ID,
		URL:              c.site.Permalink(post.ID, post.Slug, post.Status),
		Title:            post.Title,
		Status:           post.Status,
		IsNew:            isNew,
		ElementorVersion: version,
	}, nil
}

// applySEO never fails the apply; problems are logged.
func (c *Codec) applySEO(ctx context.Context, postID int64, snapshot *SEOSnapshot) {
	if keyword := deref(snapshot.FocusKeyword); keyword != "" {
		if _, err := c.seo.SetFocusKeyword(ctx, postID, keyword); err != nil {
			slog.Warn("Failed to apply focus keyword", "post_id", postID, "error", err)
		}
	}

	if err := c.seo.SetMetaText(ctx, postID, deref(snapshot.MetaTitle), deref(snapshot.MetaDescription)); err != nil {
		slog.Warn("Failed to apply SEO meta text", "post_id", postID, "error", err)
	}
}

// presentation returns the generated stylesheet of a record, cached.
func (c *Codec) presentation(ctx context.Context, postID int64) (string, error) {
	key := cache.PresentationKey(postID)

	if css, err := c.styles.Get(ctx, key); err != nil {
		slog.Warn("Failed to read stylesheet cache", "post_id", postID, "error", err)
	} else if css != "" {
		return css, nil
	}

	css, err := c.meta.GetMeta(ctx, postID, MetaCSS)
	if err != nil {
		return "", fmt.Errorf("failed to read stylesheet: %w", err)
	}

	if css != "" {
		if err := c.styles.Set(ctx, key, css, presentationTTL); err != nil {
			slog.Warn("Failed to cache stylesheet", "post_id", postID, "error", err)
		}
	}

	return css, nil
}

// invalidatePresentation drops the stored and cached stylesheet so it is
// regenerated on next render. Failures are logged only.
func (c *Codec) invalidatePresentation(ctx context.Context, postID int64) {
	if err := c.styles.Delete(ctx, cache.PresentationKey(postID)); err != nil {
		slog.Warn("Failed to clear stylesheet cache", "post_id", postID, "error", err)
	}
	if err := c.meta.DeleteMeta(ctx, postID, MetaCSS); err != nil {
		slog.Warn("Failed to clear stylesheet", "post_id", postID, "error", err)
	}
}

// List returns published builder records, most recently modified first.
func (c *Codec) List(ctx context.Context, postTypes []string, page, perPage int) ([]Summary, int, error) {
	result, err := c.posts.QueryPosts(ctx, database.PostQuery{
		PostTypes: postTypes,
		Status:    database.StatusPublish,
		Meta:      []database.MetaCondition{{Keys: []string{MetaEditMode}, Value: EditModeBuilder}},
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query builder pages: %w", err)
	}

	summaries := make([]Summary, 0, len(result.Posts))
	for _, post := range result.Posts {
		summary, err := c.summarize(ctx, post)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, summary)
	}

	return summaries, result.Total, nil
}

func (c *Codec) summarize(ctx context.Context, post database.Post) (Summary, error) {
	fields, err := c.readMeta(ctx, post.ID, MetaData, MetaTemplateType, MetaVersion)
	if err != nil {
		return Summary{}, err
	}

	templateType := fields[MetaTemplateType]
	if templateType == "" {
		templateType = DefaultTemplateType
	}

	var featured *string
	if post.FeaturedImage != "" {
		image := post.FeaturedImage
		featured = &image
	}

	return Summary{
		ID:               post.ID,
		URL:              c.site.Permalink(post.ID, post.Slug, post.Status),
		Slug:             post.Slug,
		Title:            post.Title,
		PostType:         post.PostType,
		Status:           post.Status,
		ModifiedAt:       post.ModifiedAt.UTC().Format(database.TimeLayout),
		TemplateType:     templateType,
		ElementorVersion: fields[MetaVersion],
		WidgetCount:      CountWidgets(decodeStored(fields[MetaData])),
		FeaturedImage:    featured,
	}, nil
}

func (c *Codec) readMeta(ctx context.Context, postID int64, keys ...string) (map[string]string, error) {
	fields := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := c.meta.GetMeta(ctx, postID, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		fields[key] = value
	}
	return fields, nil
}

// storedFocusKeyword returns the raw keyword string as stored, RankMath first.
func (c *Codec) storedFocusKeyword(ctx context.Context, postID int64) (*string, error) {
	fields, err := c.readMeta(ctx, postID, seo.RankMathFocusKeyword, seo.YoastFocusKeyword)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{seo.RankMathFocusKeyword, seo.YoastFocusKeyword} {
		if value := fields[key]; value != "" {
			return &value, nil
		}
	}
	return nil, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
