package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/superman-links/links-bridge/app/builder"
	"github.com/superman-links/links-bridge/app/bulk"
	"github.com/superman-links/links-bridge/app/database"
	"github.com/superman-links/links-bridge/app/metrics"
	"github.com/superman-links/links-bridge/app/sanitize"
	"github.com/superman-links/links-bridge/app/seo"
)

const (
	defaultPostTypes          = database.TypePost + "," + database.TypePage
	defaultElementorPostTypes = database.TypePage

	msgTemplateCreated = "New page created from template."
	msgTemplateUpdated = "Page updated with template."
)

// releases may be nil when no release feed is configured.
func NewHandler(posts database.PostRepository, options database.OptionRepository,
	seoService SEOService, engine *bulk.Engine, codec TemplateCodec, trigger LifecycleTrigger,
	site SiteInfo, releases ReleaseStatus, collector *metrics.Collector, version string) *Handler {
	return &Handler{
		posts:    posts,
		options:  options,
		seo:      seoService,
		bulk:     engine,
		codec:    codec,
		trigger:  trigger,
		site:     site,
		releases: releases,
		metrics:  collector,
		version:  version,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	resp := PingResponse{
		Status:          "ok",
		Plugin:          pluginName,
		Version:         h.version,
		WordPress:       h.site.PlatformVersion(),
		SiteName:        h.site.SiteName(),
		SiteURL:         h.site.SiteURL(),
		RankMathActive:  h.site.RankMathActive(),
		YoastActive:     h.site.YoastActive(),
		ElementorActive: h.site.ElementorActive(),
	}

	if resp.ElementorActive {
		version := h.site.ElementorVersion()
		resp.ElementorVersion = &version
	}

	if h.releases != nil {
		if status := h.releases.Cached(c.Request.Context()); status != nil {
			latest := status.LatestVersion
			resp.LatestVersion = &latest
			resp.UpdateAvailable = status.UpdateAvailable
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListPages(c *gin.Context) {
	ctx := c.Request.Context()
	postTypes, page, perPage := listParams(c, defaultPostTypes)

	query := database.PostQuery{
		PostTypes: postTypes,
		Status:    database.StatusPublish,
		Page:      page,
		PerPage:   perPage,
	}
	if sanitizeBoolean(c.Query("has_focus_keyword")) {
		query.Meta = []database.MetaCondition{{Keys: seo.FocusKeywordMetaKeys()}}
	}

	result, err := h.posts.QueryPosts(ctx, query)
	if err != nil {
		slog.Error("Database error", "operation", "query_posts", "error", err)
		abortWithError(c, errInternal)
		return
	}

	pages := make([]PageResponse, 0, len(result.Posts))
	for _, post := range result.Posts {
		item, err := h.pageResponse(ctx, post)
		if err != nil {
			slog.Error("Failed to format page", "post_id", post.ID, "error", err)
			abortWithError(c, errInternal)
			return
		}
		pages = append(pages, item)
	}

	c.JSON(http.StatusOK, newListResponse(pages, result.Total, page, perPage))
}

func (h *Handler) GetPage(c *gin.Context) {
	ctx := c.Request.Context()

	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	if post.Status != database.StatusPublish {
		abortWithError(c, errPageNotFound)
		return
	}

	item, err := h.pageResponse(ctx, *post)
	if err != nil {
		slog.Error("Failed to format page", "post_id", post.ID, "error", err)
		abortWithError(c, errInternal)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateFocusKeyword(c *gin.Context) {
	ctx := c.Request.Context()

	raw, ok := requestParam(c, "focus_keyword")
	if !ok {
		abortWithError(c, errMissingKeyword)
		return
	}
	keyword := sanitize.Text(raw)

	post, ok := h.loadPost(c)
	if !ok {
		return
	}

	tag, err := h.seo.SetFocusKeyword(ctx, post.ID, keyword)
	if errors.Is(err, seo.ErrNoProviderConfigured) {
		abortWithError(c, errNoSEOPlugin)
		return
	}
	if err != nil {
		slog.Error("Failed to set focus keyword", "post_id", post.ID, "error", err)
		abortWithError(c, errInternal)
		return
	}

	h.trigger.Saved(ctx, post.ID)

	c.JSON(http.StatusOK, FocusKeywordResponse{
		Success:      true,
		PostID:       post.ID,
		FocusKeyword: keyword,
		SEOPlugin:    tag,
	})
}

func (h *Handler) BulkFocusKeyword(c *gin.Context) {
	h.runBulk(c, "focus_keyword", bulk.Operation{
		Name:      "focus_keyword",
		Field:     "focus keyword",
		ResultKey: "seo_plugin",
		Apply: func(ctx context.Context, postID int64, value string) (string, error) {
			tag, err := h.seo.SetFocusKeyword(ctx, postID, value)
			if errors.Is(err, seo.ErrNoProviderConfigured) {
				return "", errors.New(errNoSEOPlugin.Message)
			}
			if err != nil {
				slog.Error("Failed to set focus keyword", "post_id", postID, "error", err)
				return "", err
			}
			return string(tag), nil
		},
	})
}

func (h *Handler) BulkTitle(c *gin.Context) {
	h.runBulk(c, "title", bulk.Operation{
		Name:      "title",
		Field:     "title",
		ResultKey: "title",
		Apply: func(ctx context.Context, postID int64, value string) (string, error) {
			err := h.posts.UpdateTitle(ctx, postID, sanitize.Text(value))
			if errors.Is(err, database.ErrPostNotFound) {
				return "", errors.New("Page not found")
			}
			if err != nil {
				slog.Error("Failed to update title", "post_id", postID, "error", err)
				return "", err
			}
			return value, nil
		},
	})
}

func (h *Handler) runBulk(c *gin.Context, valueField string, op bulk.Operation) {
	ctx := c.Request.Context()

	items, ok := bulkItems(c, valueField)
	if !ok {
		abortWithError(c, errPagesRequired)
		return
	}

	report := h.bulk.Apply(ctx, op, items)
	h.metrics.BulkItems(op.Name, report.Updated, report.Failed)

	for _, id := range report.UpdatedIDs() {
		h.trigger.Saved(ctx, id)
	}

	c.JSON(http.StatusOK, report)
}

// TrashPage moves a record to the trash and announces the deletion.
func (h *Handler) TrashPage(c *gin.Context) {
	ctx := c.Request.Context()

	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	if post.Status == database.StatusTrash {
		abortWithError(c, errPageNotFound)
		return
	}

	if err := h.posts.TrashPost(ctx, post.ID); err != nil {
		slog.Error("Failed to trash post", "post_id", post.ID, "error", err)
		abortWithError(c, errInternal)
		return
	}

	h.trigger.Deleted(ctx, *post)

	c.JSON(http.StatusOK, TrashResponse{Success: true, PostID: post.ID, Status: database.StatusTrash})
}

func (h *Handler) ElementorPages(c *gin.Context) {
	if !h.requireElementor(c) {
		return
	}

	postTypes, page, perPage := listParams(c, defaultElementorPostTypes)

	summaries, total, err := h.codec.List(c.Request.Context(), postTypes, page, perPage)
	if err != nil {
		slog.Error("Failed to list builder pages", "error", err)
		abortWithError(c, errInternal)
		return
	}

	c.JSON(http.StatusOK, newListResponse(summaries, total, page, perPage))
}

func (h *Handler) ExportTemplate(c *gin.Context) {
	if !h.requireElementor(c) {
		return
	}

	id, ok := postID(c)
	if !ok {
		return
	}

	doc, err := h.codec.Export(c.Request.Context(), id)
	switch {
	case errors.Is(err, builder.ErrNotFound):
		abortWithError(c, errPageNotFound)
		return
	case errors.Is(err, builder.ErrNotBuilderContent):
		abortWithError(c, errNotElementor)
		return
	case err != nil:
		slog.Error("Failed to export template", "post_id", id, "error", err)
		abortWithError(c, errInternal)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	if !h.requireElementor(c) {
		return
	}

	id, ok := postID(c)
	if !ok {
		return
	}

	doc, ok := parseDocument(c)
	if !ok {
		return
	}

	result, err := h.codec.Update(c.Request.Context(), id, doc)
	h.respondApplied(c, result, err, "update")
}

func (h *Handler) ImportTemplate(c *gin.Context) {
	if !h.requireElementor(c) {
		return
	}

	doc, ok := parseDocument(c)
	if !ok {
		return
	}

	result, err := h.codec.Import(c.Request.Context(), doc)
	h.respondApplied(c, result, err, "import")
}

func (h *Handler) respondApplied(c *gin.Context, result *builder.ApplyResult, err error, mode string) {
	switch {
	case errors.Is(err, builder.ErrMissingLayoutData):
		abortWithError(c, errMissingData)
		return
	case errors.Is(err, builder.ErrNotFound):
		abortWithError(c, errPageNotFound)
		return
	case errors.Is(err, builder.ErrCreateFailed):
		slog.Error("Failed to create page from template", "error", err)
		var createErr *builder.CreateError
		if errors.As(err, &createErr) {
			abortWithError(c, errCreateFailed.withMessage(createErr.Err.Error()))
			return
		}
		abortWithError(c, errCreateFailed)
		return
	case err != nil:
		slog.Error("Failed to apply template", "mode", mode, "error", err)
		abortWithError(c, errInternal)
		return
	}

	h.metrics.TemplateApplied(mode)
	h.trigger.Saved(c.Request.Context(), result.PostID)

	message := msgTemplateUpdated
	if result.IsNew {
		message = msgTemplateCreated
	}

	c.JSON(http.StatusOK, TemplateResponse{Success: true, ApplyResult: result, Message: message})
}

func (h *Handler) requireElementor(c *gin.Context) bool {
	if !h.site.ElementorActive() {
		abortWithError(c, errElementorInactive)
		return false
	}
	return true
}

// loadPost resolves the :id path parameter to an existing record.
func (h *Handler) loadPost(c *gin.Context) (*database.Post, bool) {
	id, ok := postID(c)
	if !ok {
		return nil, false
	}

	post, err := h.posts.GetPost(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_post", "post_id", id, "error", err)
		abortWithError(c, errInternal)
		return nil, false
	}
	if post == nil {
		abortWithError(c, errPageNotFound)
		return nil, false
	}

	return post, true
}

func (h *Handler) pageResponse(ctx context.Context, post database.Post) (PageResponse, error) {
	md, err := h.seo.Resolve(ctx, post.ID)
	if err != nil {
		return PageResponse{}, err
	}

	categories, err := h.posts.Terms(ctx, post.ID, database.TaxonomyCategory)
	if err != nil {
		return PageResponse{}, err
	}
	tags, err := h.posts.Terms(ctx, post.ID, database.TaxonomyTag)
	if err != nil {
		return PageResponse{}, err
	}

	var featured *string
	if post.FeaturedImage != "" {
		image := post.FeaturedImage
		featured = &image
	}

	return PageResponse{
		ID:            post.ID,
		URL:           h.site.Permalink(post.ID, post.Slug, post.Status),
		Slug:          post.Slug,
		Title:         post.Title,
		PostType:      post.PostType,
		Status:        post.Status,
		PublishedAt:   post.PublishedAt.UTC().Format(database.TimeLayout),
		ModifiedAt:    post.ModifiedAt.UTC().Format(database.TimeLayout),
		Author:        post.Author,
		WordCount:     sanitize.WordCount(post.Content),
		SEO:           md,
		FeaturedImage: featured,
		Categories:    categories,
		Tags:          tags,
	}, nil
}

func newListResponse[T any](pages []T, total, page, perPage int) ListResponse[T] {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return ListResponse[T]{
		Pages:       pages,
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PerPage:     perPage,
	}
}

// postID parses the :id path parameter. Anything but digits does not
// match a route.
func postID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		abortWithError(c, errNoRoute)
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		abortWithError(c, errNoRoute)
		return 0, false
	}
	return id, true
}

func listParams(c *gin.Context, defaultTypes string) ([]string, int, int) {
	rawTypes := c.DefaultQuery("post_type", defaultTypes)
	var postTypes []string
	for _, postType := range strings.Split(rawTypes, ",") {
		if postType = strings.TrimSpace(postType); postType != "" {
			postTypes = append(postTypes, postType)
		}
	}
	if len(postTypes) == 0 {
		postTypes = strings.Split(defaultTypes, ",")
	}

	perPage := defaultPerPage
	if raw, ok := c.GetQuery("per_page"); ok {
		if n := absint(raw); n > 0 {
			perPage = min(n, maxPerPage)
		}
	}

	page := 1
	if raw, ok := c.GetQuery("page"); ok {
		if n := absint(raw); n > 0 {
			page = n
		}
	}

	return postTypes, page, perPage
}

// absint reads the leading integer of s and drops its sign. Garbage reads
// as 0.
func absint(s string) int {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "+-")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// sanitizeBoolean treats "", "0" and "false" as false and anything else
// as true.
func sanitizeBoolean(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false":
		return false
	default:
		return true
	}
}

// requestParam looks a parameter up in the JSON body, then the form body,
// then the query string. Explicit JSON null counts as absent.
func requestParam(c *gin.Context, name string) (string, bool) {
	if body := jsonBody(c); body != nil {
		if value, ok := body[name]; ok && value != nil {
			return stringValue(value), true
		}
	}
	if value, ok := c.GetPostForm(name); ok {
		return value, true
	}
	return c.GetQuery(name)
}

func jsonBody(c *gin.Context) map[string]any {
	if !strings.HasPrefix(c.ContentType(), "application/json") {
		return nil
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var body map[string]any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return nil
	}
	return body
}

// bulkItems extracts the pages array of a bulk request. A missing, empty
// or non-array value is a structural error; malformed entries become items
// that fail validation.
func bulkItems(c *gin.Context, valueField string) ([]bulk.Item, bool) {
	body := jsonBody(c)
	if body == nil {
		return nil, false
	}

	pages, ok := body["pages"].([]any)
	if !ok || len(pages) == 0 {
		return nil, false
	}

	items := make([]bulk.Item, 0, len(pages))
	for _, page := range pages {
		entry, _ := page.(map[string]any)
		items = append(items, bulk.Item{
			Reference: stringValue(entry["url"]),
			Value:     stringValue(entry[valueField]),
		})
	}
	return items, true
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "1"
		}
		return ""
	default:
		return ""
	}
}

func parseDocument(c *gin.Context) (*builder.Document, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortWithError(c, errInvalidJSON)
		return nil, false
	}

	doc, err := builder.ParseDocument(raw)
	if errors.Is(err, builder.ErrInvalidJSON) {
		abortWithError(c, errInvalidJSON)
		return nil, false
	}

	var docErr *builder.DocumentError
	if errors.As(err, &docErr) {
		abortWithError(c, newError(http.StatusBadRequest, "rest_invalid_param",
			"Invalid template document: "+strings.Join(docErr.Issues, "; ")))
		return nil, false
	}
	if err != nil {
		abortWithError(c, errInvalidJSON)
		return nil, false
	}

	return doc, true
}
