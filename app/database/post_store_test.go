package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "links.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("Expected migration version 1 (clean), got %d (dirty=%v)", version, dirty)
	}

	return db
}

func insertPost(t *testing.T, repo *PostStore, postType, status, slug, title string) int64 {
	t.Helper()
	id, err := repo.InsertPost(context.Background(), NewPost{
		PostType: postType,
		Status:   status,
		Slug:     slug,
		Title:    title,
	})
	if err != nil {
		t.Fatalf("Failed to insert post: %v", err)
	}
	return id
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	db := newTestDB(t)

	version, _, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected second migration run to succeed, got %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}
}

func TestGetPost(t *testing.T) {
	ctx := context.Background()
	repo := NewPostStore(newTestDB(t))

	id := insertPost(t, repo, TypePage, StatusPublish, "about", "About us")

	post, err := repo.GetPost(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if post == nil {
		t.Fatal("Expected post, got nil")
	}
	if post.Title != "About us" || post.Slug != "about" || post.PostType != TypePage {
		t.Errorf("Unexpected post: %+v", post)
	}
	if post.ModifiedAt.IsZero() || post.PublishedAt.IsZero() {
		t.Error("Expected timestamps to be populated")
	}

	missing, err := repo.GetPost(ctx, id+100)
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing post, got %+v", missing)
	}
}

func TestInsertPostUniqueSlug(t *testing.T) {
	ctx := context.Background()
	repo := NewPostStore(newTestDB(t))

	first := insertPost(t, repo, TypePage, StatusPublish, "landing", "Landing")
	second := insertPost(t, repo, TypePage, StatusDraft, "landing", "Landing copy")
	third := insertPost(t, repo, TypePost, StatusDraft, "landing", "Landing post")

	expected := map[int64]string{first: "landing", second: "landing-2", third: "landing-3"}
	for id, slug := range expected {
		post, err := repo.GetPost(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if post.Slug != slug {
			t.Errorf("Expected slug '%s' for post %d, got '%s'", slug, id, post.Slug)
		}
	}
}

func TestResolveURL(t *testing.T) {
	ctx := context.Background()
	repo := NewPostStore(newTestDB(t))

	pageID := insertPost(t, repo, TypePage, StatusPublish, "pricing", "Pricing")
	postID := insertPost(t, repo, TypePost, StatusPublish, "hello-world", "Hello")
	trashedID := insertPost(t, repo, TypePost, StatusPublish, "old-news", "Old")
	if err := repo.TrashPost(ctx, trashedID); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		url      string
		expected int64
	}{
		{"https://example.com/pricing/", pageID},
		{"https://example.com/pricing", pageID},
		{"/pricing", pageID},
		{"/2024/01/hello-world/?utm_source=x", postID},
		{"https://other-host.test/Hello-World/", postID},
		{"https://example.com/?p=" + itoa(postID), postID},
		{"https://example.com/?page_id=" + itoa(pageID), pageID},
		{"https://example.com/old-news/", 0},
		{"https://example.com/?p=" + itoa(trashedID), 0},
		{"https://example.com/missing/", 0},
		{"https://example.com/", 0},
		{"https://example.com/?p=abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			id, err := repo.ResolveURL(ctx, tt.url)
			if err != nil {
				t.Fatal(err)
			}
			if id != tt.expected {
				t.Errorf("Expected id %d for %s, got %d", tt.expected, tt.url, id)
			}
		})
	}
}

func TestQueryPosts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewPostStore(db)
	meta := NewMetaStore(db)

	var published []int64
	for _, slug := range []string{"one", "two", "three"} {
		published = append(published, insertPost(t, repo, TypePost, StatusPublish, slug, slug))
	}
	page := insertPost(t, repo, TypePage, StatusPublish, "page", "Page")
	insertPost(t, repo, TypePost, StatusDraft, "draft", "Draft")
	insertPost(t, repo, "product", StatusPublish, "product", "Product")

	if err := meta.SetMeta(ctx, published[0], "rank_math_focus_keyword", "seo"); err != nil {
		t.Fatal(err)
	}
	if err := meta.SetMeta(ctx, page, "_yoast_wpseo_focuskw", "yoast"); err != nil {
		t.Fatal(err)
	}
	if err := meta.SetMeta(ctx, published[1], "rank_math_focus_keyword", ""); err != nil {
		t.Fatal(err)
	}

	result, err := repo.QueryPosts(ctx, PostQuery{
		PostTypes: []string{TypePost, TypePage},
		Status:    StatusPublish,
		PerPage:   2,
		Page:      1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 4 {
		t.Errorf("Expected total 4, got %d", result.Total)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("Expected 2 posts on first page, got %d", len(result.Posts))
	}
	// Same-second modifications fall back to id order, newest first.
	if result.Posts[0].ID != page {
		t.Errorf("Expected newest post %d first, got %d", page, result.Posts[0].ID)
	}

	second, err := repo.QueryPosts(ctx, PostQuery{
		PostTypes: []string{TypePost, TypePage},
		Status:    StatusPublish,
		PerPage:   2,
		Page:      2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Posts) != 2 {
		t.Errorf("Expected 2 posts on second page, got %d", len(second.Posts))
	}

	withKeyword, err := repo.QueryPosts(ctx, PostQuery{
		PostTypes: []string{TypePost, TypePage},
		Status:    StatusPublish,
		Meta:      []MetaCondition{{Keys: []string{"rank_math_focus_keyword", "_yoast_wpseo_focuskw"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if withKeyword.Total != 2 {
		t.Errorf("Expected 2 posts with a focus keyword, got %d", withKeyword.Total)
	}

	builder, err := repo.QueryPosts(ctx, PostQuery{
		Meta: []MetaCondition{{Keys: []string{"_elementor_edit_mode"}, Value: "builder"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if builder.Total != 0 || len(builder.Posts) != 0 {
		t.Errorf("Expected no builder posts, got %d", builder.Total)
	}
}

func TestUpdateTitle(t *testing.T) {
	ctx := context.Background()
	repo := NewPostStore(newTestDB(t))

	id := insertPost(t, repo, TypePost, StatusPublish, "title", "Before")

	if err := repo.UpdateTitle(ctx, id, "After"); err != nil {
		t.Fatal(err)
	}

	post, err := repo.GetPost(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "After" {
		t.Errorf("Expected title 'After', got '%s'", post.Title)
	}

	if err := repo.UpdateTitle(ctx, id+100, "Nope"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("Expected ErrPostNotFound, got %v", err)
	}
}

func TestTerms(t *testing.T) {
	ctx := context.Background()
	repo := NewPostStore(newTestDB(t))

	id := insertPost(t, repo, TypePost, StatusPublish, "tagged", "Tagged")

	if err := repo.SetTerms(ctx, id, TaxonomyTag, []string{"seo", "links", "seo"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetTerms(ctx, id, TaxonomyCategory, []string{"News"}); err != nil {
		t.Fatal(err)
	}

	tags, err := repo.Terms(ctx, id, TaxonomyTag)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0] != "links" || tags[1] != "seo" {
		t.Errorf("Expected tags [links seo], got %v", tags)
	}

	categories, err := repo.Terms(ctx, id, TaxonomyCategory)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != 1 || categories[0] != "News" {
		t.Errorf("Expected categories [News], got %v", categories)
	}
}
