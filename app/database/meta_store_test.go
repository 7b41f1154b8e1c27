package database

import (
	"context"
	"strconv"
	"testing"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestMetaStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewPostStore(db)
	meta := NewMetaStore(db)

	id := insertPost(t, repo, TypePage, StatusPublish, "meta", "Meta")

	value, err := meta.GetMeta(ctx, id, "_elementor_data")
	if err != nil {
		t.Fatal(err)
	}
	if value != "" {
		t.Errorf("Expected empty value for missing key, got '%s'", value)
	}

	if err := meta.SetMeta(ctx, id, "_elementor_data", "[]"); err != nil {
		t.Fatal(err)
	}
	if err := meta.SetMeta(ctx, id, "_elementor_data", `[{"elType":"widget"}]`); err != nil {
		t.Fatal(err)
	}

	value, err = meta.GetMeta(ctx, id, "_elementor_data")
	if err != nil {
		t.Fatal(err)
	}
	if value != `[{"elType":"widget"}]` {
		t.Errorf("Expected overwritten value, got '%s'", value)
	}

	if err := meta.DeleteMeta(ctx, id, "_elementor_data"); err != nil {
		t.Fatal(err)
	}
	value, err = meta.GetMeta(ctx, id, "_elementor_data")
	if err != nil {
		t.Fatal(err)
	}
	if value != "" {
		t.Errorf("Expected empty value after delete, got '%s'", value)
	}
}

func TestMetaStoreRejectsUnknownPost(t *testing.T) {
	meta := NewMetaStore(newTestDB(t))

	if err := meta.SetMeta(context.Background(), 999, "key", "value"); err == nil {
		t.Error("Expected foreign key error for unknown post")
	}
}

func TestOptionStore(t *testing.T) {
	ctx := context.Background()
	options := NewOptionStore(newTestDB(t))

	value, err := options.GetOption(ctx, "superman_links_api_key")
	if err != nil {
		t.Fatal(err)
	}
	if value != "" {
		t.Errorf("Expected empty option, got '%s'", value)
	}

	if err := options.SetOption(ctx, "superman_links_api_key", "first"); err != nil {
		t.Fatal(err)
	}
	if err := options.SetOption(ctx, "superman_links_api_key", "second"); err != nil {
		t.Fatal(err)
	}

	value, err = options.GetOption(ctx, "superman_links_api_key")
	if err != nil {
		t.Fatal(err)
	}
	if value != "second" {
		t.Errorf("Expected 'second', got '%s'", value)
	}
}
