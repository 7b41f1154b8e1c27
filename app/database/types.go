package database

import (
	"time"
)

const (
	StatusPublish   = "publish"
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPrivate   = "private"
	StatusTrash     = "trash"
	StatusAutoDraft = "auto-draft"
	StatusInherit   = "inherit"

	TypePost     = "post"
	TypePage     = "page"
	TypeRevision = "revision"

	TaxonomyCategory = "category"
	TaxonomyTag      = "post_tag"

	// OptionAPIKey holds the shared secret for the REST API and webhooks.
	OptionAPIKey = "superman_links_api_key"
)

type Post struct {
	ID            int64
	PostType      string
	Status        string
	Slug          string
	Title         string
	Content       string
	Author        string
	FeaturedImage string
	PublishedAt   time.Time
	ModifiedAt    time.Time
}

type NewPost struct {
	PostType      string
	Status        string
	Slug          string
	Title         string
	Content       string
	Author        string
	FeaturedImage string
}

// MetaCondition restricts a query by post meta. Keys are OR-ed: a post
// matches when any of them is present with a non-empty value (or with
// Value, when Value is set).
type MetaCondition struct {
	Keys  []string
	Value string
}

type PostQuery struct {
	PostTypes []string
	Status    string
	Meta      []MetaCondition // AND-ed
	Page      int             // 1-based
	PerPage   int
}

type PostPage struct {
	Posts []Post
	Total int
}
