package database

import (
	"context"
)

type PostRepository interface {
	GetPost(ctx context.Context, id int64) (*Post, error)
	FindBySlug(ctx context.Context, slug string, postTypes []string) (*Post, error)
	QueryPosts(ctx context.Context, query PostQuery) (PostPage, error)
	ResolveURL(ctx context.Context, rawURL string) (int64, error)
	Terms(ctx context.Context, postID int64, taxonomy string) ([]string, error)

	InsertPost(ctx context.Context, post NewPost) (int64, error)
	UpdateTitle(ctx context.Context, id int64, title string) error
	TouchPost(ctx context.Context, id int64) error
	TrashPost(ctx context.Context, id int64) error
	SetTerms(ctx context.Context, postID int64, taxonomy string, names []string) error
}

type MetaRepository interface {
	GetMeta(ctx context.Context, postID int64, key string) (string, error)
	SetMeta(ctx context.Context, postID int64, key, value string) error
	DeleteMeta(ctx context.Context, postID int64, key string) error
}

type OptionRepository interface {
	GetOption(ctx context.Context, name string) (string, error)
	SetOption(ctx context.Context, name, value string) error
}
