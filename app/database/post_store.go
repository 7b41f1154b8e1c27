package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrPostNotFound = errors.New("post not found")

var _ PostRepository = (*PostStore)(nil)

type PostStore struct {
	db *DB
}

func NewPostStore(db *DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `id, post_type, status, slug, title, content, author, featured_image, published_at, modified_at`

func scanPost(row interface{ Scan(...any) error }) (*Post, error) {
	var post Post
	var publishedAt, modifiedAt string

	err := row.Scan(&post.ID, &post.PostType, &post.Status, &post.Slug, &post.Title,
		&post.Content, &post.Author, &post.FeaturedImage, &publishedAt, &modifiedAt)
	if err != nil {
		return nil, err
	}

	post.PublishedAt = parseTime(publishedAt)
	post.ModifiedAt = parseTime(modifiedAt)

	return &post, nil
}

func (r *PostStore) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// FindBySlug returns the best match for slug among live records, preferring
// published ones.
func (r *PostStore) FindBySlug(ctx context.Context, slug string, postTypes []string) (*Post, error) {
	if slug == "" {
		return nil, nil
	}

	where := []string{"slug = ?", "status NOT IN (?, ?, ?)"}
	args := []any{slug, StatusTrash, StatusAutoDraft, StatusInherit}

	if len(postTypes) > 0 {
		where = append(where, "post_type IN ("+placeholders(len(postTypes))+")")
		for _, postType := range postTypes {
			args = append(args, postType)
		}
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY CASE WHEN status = 'publish' THEN 0 ELSE 1 END, id
		LIMIT 1
	`, args...)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by slug: %w", err)
	}

	return post, nil
}

// ResolveURL maps a public URL (absolute or relative) to a post id. A
// ?p= or ?page_id= query wins; otherwise the last path segment is taken as
// the slug. Host, trailing slashes and other query parameters are ignored.
// Returns 0 when nothing matches.
func (r *PostStore) ResolveURL(ctx context.Context, rawURL string) (int64, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0, nil
	}

	query := u.Query()
	for _, param := range []string{"p", "page_id"} {
		if value := query.Get(param); value != "" {
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil || id <= 0 {
				return 0, nil
			}
			post, err := r.GetPost(ctx, id)
			if err != nil {
				return 0, err
			}
			if post == nil || post.Status == StatusTrash || post.PostType == TypeRevision {
				return 0, nil
			}
			return post.ID, nil
		}
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	slug := strings.ToLower(segments[len(segments)-1])
	if slug == "" {
		return 0, nil
	}

	post, err := r.FindBySlug(ctx, slug, nil)
	if err != nil {
		return 0, err
	}
	if post == nil || post.PostType == TypeRevision {
		return 0, nil
	}

	return post.ID, nil
}

func (r *PostStore) QueryPosts(ctx context.Context, query PostQuery) (PostPage, error) {
	var where []string
	var args []any

	if len(query.PostTypes) > 0 {
		where = append(where, "post_type IN ("+placeholders(len(query.PostTypes))+")")
		for _, postType := range query.PostTypes {
			args = append(args, postType)
		}
	}

	if query.Status != "" {
		where = append(where, "status = ?")
		args = append(args, query.Status)
	}

	for _, cond := range query.Meta {
		if len(cond.Keys) == 0 {
			continue
		}
		clause := "EXISTS (SELECT 1 FROM post_meta m WHERE m.post_id = posts.id AND m.meta_key IN (" + placeholders(len(cond.Keys)) + ")"
		for _, key := range cond.Keys {
			args = append(args, key)
		}
		if cond.Value != "" {
			clause += " AND m.meta_value = ?)"
			args = append(args, cond.Value)
		} else {
			clause += " AND m.meta_value != '')"
		}
		where = append(where, clause)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts `+whereSQL, args...).Scan(&total); err != nil {
		return PostPage{}, fmt.Errorf("failed to count posts: %w", err)
	}

	limit := query.PerPage
	if limit <= 0 {
		limit = -1
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	offset := 0
	if limit > 0 {
		offset = (page - 1) * limit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		`+whereSQL+`
		ORDER BY modified_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return PostPage{}, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return PostPage{}, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return PostPage{}, fmt.Errorf("failed to iterate post rows: %w", err)
	}

	return PostPage{Posts: posts, Total: total}, nil
}

func (r *PostStore) Terms(ctx context.Context, postID int64, taxonomy string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM post_terms
		WHERE post_id = ? AND taxonomy = ?
		ORDER BY name
	`, postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to get terms: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan term row: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// InsertPost creates a post and returns its id. A slug already taken by a
// live record gets a numeric suffix (-2, -3, ...).
func (r *PostStore) InsertPost(ctx context.Context, post NewPost) (int64, error) {
	if post.PostType == "" {
		return 0, fmt.Errorf("post type is required")
	}
	if post.Status == "" {
		post.Status = StatusDraft
	}

	slug, err := r.uniqueSlug(ctx, post.Slug)
	if err != nil {
		return 0, err
	}

	now := formatTime(time.Now())

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (post_type, status, slug, title, content, author, featured_image, published_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, post.PostType, post.Status, slug, post.Title, post.Content, post.Author, post.FeaturedImage, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted post id: %w", err)
	}

	return id, nil
}

func (r *PostStore) uniqueSlug(ctx context.Context, slug string) (string, error) {
	if slug == "" {
		return "", nil
	}

	candidate := slug
	for suffix := 2; ; suffix++ {
		var count int
		err := r.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM posts WHERE slug = ? AND status != ?
		`, candidate, StatusTrash).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = slug + "-" + strconv.Itoa(suffix)
	}
}

func (r *PostStore) UpdateTitle(ctx context.Context, id int64, title string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, modified_at = ? WHERE id = ?
	`, title, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update post title: %w", err)
	}

	return requireAffected(result)
}

// TouchPost bumps modified_at after a change stored outside the posts table.
func (r *PostStore) TouchPost(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE posts SET modified_at = ? WHERE id = ?
	`, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to touch post: %w", err)
	}

	return requireAffected(result)
}

func (r *PostStore) TrashPost(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE posts SET status = ?, modified_at = ? WHERE id = ?
	`, StatusTrash, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to trash post: %w", err)
	}

	return requireAffected(result)
}

func (r *PostStore) SetTerms(ctx context.Context, postID int64, taxonomy string, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_terms WHERE post_id = ? AND taxonomy = ?`, postID, taxonomy); err != nil {
		return fmt.Errorf("failed to clear terms: %w", err)
	}

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO post_terms (post_id, taxonomy, name) VALUES (?, ?, ?)
		`, postID, taxonomy, name); err != nil {
			return fmt.Errorf("failed to insert term: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit terms: %w", err)
	}

	return nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
