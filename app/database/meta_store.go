package database

import (
	"context"
	"database/sql"
	"fmt"
)

var _ MetaRepository = (*MetaStore)(nil)

// MetaStore keeps per-post key/value metadata. A missing key reads as "".
type MetaStore struct {
	db *DB
}

func NewMetaStore(db *DB) *MetaStore {
	return &MetaStore{db: db}
}

func (s *MetaStore) GetMeta(ctx context.Context, postID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT meta_value FROM post_meta WHERE post_id = ? AND meta_key = ?
	`, postID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta %s: %w", key, err)
	}
	return value, nil
}

func (s *MetaStore) SetMeta(ctx context.Context, postID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES (?, ?, ?)
		ON CONFLICT (post_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value
	`, postID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}

func (s *MetaStore) DeleteMeta(ctx context.Context, postID int64, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM post_meta WHERE post_id = ? AND meta_key = ?
	`, postID, key)
	if err != nil {
		return fmt.Errorf("failed to delete meta %s: %w", key, err)
	}
	return nil
}

var _ OptionRepository = (*OptionStore)(nil)

type OptionStore struct {
	db *DB
}

func NewOptionStore(db *DB) *OptionStore {
	return &OptionStore{db: db}
}

func (s *OptionStore) GetOption(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get option %s: %w", name, err)
	}
	return value, nil
}

func (s *OptionStore) SetOption(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO options (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value
	`, name, value)
	if err != nil {
		return fmt.Errorf("failed to set option %s: %w", name, err)
	}
	return nil
}
