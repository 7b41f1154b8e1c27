package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superman-links/links-bridge/app/database"
)

func newOptionStore(t *testing.T) *database.OptionStore {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "links.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(db)
	require.NoError(t, err)

	return database.NewOptionStore(db)
}

func TestGenerateAPIKey(t *testing.T) {
	key, err := generateAPIKey()
	require.NoError(t, err)

	assert.Len(t, key, apiKeyLength)
	for _, r := range key {
		assert.True(t, strings.ContainsRune(apiKeyAlphabet, r), "unexpected character %q", r)
	}

	other, err := generateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestEnsureAPIKey(t *testing.T) {
	ctx := context.Background()

	t.Run("generates once", func(t *testing.T) {
		options := newOptionStore(t)

		require.NoError(t, ensureAPIKey(ctx, options, ""))
		first, err := options.GetOption(ctx, database.OptionAPIKey)
		require.NoError(t, err)
		assert.Len(t, first, apiKeyLength)

		require.NoError(t, ensureAPIKey(ctx, options, ""))
		second, err := options.GetOption(ctx, database.OptionAPIKey)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("configured key wins", func(t *testing.T) {
		options := newOptionStore(t)
		require.NoError(t, options.SetOption(ctx, database.OptionAPIKey, "old"))

		require.NoError(t, ensureAPIKey(ctx, options, "configured"))
		stored, err := options.GetOption(ctx, database.OptionAPIKey)
		require.NoError(t, err)
		assert.Equal(t, "configured", stored)
	})
}
