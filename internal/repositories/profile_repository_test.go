package repositories

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/alimgiray/devfolio/internal/models"
	"github.com/alimgiray/devfolio/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testProfile(username string, createdAt time.Time) *models.ProfileRecord {
	name := "Name of " + username
	return &models.ProfileRecord{
		Username:        username,
		Name:            &name,
		PublicRepos:     3,
		Followers:       10,
		AvatarKey:       models.AvatarKey(username),
		CreatedAt:       createdAt,
		GitHubCreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestProfileRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(newTestDB(t))
	first := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	t.Run("Insert", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, testProfile("alice", first)))

		stored, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.Username)
		assert.Equal(t, "Name of alice", *stored.Name)
		assert.Nil(t, stored.Bio)
		assert.Equal(t, 3, stored.PublicRepos)
		assert.Equal(t, "avatars/alice.jpg", stored.AvatarKey)
		assert.True(t, first.Equal(stored.CreatedAt))
	})

	t.Run("Overwrite keeps a single row", func(t *testing.T) {
		second := first.Add(time.Hour)
		updated := testProfile("alice", second)
		updated.Followers = 11
		updated.Name = nil

		require.NoError(t, repo.Upsert(ctx, updated))

		profiles, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, profiles, 1)

		stored, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 11, stored.Followers)
		assert.Nil(t, stored.Name)
		assert.True(t, second.Equal(stored.CreatedAt))
		assert.Equal(t, models.AvatarKey("alice"), stored.AvatarKey)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})
}

func TestProfileRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository(newTestDB(t))

	t.Run("Empty", func(t *testing.T) {
		profiles, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, profiles)
		assert.Empty(t, profiles)
	})

	t.Run("All rows", func(t *testing.T) {
		now := time.Now().UTC()
		for _, username := range []string{"alice", "bob", "carol"} {
			require.NoError(t, repo.Upsert(ctx, testProfile(username, now)))
		}

		profiles, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, profiles, 3)

		var usernames []string
		for _, p := range profiles {
			usernames = append(usernames, p.Username)
		}
		assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, usernames)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := repo.List(cancelled)
		assert.Error(t, err)
	})
}
