package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alimgiray/devfolio/internal/models"
)

// ErrProfileNotFound is returned when no row exists for a username
var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert inserts the profile or fully overwrites the row with the same username
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.ProfileRecord) error {
	query := `
		INSERT INTO profiles (
			username, name, bio, public_repos, followers, avatar_s3_key, created_at, github_created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			name = excluded.name,
			bio = excluded.bio,
			public_repos = excluded.public_repos,
			followers = excluded.followers,
			avatar_s3_key = excluded.avatar_s3_key,
			created_at = excluded.created_at,
			github_created_at = excluded.github_created_at
	`

	_, err := r.db.ExecContext(ctx, query,
		profile.Username, profile.Name, profile.Bio, profile.PublicRepos, profile.Followers,
		profile.AvatarKey, profile.CreatedAt.UTC(), profile.GitHubCreatedAt.UTC(),
	)

	return err
}

func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*models.ProfileRecord, error) {
	query := `
		SELECT username, name, bio, public_repos, followers, avatar_s3_key, created_at, github_created_at
		FROM profiles WHERE username = ?
	`

	var profile models.ProfileRecord
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&profile.Username, &profile.Name, &profile.Bio, &profile.PublicRepos, &profile.Followers,
		&profile.AvatarKey, &profile.CreatedAt, &profile.GitHubCreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// List returns every stored profile. Order is whatever SQLite scans in.
func (r *ProfileRepository) List(ctx context.Context) ([]*models.ProfileRecord, error) {
	query := `
		SELECT username, name, bio, public_repos, followers, avatar_s3_key, created_at, github_created_at
		FROM profiles
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []*models.ProfileRecord{}
	for rows.Next() {
		profile := &models.ProfileRecord{}
		err := rows.Scan(
			&profile.Username,
			&profile.Name,
			&profile.Bio,
			&profile.PublicRepos,
			&profile.Followers,
			&profile.AvatarKey,
			&profile.CreatedAt,
			&profile.GitHubCreatedAt,
		)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}
