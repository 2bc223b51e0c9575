package models

import (
	"errors"
	"strings"
	"time"
)

const (
	// AvatarKeyPrefix namespaces avatar objects inside the bucket
	AvatarKeyPrefix = "avatars/"
	// AvatarContentType is stored with every avatar regardless of what GitHub served
	AvatarContentType = "image/jpeg"

	maxUsernameLength = 39
)

var ErrInvalidUsername = errors.New("invalid username")

// ProfileRecord is the persisted profile, one row per username
type ProfileRecord struct {
	Username        string    `json:"username" db:"username"`
	Name            *string   `json:"name" db:"name"`
	Bio             *string   `json:"bio" db:"bio"`
	PublicRepos     int       `json:"public_repos" db:"public_repos"`
	Followers       int       `json:"followers" db:"followers"`
	AvatarKey       string    `json:"avatar_s3_key" db:"avatar_s3_key"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	GitHubCreatedAt time.Time `json:"github_created_at" db:"github_created_at"`
}

// HydratedProfile is a ProfileRecord plus a freshly signed avatar URL.
// It is never stored.
type HydratedProfile struct {
	ProfileRecord
	AvatarURL *string `json:"avatar_url"`
	// AvatarUnavailable marks entries whose URL could not be signed
	AvatarUnavailable bool `json:"avatar_unavailable,omitempty"`
}

// SourceProfile is what the GitHub users endpoint returns for a login
type SourceProfile struct {
	Login       string
	Name        *string
	Bio         *string
	PublicRepos int
	Followers   int
	AvatarURL   string
	CreatedAt   time.Time
}

// NewProfileRecord copies the source fields and derives the avatar key
func NewProfileRecord(src *SourceProfile, now time.Time) *ProfileRecord {
	username := strings.ToLower(src.Login)
	return &ProfileRecord{
		Username:        username,
		Name:            src.Name,
		Bio:             src.Bio,
		PublicRepos:     nonNegative(src.PublicRepos),
		Followers:       nonNegative(src.Followers),
		AvatarKey:       AvatarKey(username),
		CreatedAt:       now,
		GitHubCreatedAt: src.CreatedAt,
	}
}

// Hydrate attaches a signed URL. An empty URL marks the avatar unavailable.
func Hydrate(record *ProfileRecord, avatarURL string) *HydratedProfile {
	profile := &HydratedProfile{ProfileRecord: *record}
	if avatarURL == "" {
		profile.AvatarUnavailable = true
		return profile
	}
	profile.AvatarURL = &avatarURL
	return profile
}

// AvatarKey maps a username to its object key. Usernames are compared
// case-insensitively, so "Alice" and "alice" share one key.
func AvatarKey(username string) string {
	return AvatarKeyPrefix + strings.ToLower(username) + ".jpg"
}

// NormalizeUsername trims and lower-cases a username and checks it against
// GitHub's login rules: alphanumerics and single hyphens, no leading or
// trailing hyphen, at most 39 characters.
func NormalizeUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || len(username) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	if username[0] == '-' || username[len(username)-1] == '-' || strings.Contains(username, "--") {
		return "", ErrInvalidUsername
	}
	for _, r := range username {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
			return "", ErrInvalidUsername
		}
	}
	return username, nil
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
