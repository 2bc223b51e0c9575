package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alimgiray/devfolio/internal/metrics"
	"github.com/alimgiray/devfolio/internal/models"
	"github.com/google/go-github/v57/github"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
)

const maxAvatarBytes = 10 << 20

// GitHubConfig configures the GitHub profile source
type GitHubConfig struct {
	// APIURL overrides https://api.github.com/, mostly for tests
	APIURL          string
	Token           string
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// GitHubService fetches public user profiles and avatar images from GitHub
type GitHubService struct {
	client        *github.Client
	httpClient    *http.Client
	apiBreaker    *gobreaker.CircuitBreaker[*github.User]
	avatarBreaker *gobreaker.CircuitBreaker[[]byte]
}

// NewGitHubService builds the API client on top of httpClient. Avatar
// downloads use httpClient directly so the token never leaves api.github.com.
func NewGitHubService(cfg GitHubConfig, httpClient *http.Client) (*GitHubService, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	apiHTTPClient := httpClient
	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.Token},
		)
		apiHTTPClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(apiHTTPClient)
	if cfg.APIURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(cfg.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = baseURL
	}

	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	return &GitHubService{
		client:        client,
		httpClient:    httpClient,
		apiBreaker:    gobreaker.NewCircuitBreaker[*github.User](breakerSettings("github-api", cfg)),
		avatarBreaker: gobreaker.NewCircuitBreaker[[]byte](breakerSettings("github-avatars", cfg)),
	}, nil
}

func breakerSettings(name string, cfg GitHubConfig) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// an unknown username is an answer, not an outage
		IsSuccessful: func(err error) bool {
			// a caller hanging up says nothing about GitHub's health
			if errors.Is(err, context.Canceled) {
				return true
			}
			var upstreamErr *UpstreamError
			if errors.As(err, &upstreamErr) {
				return upstreamErr.StatusCode >= 400 && upstreamErr.StatusCode < 500
			}
			return err == nil
		},
	}
}

// FetchUser retrieves the public profile for username
func (s *GitHubService) FetchUser(ctx context.Context, username string) (*models.SourceProfile, error) {
	start := time.Now()
	user, err := s.apiBreaker.Execute(func() (*github.User, error) {
		user, _, err := s.client.Users.Get(ctx, username)
		if err != nil {
			return nil, translateGitHubError(ctx, err)
		}
		return user, nil
	})
	metrics.UpstreamRequestDuration.WithLabelValues("get_user").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, breakerError(err, "GitHub API")
	}

	profile := &models.SourceProfile{
		Login:       user.GetLogin(),
		Name:        user.Name,
		Bio:         user.Bio,
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		AvatarURL:   user.GetAvatarURL(),
		CreatedAt:   user.GetCreatedAt().Time,
	}
	if profile.AvatarURL == "" {
		return nil, &UpstreamError{StatusCode: http.StatusBadGateway, Message: "GitHub user has no avatar"}
	}

	return profile, nil
}

// FetchAvatar downloads the avatar image at avatarURL
func (s *GitHubService) FetchAvatar(ctx context.Context, avatarURL string) ([]byte, error) {
	start := time.Now()
	data, err := s.avatarBreaker.Execute(func() ([]byte, error) {
		return s.download(ctx, avatarURL)
	})
	metrics.UpstreamRequestDuration.WithLabelValues("download_avatar").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, breakerError(err, "avatar host")
	}
	return data, nil
}

func (s *GitHubService) download(ctx context.Context, avatarURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return nil, &UpstreamError{StatusCode: http.StatusBadGateway, Message: "invalid avatar URL", Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, "avatar download failed", err)
	}
	defer resp.Body.Close()

	// A missing avatar is our gateway failure, not a missing user
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("avatar download returned status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes+1))
	if err != nil {
		return nil, transportError(ctx, "avatar download failed", err)
	}
	if len(data) > maxAvatarBytes {
		return nil, &UpstreamError{StatusCode: http.StatusBadGateway, Message: "avatar exceeds size limit"}
	}
	if len(data) == 0 {
		return nil, &UpstreamError{StatusCode: http.StatusBadGateway, Message: "avatar is empty"}
	}

	return data, nil
}

// translateGitHubError keeps GitHub's status code where there is one
func translateGitHubError(ctx context.Context, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &UpstreamError{StatusCode: rateErr.Response.StatusCode, Message: "GitHub API rate limit exceeded", Err: err}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return &UpstreamError{StatusCode: abuseErr.Response.StatusCode, Message: "GitHub API secondary rate limit exceeded", Err: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		if status == http.StatusNotFound {
			return &UpstreamError{StatusCode: status, Message: "GitHub user not found"}
		}
		return &UpstreamError{StatusCode: status, Message: "GitHub API error: " + respErr.Message, Err: err}
	}

	return transportError(ctx, "GitHub API unreachable", err)
}

func transportError(ctx context.Context, message string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &UpstreamError{StatusCode: StatusClientClosedRequest, Message: "request cancelled: " + message, Err: context.Canceled}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &UpstreamError{StatusCode: http.StatusGatewayTimeout, Message: "timed out: " + message, Err: err}
	}
	return &UpstreamError{StatusCode: http.StatusBadGateway, Message: message, Err: err}
}

func breakerError(err error, target string) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &UpstreamError{StatusCode: http.StatusServiceUnavailable, Message: target + " temporarily unavailable", Err: err}
	}
	return err
}
