package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alimgiray/devfolio/internal/metrics"
	"github.com/alimgiray/devfolio/internal/models"
	"github.com/alimgiray/devfolio/internal/repositories"
	"github.com/alimgiray/devfolio/internal/storage"
	"github.com/alimgiray/devfolio/pkg/logger"
)

// ProfileSource is the external profile API
type ProfileSource interface {
	FetchUser(ctx context.Context, username string) (*models.SourceProfile, error)
	FetchAvatar(ctx context.Context, avatarURL string) ([]byte, error)
}

// AvatarStore is the object store holding avatar bytes
type AvatarStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ProfileStore is the metadata store keyed by username
type ProfileStore interface {
	Upsert(ctx context.Context, profile *models.ProfileRecord) error
	GetByUsername(ctx context.Context, username string) (*models.ProfileRecord, error)
	List(ctx context.Context) ([]*models.ProfileRecord, error)
}

type ProfileServiceConfig struct {
	UpstreamTimeout time.Duration
	StorageTimeout  time.Duration
	AvatarURLExpiry time.Duration
}

type ProfileService struct {
	source   ProfileSource
	avatars  AvatarStore
	profiles ProfileStore
	config   ProfileServiceConfig
	now      func() time.Time
}

func NewProfileService(source ProfileSource, avatars AvatarStore, profiles ProfileStore, config ProfileServiceConfig) *ProfileService {
	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = 10 * time.Second
	}
	if config.StorageTimeout <= 0 {
		config.StorageTimeout = 10 * time.Second
	}
	if config.AvatarURLExpiry <= 0 {
		config.AvatarURLExpiry = time.Hour
	}

	return &ProfileService{
		source:   source,
		avatars:  avatars,
		profiles: profiles,
		config:   config,
		now:      time.Now,
	}
}

// Ingest fetches username from GitHub, stores its avatar and record, and
// returns the record with a signed avatar URL. Steps run strictly in order.
func (s *ProfileService) Ingest(ctx context.Context, username string) (*models.HydratedProfile, error) {
	username, err := models.NormalizeUsername(username)
	if err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}
	log := logger.WithField("username", username)

	source, err := s.fetchUser(ctx, username)
	if err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomeUpstreamError).Inc()
		return nil, err
	}
	if source.Login == "" {
		source.Login = username
	}

	avatar, err := s.fetchAvatar(ctx, source.AvatarURL)
	if err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomeUpstreamError).Inc()
		return nil, err
	}

	record := models.NewProfileRecord(source, s.now().UTC())

	// The avatar has to be durable before any record points at it
	if err := s.putAvatar(ctx, record.AvatarKey, avatar); err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomeStorageError).Inc()
		return nil, err
	}

	// No rollback of the avatar on failure: the orphaned object is
	// overwritten by the next ingest of the same username.
	if err := s.upsert(ctx, record); err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomeStorageError).Inc()
		log.WithError(err).WithField("key", record.AvatarKey).Warn("Avatar stored without a profile record")
		return nil, err
	}

	avatarURL, err := s.presign(ctx, record.AvatarKey)
	if err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomeStorageError).Inc()
		return nil, &StorageError{Op: "sign avatar url", Err: err}
	}

	metrics.IngestsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.WithField("key", record.AvatarKey).Info("Profile ingested")

	return models.Hydrate(record, avatarURL), nil
}

// ListAll returns every stored profile with a freshly signed avatar URL,
// in the order the store returned them. Entries whose URL cannot be signed
// are kept with AvatarUnavailable set; only a failed scan fails the listing.
func (s *ProfileService) ListAll(ctx context.Context) ([]*models.HydratedProfile, error) {
	records, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]*models.HydratedProfile, len(records))
	failures := make([]*PartialListingError, len(records))

	var wg sync.WaitGroup
	for i, record := range records {
		wg.Add(1)
		go func(i int, record *models.ProfileRecord) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					failures[i] = &PartialListingError{Username: record.Username, Key: record.AvatarKey, Err: fmt.Errorf("panic: %v", r)}
					profiles[i] = models.Hydrate(record, "")
				}
			}()

			avatarURL, err := s.presign(ctx, record.AvatarKey)
			if err != nil {
				failures[i] = &PartialListingError{Username: record.Username, Key: record.AvatarKey, Err: err}
				profiles[i] = models.Hydrate(record, "")
				return
			}
			profiles[i] = models.Hydrate(record, avatarURL)
		}(i, record)
	}
	wg.Wait()

	for _, failure := range failures {
		if failure == nil {
			continue
		}
		metrics.AvatarPresignFailuresTotal.Inc()
		logger.WithError(failure).WithField("username", failure.Username).Warn("Gallery entry without avatar URL")
	}
	metrics.GalleryProfiles.Set(float64(len(profiles)))

	return profiles, nil
}

// Avatar returns the stored avatar bytes for an ingested username
func (s *ProfileService) Avatar(ctx context.Context, username string) ([]byte, error) {
	username, err := models.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.StorageTimeout)
	defer cancel()

	record, err := s.profiles.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrProfileNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get profile", Err: err}
	}

	data, err := s.avatars.Get(ctx, record.AvatarKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get avatar", Err: err}
	}

	return data, nil
}

// Records returns the stored profiles without signing anything
func (s *ProfileService) Records(ctx context.Context) ([]*models.ProfileRecord, error) {
	return s.list(ctx)
}

func (s *ProfileService) fetchUser(ctx context.Context, username string) (*models.SourceProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.UpstreamTimeout)
	defer cancel()

	source, err := s.source.FetchUser(ctx, username)
	if err != nil {
		return nil, asUpstreamError(ctx, err)
	}
	return source, nil
}

func (s *ProfileService) fetchAvatar(ctx context.Context, avatarURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.UpstreamTimeout)
	defer cancel()

	data, err := s.source.FetchAvatar(ctx, avatarURL)
	if err != nil {
		return nil, asUpstreamError(ctx, err)
	}
	return data, nil
}

func (s *ProfileService) putAvatar(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StorageTimeout)
	defer cancel()

	if err := s.avatars.Put(ctx, key, data, models.AvatarContentType); err != nil {
		return &StorageError{Op: "store avatar", Err: err}
	}
	return nil
}

func (s *ProfileService) upsert(ctx context.Context, record *models.ProfileRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StorageTimeout)
	defer cancel()

	if err := s.profiles.Upsert(ctx, record); err != nil {
		return &StorageError{Op: "upsert profile", Err: err}
	}
	return nil
}

func (s *ProfileService) list(ctx context.Context) ([]*models.ProfileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StorageTimeout)
	defer cancel()

	records, err := s.profiles.List(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list profiles", Err: err}
	}
	return records, nil
}

func (s *ProfileService) presign(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StorageTimeout)
	defer cancel()

	avatarURL, err := s.avatars.PresignURL(ctx, key, s.config.AvatarURLExpiry)
	if err != nil {
		return "", err
	}
	if avatarURL == "" {
		return "", errors.New("empty signed url")
	}
	return avatarURL, nil
}

// asUpstreamError makes sure every source failure carries a status code
func asUpstreamError(ctx context.Context, err error) error {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &UpstreamError{StatusCode: StatusClientClosedRequest, Message: "request cancelled", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &UpstreamError{StatusCode: http.StatusGatewayTimeout, Message: "GitHub request timed out", Err: err}
	}
	return &UpstreamError{StatusCode: http.StatusBadGateway, Message: "GitHub request failed", Err: err}
}
