package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alimgiray/devfolio/internal/models"
	"github.com/alimgiray/devfolio/internal/repositories"
	"github.com/alimgiray/devfolio/internal/storage"
)

// eventLog records the order in which fakes are called
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeSource struct {
	users      map[string]*models.SourceProfile
	avatars    map[string][]byte
	userErr    error
	avatarErr  error
	block      bool
	log        *eventLog
	mu         sync.Mutex
	userCalls  int
	avatarURLs []string
}

func newFakeSource(log *eventLog) *fakeSource {
	return &fakeSource{
		users:   map[string]*models.SourceProfile{},
		avatars: map[string][]byte{},
		log:     log,
	}
}

func (f *fakeSource) addUser(login string) *models.SourceProfile {
	profile := &models.SourceProfile{
		Login:       login,
		PublicRepos: 1,
		Followers:   2,
		AvatarURL:   "https://src/" + login + ".png",
		CreatedAt:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.users[login] = profile
	f.avatars[profile.AvatarURL] = []byte("avatar-of-" + login)
	return profile
}

func (f *fakeSource) FetchUser(ctx context.Context, username string) (*models.SourceProfile, error) {
	f.mu.Lock()
	f.userCalls++
	f.mu.Unlock()
	f.log.add("fetch_user")

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.userErr != nil {
		return nil, f.userErr
	}
	profile, ok := f.users[username]
	if !ok {
		return nil, &UpstreamError{StatusCode: 404, Message: "GitHub user not found"}
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeSource) FetchAvatar(ctx context.Context, avatarURL string) ([]byte, error) {
	f.mu.Lock()
	f.avatarURLs = append(f.avatarURLs, avatarURL)
	f.mu.Unlock()
	f.log.add("fetch_avatar")

	if f.avatarErr != nil {
		return nil, f.avatarErr
	}
	data, ok := f.avatars[avatarURL]
	if !ok {
		return nil, &UpstreamError{StatusCode: 502, Message: "avatar download returned status 404"}
	}
	return data, nil
}

type fakeAvatarStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	types      map[string]string
	putErr     error
	presignErr func(key string) error
	delay      time.Duration
	inFlight   int
	maxFlight  int
	puts       int
	log        *eventLog
}

func newFakeAvatarStore(log *eventLog) *fakeAvatarStore {
	return &fakeAvatarStore{
		objects: map[string][]byte{},
		types:   map[string]string{},
		log:     log,
	}
}

func (f *fakeAvatarStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.log.add("put_avatar")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeAvatarStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeAvatarStore) PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	f.log.add("presign")
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.presignErr != nil {
		if err := f.presignErr(key); err != nil {
			return "", err
		}
	}
	return "https://bucket.example/" + key + "?X-Amz-Expires=" + expiry.String(), nil
}

type fakeProfileStore struct {
	mu        sync.Mutex
	records   map[string]*models.ProfileRecord
	order     []string
	upsertErr error
	listErr   error
	upserts   int
	log       *eventLog
}

func newFakeProfileStore(log *eventLog) *fakeProfileStore {
	return &fakeProfileStore{
		records: map[string]*models.ProfileRecord{},
		log:     log,
	}
}

func (f *fakeProfileStore) Upsert(ctx context.Context, profile *models.ProfileRecord) error {
	f.log.add("upsert")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if _, ok := f.records[profile.Username]; !ok {
		f.order = append(f.order, profile.Username)
	}
	copied := *profile
	f.records[profile.Username] = &copied
	return nil
}

func (f *fakeProfileStore) GetByUsername(ctx context.Context, username string) (*models.ProfileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[username]
	if !ok {
		return nil, repositories.ErrProfileNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeProfileStore) List(ctx context.Context) ([]*models.ProfileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	records := make([]*models.ProfileRecord, 0, len(f.order))
	for _, username := range f.order {
		copied := *f.records[username]
		records = append(records, &copied)
	}
	return records, nil
}

var errBoom = errors.New("boom")

type testDeps struct {
	log      *eventLog
	source   *fakeSource
	avatars  *fakeAvatarStore
	profiles *fakeProfileStore
	service  *ProfileService
}

func newTestDeps(config ProfileServiceConfig) *testDeps {
	log := &eventLog{}
	deps := &testDeps{
		log:      log,
		source:   newFakeSource(log),
		avatars:  newFakeAvatarStore(log),
		profiles: newFakeProfileStore(log),
	}
	deps.service = NewProfileService(deps.source, deps.avatars, deps.profiles, config)
	return deps
}
