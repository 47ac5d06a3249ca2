package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
	appErrors "github.com/noah-isme/padel-waitlist-api/pkg/errors"
)

type memoryCacheRepo struct {
	values map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

type countingClubs struct {
	clubs map[string]models.Club
	calls int
}

func (c *countingClubs) FindByID(ctx context.Context, id string) (*models.Club, error) {
	c.calls++
	club, ok := c.clubs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &club, nil
}

func TestClubDirectoryServiceCachesChannel(t *testing.T) {
	channel := testChannel
	clubs := &countingClubs{clubs: map[string]models.Club{testClubID: {ID: testClubID, WhatsAppChannel: &channel}}}
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil)
	svc := NewClubDirectoryService(clubs, cache, 10*time.Minute, nil)
	ctx := context.Background()

	got, err := svc.BroadcastChannel(ctx, testClubID)
	require.NoError(t, err)
	assert.Equal(t, testChannel, got)
	got, err = svc.BroadcastChannel(ctx, testClubID)
	require.NoError(t, err)
	assert.Equal(t, testChannel, got)
	assert.Equal(t, 1, clubs.calls)
	assert.Equal(t, 10*time.Minute, repo.ttls["club:"+testClubID+":channel"])

	require.NoError(t, svc.Forget(ctx, testClubID))
	_, err = svc.BroadcastChannel(ctx, testClubID)
	require.NoError(t, err)
	assert.Equal(t, 2, clubs.calls)
}

func TestClubDirectoryServiceUnknownClubHasNoChannel(t *testing.T) {
	svc := NewClubDirectoryService(&countingClubs{clubs: map[string]models.Club{}}, nil, time.Minute, nil)

	got, err := svc.BroadcastChannel(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClubDirectoryServiceFallsBackWhenCacheFails(t *testing.T) {
	channel := testChannel
	clubs := &countingClubs{clubs: map[string]models.Club{testClubID: {ID: testClubID, WhatsAppChannel: &channel}}}
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis: connection refused")
	cache := NewCacheService(repo, nil, time.Minute, nil)
	svc := NewClubDirectoryService(clubs, cache, time.Minute, nil)

	got, err := svc.BroadcastChannel(context.Background(), testClubID)
	require.NoError(t, err)
	assert.Equal(t, testChannel, got)
}

func TestClubDirectoryServiceCachesMissingChannel(t *testing.T) {
	clubs := &countingClubs{clubs: map[string]models.Club{testClubID: {ID: testClubID}}}
	svc := NewClubDirectoryService(clubs, NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil), time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := svc.BroadcastChannel(ctx, testClubID)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, 1, clubs.calls)
}

func TestClubDirectoryServicePropagatesLoadError(t *testing.T) {
	svc := NewClubDirectoryService(failingClubs{}, NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil), time.Minute, nil)

	_, err := svc.BroadcastChannel(context.Background(), testClubID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load club")
}

type failingClubs struct{}

func (failingClubs) FindByID(ctx context.Context, id string) (*models.Club, error) {
	return nil, errors.New("connection reset")
}

func TestCacheServiceDisabledAlwaysLoads(t *testing.T) {
	cache := NewCacheService(nil, nil, time.Minute, nil)
	assert.False(t, cache.Enabled())

	loads := 0
	var dest cachedChannel
	for i := 0; i < 2; i++ {
		require.NoError(t, cache.Remember(context.Background(), "k", 0, &dest, func(ctx context.Context) error {
			loads++
			dest.Channel = "x"
			return nil
		}))
	}
	assert.Equal(t, 2, loads)
	assert.NoError(t, cache.Invalidate(context.Background(), "k"))
}

func TestCacheServiceUsesDefaultTTL(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 0, nil)

	var dest cachedChannel
	require.NoError(t, cache.Remember(context.Background(), "k", 0, &dest, func(ctx context.Context) error {
		dest.Channel = "x"
		return nil
	}))
	assert.Equal(t, 10*time.Minute, repo.ttls["k"])
}
