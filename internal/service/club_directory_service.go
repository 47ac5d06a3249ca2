package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/padel-waitlist-api/internal/models"
)

type clubReader interface {
	FindByID(ctx context.Context, id string) (*models.Club, error)
}

type channelCache interface {
	Remember(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func(ctx context.Context) error) error
	Invalidate(ctx context.Context, keys ...string) error
}

type cachedChannel struct {
	Channel string `json:"channel"`
}

// ClubDirectoryService resolves club broadcast channels, caching lookups in Redis.
type ClubDirectoryService struct {
	clubs  clubReader
	cache  channelCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewClubDirectoryService constructs ClubDirectoryService. cache may be nil.
func NewClubDirectoryService(clubs clubReader, cache channelCache, ttl time.Duration, logger *zap.Logger) *ClubDirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClubDirectoryService{clubs: clubs, cache: cache, ttl: ttl, logger: logger}
}

// BroadcastChannel implements ChannelDirectory. Unknown clubs and clubs without
// a channel both yield "", and that answer is cached too.
func (s *ClubDirectoryService) BroadcastChannel(ctx context.Context, clubID string) (string, error) {
	if s.cache == nil {
		return s.loadChannel(ctx, clubID)
	}

	var cached cachedChannel
	err := s.cache.Remember(ctx, channelCacheKey(clubID), s.ttl, &cached, func(ctx context.Context) error {
		channel, err := s.loadChannel(ctx, clubID)
		cached.Channel = channel
		return err
	})
	if err != nil {
		return "", err
	}
	return cached.Channel, nil
}

func (s *ClubDirectoryService) loadChannel(ctx context.Context, clubID string) (string, error) {
	club, err := s.clubs.FindByID(ctx, clubID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("load club %s: %w", clubID, err)
	}
	if club.WhatsAppChannel == nil {
		return "", nil
	}
	return *club.WhatsAppChannel, nil
}

// Forget drops the cached channel of a club so the next lookup reads the
// clubs table again.
func (s *ClubDirectoryService) Forget(ctx context.Context, clubID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, channelCacheKey(clubID)); err != nil {
		return err
	}
	s.logger.Sugar().Infow("club channel cache cleared", "club_id", clubID)
	return nil
}

func channelCacheKey(clubID string) string {
	return "club:" + clubID + ":channel"
}
