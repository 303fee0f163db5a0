package leaderboard

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Source reads submission rows.
type Source interface {
	Rows(ctx context.Context, eventID uuid.UUID) ([]Row, error)
}

// Cache stores computed leaderboards.
type Cache interface {
	Get(ctx context.Context, eventID uuid.UUID) ([]Entry, bool, error)
	Set(ctx context.Context, eventID uuid.UUID, entries []Entry) error
	Invalidate(ctx context.Context, eventID uuid.UUID) error
}

// Service serves leaderboards, computing on cache miss.
type Service struct {
	source Source
	cache  Cache
	logger *zap.Logger
}

// NewService creates a leaderboard service. cache may be nil.
func NewService(source Source, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// Get returns the ranked leaderboard. Cache errors fall back to computing.
func (s *Service) Get(ctx context.Context, eventID uuid.UUID) ([]Entry, error) {
	if s.cache != nil {
		entries, ok, err := s.cache.Get(ctx, eventID)
		if err != nil {
			s.logger.Warn("leaderboard cache read failed", zap.Error(err), zap.String("event_id", eventID.String()))
		} else if ok {
			return entries, nil
		}
	}
	rows, err := s.source.Rows(ctx, eventID)
	if err != nil {
		return nil, err
	}
	entries := Aggregate(rows)
	if s.cache != nil {
		if err := s.cache.Set(ctx, eventID, entries); err != nil {
			s.logger.Warn("leaderboard cache write failed", zap.Error(err), zap.String("event_id", eventID.String()))
		}
	}
	return entries, nil
}
