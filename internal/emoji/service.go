package emoji

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikequentel/threadcomposer/internal/model"
)

// Service fetches from the instance and refreshes the cache, falling back
// to cached emojis when the fetch fails. Store and Logger may be nil; a nil
// Remote serves the cache only.
type Service struct {
	Instance string
	Remote   *Client
	Store    *Store
	Logger   *zap.Logger
}

func (s *Service) FetchCustomEmojis(ctx context.Context) ([]model.EmojiRef, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if s.Remote == nil {
		if s.Store == nil {
			return nil, nil
		}
		return s.Store.List(ctx, s.Instance)
	}

	emojis, err := s.Remote.Fetch(ctx)
	if err == nil {
		if s.Store != nil {
			if serr := s.Store.Replace(ctx, s.Instance, emojis); serr != nil {
				logger.Warn("caching custom emojis failed", zap.String("instance", s.Instance), zap.Error(serr))
			}
		}
		return emojis, nil
	}
	if ctx.Err() != nil || s.Store == nil {
		return nil, err
	}

	cached, cerr := s.Store.List(ctx, s.Instance)
	if cerr != nil || len(cached) == 0 {
		return nil, err
	}
	logger.Warn("custom emoji fetch failed, using cache",
		zap.String("instance", s.Instance),
		zap.Int("cached", len(cached)),
		zap.Error(err))
	return cached, nil
}
