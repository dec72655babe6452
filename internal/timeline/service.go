package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/kafka"
	"github.com/agaaaptr/open-socmed/internal/posts"
)

var ErrInvalidID = errors.New("invalid user id")

// Graph answers who follows whom.
type Graph interface {
	FollowingIDs(ctx context.Context, uid uuid.UUID) ([]uuid.UUID, error)
	FollowerIDs(ctx context.Context, uid uuid.UUID) ([]uuid.UUID, error)
}

type PostLister interface {
	ListByAuthors(ctx context.Context, authors []uuid.UUID, limit, offset int) ([]posts.Post, error)
}

type Service struct {
	graph Graph
	posts PostLister
	cache Cache
	log   *zap.Logger
}

func NewService(graph Graph, lister PostLister, cache Cache, log *zap.Logger) *Service {
	return &Service{graph: graph, posts: lister, cache: cache, log: log}
}

// Get returns the posts of everyone uid follows plus uid's own, newest
// first. The first page is served from the cache when it is warm.
func (s *Service) Get(ctx context.Context, uid string, limit, offset int) ([]posts.Post, error) {
	viewer, err := uuid.Parse(uid)
	if err != nil {
		return nil, ErrInvalidID
	}
	if limit <= 0 || limit > posts.MaxLimit {
		limit = posts.DefaultLimit
	}
	offset = max(offset, 0)
	cacheable := s.cache != nil && offset == 0 && limit == posts.DefaultLimit

	if cacheable {
		items, ok, err := s.cache.Get(ctx, uid)
		switch {
		case err != nil:
			s.log.Warn("timeline cache read", zap.String("user_id", uid), zap.Error(err))
		case ok:
			return items, nil
		}
	}

	authors, err := s.graph.FollowingIDs(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("load following: %w", err)
	}
	authors = append(authors, viewer)
	items, err := s.posts.ListByAuthors(ctx, authors, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	if items == nil {
		items = []posts.Post{}
	}

	if cacheable {
		if err := s.cache.Set(ctx, uid, items); err != nil {
			s.log.Warn("timeline cache write", zap.String("user_id", uid), zap.Error(err))
		}
	}
	return items, nil
}

// OnPostEvent drops the cached timelines that show the author's posts.
func (s *Service) OnPostEvent(ctx context.Context, ev kafka.Event) error {
	if s.cache == nil {
		return nil
	}
	author, err := uuid.Parse(ev.ActorID)
	if err != nil {
		return fmt.Errorf("post event actor %q: %w", ev.ActorID, err)
	}
	followers, err := s.graph.FollowerIDs(ctx, author)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(followers)+1)
	ids = append(ids, ev.ActorID)
	for _, f := range followers {
		ids = append(ids, f.String())
	}
	return s.cache.Invalidate(ctx, ids...)
}

// OnFollowEvent drops the follower's cached timeline.
func (s *Service) OnFollowEvent(ctx context.Context, ev kafka.Event) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, ev.ActorID)
}
