package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/kafka"
	"github.com/agaaaptr/open-socmed/internal/post"
)

var (
	ErrInvalidID   = errors.New("invalid post id")
	ErrRateLimited = errors.New("too many posts, slow down")
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Limiter decides whether key may act again.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Invalidator drops cached timelines. timeline.Cache satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...string) error
}

type Option func(*service)

// WithTimelineInvalidator drops the author's own cached timeline as soon as
// one of their posts changes. Followers' timelines are left to the event
// consumer.
func WithTimelineInvalidator(c Invalidator) Option {
	return func(s *service) { s.timelines = c }
}

type Service interface {
	Create(ctx context.Context, uid, content string) (*Post, error)
	Update(ctx context.Context, uid, id, content string) (*Post, error)
	Delete(ctx context.Context, uid, id string) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Post, error)
}

type service struct {
	repo      Repository
	events    kafka.Writer
	limiter   Limiter
	timelines Invalidator
	log       *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, events kafka.Writer, limiter Limiter, log *zap.Logger, opts ...Option) Service {
	s := &service{repo: repo, events: events, limiter: limiter, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, uid, content string) (*Post, error) {
	author, err := uuid.Parse(uid)
	if err != nil {
		return nil, post.ErrUnauthenticated
	}
	content = post.Normalize(content)
	if err := post.Validate(content); err != nil {
		return nil, err
	}
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, uid)
		if err != nil {
			s.log.Warn("post rate limiter unavailable", zap.Error(err))
		} else if !ok {
			return nil, ErrRateLimited
		}
	}

	now := s.now().UTC()
	p := &Post{ID: uuid.New(), UserID: author, Content: content, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	out, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("reload post: %w", err)
	}
	s.changed(ctx, kafka.PostCreated, uid, p.ID)
	return out, nil
}

func (s *service) Update(ctx context.Context, uid, id, content string) (*Post, error) {
	p, err := s.owned(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	content = post.Normalize(content)
	if err := post.Validate(content); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateContent(ctx, p.ID, content); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	out, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("reload post: %w", err)
	}
	s.changed(ctx, kafka.PostUpdated, uid, p.ID)
	return out, nil
}

func (s *service) Delete(ctx context.Context, uid, id string) error {
	p, err := s.owned(ctx, uid, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	s.changed(ctx, kafka.PostDeleted, uid, p.ID)
	return nil
}

func (s *service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Post, error) {
	author, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.repo.ListByAuthors(ctx, []uuid.UUID{author}, clampLimit(limit), max(offset, 0))
}

// owned loads id and checks it belongs to uid.
func (s *service) owned(ctx context.Context, uid, id string) (*Post, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	p, err := s.repo.FindByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	if p.UserID.String() != uid {
		return nil, post.ErrForbidden
	}
	return p, nil
}

// changed runs after a committed write. The author's timeline is dropped
// before returning so their next read sees the write.
func (s *service) changed(ctx context.Context, t kafka.EventType, uid string, id uuid.UUID) {
	if s.timelines != nil {
		if err := s.timelines.Invalidate(ctx, uid); err != nil {
			s.log.Warn("invalidate author timeline", zap.String("user_id", uid), zap.Error(err))
		}
	}
	s.publish(ctx, t, uid, id)
}

// publish is best effort: the write is already committed, and readers
// that miss the event only see a stale timeline until the cache expires.
func (s *service) publish(ctx context.Context, t kafka.EventType, uid string, id uuid.UUID) {
	if s.events == nil {
		return
	}
	ev := kafka.Event{Type: t, ActorID: uid, PostID: id.String(), At: s.now().UTC()}
	if err := s.events.WriteJSON(ctx, ev); err != nil {
		s.log.Warn("publish post event", zap.String("type", string(t)), zap.Error(err))
	}
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}
