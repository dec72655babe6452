package follow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/kafka"
	"github.com/agaaaptr/open-socmed/internal/profile"
)

var (
	ErrInvalidID  = errors.New("invalid user id")
	ErrSelfFollow = errors.New("users cannot follow themselves")
)

// Profiles resolves user ids to profiles.
type Profiles interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]profile.Profile, error)
}

type Service interface {
	Follow(ctx context.Context, uid, target string) (*Follow, error)
	Unfollow(ctx context.Context, uid, target string) error
	Followers(ctx context.Context, userID string) ([]profile.Profile, error)
	Following(ctx context.Context, userID string) ([]profile.Profile, error)
	FollowingIDs(ctx context.Context, uid uuid.UUID) ([]uuid.UUID, error)
	FollowerIDs(ctx context.Context, uid uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	repo     Repository
	profiles Profiles
	events   kafka.Writer
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, profiles Profiles, events kafka.Writer, log *zap.Logger) Service {
	return &service{repo: repo, profiles: profiles, events: events, log: log, now: time.Now}
}

func (s *service) Follow(ctx context.Context, uid, target string) (*Follow, error) {
	follower, following, err := parsePair(uid, target)
	if err != nil {
		return nil, err
	}
	if _, err := s.lookupOne(ctx, following); err != nil {
		return nil, err
	}
	f := &Follow{ID: uuid.New(), FollowerID: follower, FollowingID: following, CreatedAt: s.now().UTC()}
	created, err := s.repo.Create(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("create follow: %w", err)
	}
	if created {
		s.publish(ctx, kafka.FollowCreated, follower, following)
	}
	return f, nil
}

func (s *service) Unfollow(ctx context.Context, uid, target string) error {
	follower, following, err := parsePair(uid, target)
	if err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, follower, following)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	if removed {
		s.publish(ctx, kafka.FollowDeleted, follower, following)
	}
	return nil
}

func (s *service) Followers(ctx context.Context, userID string) ([]profile.Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidID
	}
	ids, err := s.repo.FollowerIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

func (s *service) Following(ctx context.Context, userID string) ([]profile.Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidID
	}
	ids, err := s.repo.FollowingIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, ids)
}

func (s *service) FollowingIDs(ctx context.Context, uid uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.FollowingIDs(ctx, uid)
}

func (s *service) FollowerIDs(ctx context.Context, uid uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.FollowerIDs(ctx, uid)
}

func (s *service) resolve(ctx context.Context, ids []uuid.UUID) ([]profile.Profile, error) {
	m, err := s.profiles.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]profile.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *service) lookupOne(ctx context.Context, id uuid.UUID) (profile.Profile, error) {
	m, err := s.profiles.Lookup(ctx, []uuid.UUID{id})
	if err != nil {
		return profile.Profile{}, err
	}
	p, ok := m[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, nil
}

func (s *service) publish(ctx context.Context, t kafka.EventType, follower, following uuid.UUID) {
	if s.events == nil {
		return
	}
	ev := kafka.Event{Type: t, ActorID: follower.String(), TargetID: following.String(), At: s.now().UTC()}
	if err := s.events.WriteJSON(ctx, ev); err != nil {
		s.log.Warn("publish follow event", zap.String("type", string(t)), zap.Error(err))
	}
}

func parsePair(uid, target string) (uuid.UUID, uuid.UUID, error) {
	follower, err := uuid.Parse(uid)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidID
	}
	following, err := uuid.Parse(target)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidID
	}
	if follower == following {
		return uuid.Nil, uuid.Nil, ErrSelfFollow
	}
	return follower, following, nil
}
