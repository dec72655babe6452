package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/kafka"
	"github.com/agaaaptr/open-socmed/internal/profile"
)

type Profiles interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]profile.Profile, error)
}

type Service struct {
	repo     Repository
	profiles Profiles
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, profiles Profiles, log *zap.Logger) *Service {
	return &Service{repo: repo, profiles: profiles, log: log, now: time.Now}
}

// List returns uid's notifications, newest first.
func (s *Service) List(ctx context.Context, uid string, limit int64) ([]View, error) {
	items, err := s.repo.List(ctx, uid, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, n := range items {
		if id, err := uuid.Parse(n.SenderUserID); err == nil {
			ids = append(ids, id)
		}
	}
	senders, err := s.profiles.Lookup(ctx, ids)
	if err != nil {
		s.log.Warn("resolve notification senders", zap.Error(err))
		senders = nil
	}

	out := make([]View, 0, len(items))
	for _, n := range items {
		v := View{Notification: n, SenderUsername: "Unknown", SenderFullName: "Unknown User"}
		if id, err := uuid.Parse(n.SenderUserID); err == nil {
			if p, ok := senders[id]; ok {
				v.SenderUsername = p.Username
				v.SenderFullName = p.FullName
				v.SenderAvatarURL = p.AvatarURL
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) MarkAllRead(ctx context.Context, uid string) (int, error) {
	return s.repo.MarkAllRead(ctx, uid)
}

// OnFollowEvent tells the followed user about a new follower.
func (s *Service) OnFollowEvent(ctx context.Context, ev kafka.Event) error {
	if ev.TargetID == "" || ev.TargetID == ev.ActorID {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = s.now().UTC()
	}
	n := Notification{
		ID:              uuid.NewString(),
		RecipientUserID: ev.TargetID,
		SenderUserID:    ev.ActorID,
		Type:            TypeFollow,
		CreatedAt:       at,
	}
	if err := s.repo.Push(ctx, n); err != nil {
		return fmt.Errorf("push follow notification: %w", err)
	}
	return nil
}
