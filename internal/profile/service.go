package profile

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username is already taken")
	ErrInvalidUsername = errors.New("username must be 3-30 letters, digits, dots or underscores")
	ErrNothingToUpdate = errors.New("no fields to update")
	ErrInvalidID       = errors.New("invalid user id")
	ErrEmptyQuery      = errors.New("search query is required")
)

const searchLimit = 20

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.]{3,30}$`)

type Service interface {
	Get(ctx context.Context, id string) (*Profile, error)
	GetByUsername(ctx context.Context, username string) (*Profile, error)
	Update(ctx context.Context, id string, req UpdateReq) (*Profile, error)
	Search(ctx context.Context, q string) ([]Profile, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Profile, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Get(ctx context.Context, id string) (*Profile, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.repo.FindByID(ctx, uid)
}

func (s *service) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	return s.repo.FindByUsername(ctx, strings.TrimSpace(username))
}

func (s *service) Update(ctx context.Context, id string, req UpdateReq) (*Profile, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if !usernameRe.MatchString(name) {
			return nil, ErrInvalidUsername
		}
		existing, err := s.repo.FindByUsername(ctx, name)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return nil, err
		case existing.ID != uid:
			return nil, ErrUsernameTaken
		}
		updates["username"] = name
	}
	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}
	updates["updated_at"] = s.now().UTC()

	if err := s.repo.Update(ctx, uid, updates); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.repo.FindByID(ctx, uid)
}

func (s *service) Search(ctx context.Context, q string) ([]Profile, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	return s.repo.Search(ctx, q, searchLimit)
}

func (s *service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if !usernameRe.MatchString(username) {
		return false, ErrInvalidUsername
	}
	_, err := s.repo.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrNotFound):
		return true, nil
	case err != nil:
		return false, err
	default:
		return false, nil
	}
}

// Lookup loads the profiles for ids. Missing ids are absent from the map.
func (s *service) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Profile, error) {
	list, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]Profile, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}
