package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	FindByUsername(ctx context.Context, username string) (*Profile, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Profile, error)
	Search(ctx context.Context, q string, limit int) ([]Profile, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository { return &repository{db: db} }

func (r *repository) Create(ctx context.Context, p *Profile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) FindByUsername(ctx context.Context, username string) (*Profile, error) {
	return r.first(r.db.WithContext(ctx).Where("lower(username) = ?", strings.ToLower(username)))
}

func (r *repository) first(q *gorm.DB) (*Profile, error) {
	var p Profile
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []Profile
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("username").Find(&out).Error
	return out, err
}

func (r *repository) Search(ctx context.Context, q string, limit int) ([]Profile, error) {
	pattern := "%" + escapeLike(q) + "%"
	var out []Profile
	err := r.db.WithContext(ctx).
		Where("username ILIKE ? OR full_name ILIKE ?", pattern, pattern).
		Order("username").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&Profile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
