package follow

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Create inserts f unless the pair already exists and reports whether a
	// row was added.
	Create(ctx context.Context, f *Follow) (bool, error)
	Delete(ctx context.Context, follower, following uuid.UUID) (bool, error)
	FollowingIDs(ctx context.Context, follower uuid.UUID) ([]uuid.UUID, error)
	FollowerIDs(ctx context.Context, following uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository { return &repository{db: db} }

func (r *repository) Create(ctx context.Context, f *Follow) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(f)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) Delete(ctx context.Context, follower, following uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", follower, following).
		Delete(&Follow{})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) FollowingIDs(ctx context.Context, follower uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&Follow{}).
		Where("follower_id = ?", follower).
		Pluck("following_id", &ids).Error
	return ids, err
}

func (r *repository) FollowerIDs(ctx context.Context, following uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&Follow{}).
		Where("following_id = ?", following).
		Pluck("follower_id", &ids).Error
	return ids, err
}
