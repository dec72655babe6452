package posts

import (
	"time"

	"github.com/google/uuid"

	"github.com/agaaaptr/open-socmed/internal/post"
	"github.com/agaaaptr/open-socmed/internal/profile"
)

type Post struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_posts_user_created,priority:1" json:"user_id"`
	Content   string          `gorm:"not null" json:"content"`
	CreatedAt time.Time       `gorm:"index:idx_posts_user_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	User      profile.Profile `gorm:"foreignKey:UserID" json:"user"`
}

func (Post) TableName() string { return "posts" }

// Wire converts p to the representation clients keep in their feeds.
func (p Post) Wire() post.Post {
	return post.Post{
		ID:        p.ID.String(),
		UserID:    p.UserID.String(),
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		User:      p.User.Author(),
	}
}
