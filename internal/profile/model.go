package profile

import (
	"time"

	"github.com/google/uuid"

	"github.com/agaaaptr/open-socmed/internal/post"
)

// Profile is the public part of a user. Rows are created by the auth
// provider's signup hook; the API only reads and edits them.
type Profile struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string     `gorm:"uniqueIndex;not null" json:"username"`
	FullName  string     `json:"full_name"`
	AvatarURL string     `json:"avatar_url"`
	Website   string     `json:"website,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (Profile) TableName() string { return "profiles" }

func (p Profile) Author() post.Author {
	return post.Author{
		ID:        p.ID.String(),
		Username:  p.Username,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
	}
}
