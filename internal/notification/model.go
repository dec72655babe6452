package notification

import "time"

type Type string

const TypeFollow Type = "follow"

type Notification struct {
	ID              string    `json:"id"`
	RecipientUserID string    `json:"recipient_user_id"`
	SenderUserID    string    `json:"sender_user_id"`
	Type            Type      `json:"type"`
	PostID          string    `json:"post_id,omitempty"`
	IsRead          bool      `json:"is_read"`
	CreatedAt       time.Time `json:"created_at"`
}

// View is a notification with the sender's display fields resolved.
type View struct {
	Notification
	SenderUsername  string `json:"sender_username"`
	SenderFullName  string `json:"sender_full_name"`
	SenderAvatarURL string `json:"sender_avatar_url"`
}
