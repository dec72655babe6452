package post

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContentLength is the upper bound of a post body, in characters.
const MaxContentLength = 280

// Author holds the display attributes of a post's author.
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Post is the wire representation of a post, shared by the API and its clients.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      Author    `json:"user"`
}

func (p Post) IsOwnedBy(userID string) bool {
	return userID != "" && p.UserID == userID
}

// Validate checks a draft body against the length bounds.
func Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// Normalize returns the form of content the server stores.
func Normalize(content string) string {
	return strings.TrimSpace(content)
}

// Remaining reports how many characters are left before the bound; negative when over.
func Remaining(content string) int {
	return MaxContentLength - utf8.RuneCountInString(content)
}
