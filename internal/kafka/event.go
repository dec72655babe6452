package kafka

import "time"

type EventType string

const (
	PostCreated   EventType = "post.created"
	PostUpdated   EventType = "post.updated"
	PostDeleted   EventType = "post.deleted"
	FollowCreated EventType = "follow.created"
	FollowDeleted EventType = "follow.deleted"
)

// Event is the payload of every message on the events topic. ActorID is
// the user who acted; TargetID is the followed user for follow events.
type Event struct {
	Type     EventType `json:"type"`
	ActorID  string    `json:"actor_id"`
	PostID   string    `json:"post_id,omitempty"`
	TargetID string    `json:"target_id,omitempty"`
	At       time.Time `json:"at"`
}
