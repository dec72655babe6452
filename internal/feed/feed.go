// Package feed keeps an optimistic, locally ordered copy of a post feed in
// step with the posts API.
//
// A Reconciler is owned by one feed view. Create, edit and delete are applied
// to the local feed immediately, sent to the Backend in the background and
// rolled back if the Backend rejects them. A full reconcile replaces the
// local feed with the server's list and drops whatever is still in flight.
package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agaaaptr/open-socmed/internal/post"
)

// Errors returned by the Reconciler when a mutation cannot be applied.
var (
	ErrPostNotFound = errors.New("feed: post is not in the feed")
	ErrNotOwner     = errors.New("feed: post is not owned by the viewer")
	ErrPostLocked   = errors.New("feed: post has a pending operation")
	ErrClosed       = errors.New("feed: reconciler is closed")
)

const placeholderPrefix = "tmp-"

// IsPlaceholder reports whether id belongs to a locally synthesized post
// whose create has not been confirmed yet.
func IsPlaceholder(id string) bool { return strings.HasPrefix(id, placeholderPrefix) }

// Backend is the authoritative side of the feed.
type Backend interface {
	Create(ctx context.Context, content string) (post.Post, error)
	Update(ctx context.Context, postID, content string) (post.Post, error)
	Delete(ctx context.Context, postID string) error
	List(ctx context.Context, scope Scope) ([]post.Post, error)
}

// ScopeKind tells the timeline apart from a single author's posts.
type ScopeKind int

const (
	ScopeTimeline ScopeKind = iota
	ScopeUser
)

// Scope selects which list of posts a feed view shows.
type Scope struct {
	Kind   ScopeKind
	UserID string
}

func TimelineScope() Scope { return Scope{Kind: ScopeTimeline} }

func UserScope(userID string) Scope { return Scope{Kind: ScopeUser, UserID: userID} }

func (s Scope) String() string {
	if s.Kind == ScopeUser {
		return "user:" + s.UserID
	}
	return "timeline"
}

// OpKind names the mutation a PendingOperation or Event is about.
type OpKind int

const (
	OpNone OpKind = iota
	OpCreate
	OpEdit
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpEdit:
		return "edit"
	case OpDelete:
		return "delete"
	default:
		return "none"
	}
}

// PendingOperation describes an in-flight mutation and what is needed to undo it.
type PendingOperation struct {
	Kind      OpKind
	PostID    string
	Prior     post.Post // edit: record before the change; delete: removed record
	Index     int       // delete: position the record was removed from
	Newer     []string  // delete: ids that preceded the record, nearest first
	Older     []string  // delete: ids that followed the record, nearest first
	StartedAt time.Time
}

// EventKind is the stage of a mutation, or a full reload, that produced an Event.
type EventKind int

const (
	EventApplied EventKind = iota
	EventConfirmed
	EventRolledBack
	EventReloaded
)

func (k EventKind) String() string {
	switch k {
	case EventApplied:
		return "applied"
	case EventConfirmed:
		return "confirmed"
	case EventRolledBack:
		return "rolled_back"
	case EventReloaded:
		return "reloaded"
	default:
		return "unknown"
	}
}

// Event is published after every change of the feed. Posts is a copy of the
// feed as it was right after the change.
type Event struct {
	Kind   EventKind
	Op     OpKind
	PostID string
	Err    error
	Posts  []post.Post
}
