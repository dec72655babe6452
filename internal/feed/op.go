package feed

import (
	"context"

	"github.com/agaaaptr/open-socmed/internal/post"
)

// Op is the handle of one mutation sent to the Backend.
type Op struct {
	Kind   OpKind
	PostID string

	done   chan struct{}
	result post.Post
	err    error
}

func newOp(kind OpKind, postID string) *Op {
	return &Op{Kind: kind, PostID: postID, done: make(chan struct{})}
}

func (o *Op) finish(p post.Post, err error) {
	o.result = p
	o.err = err
	close(o.done)
}

// Done is closed once the Backend answered and the feed was settled.
func (o *Op) Done() <-chan struct{} { return o.done }

// Wait blocks until the operation settles and returns the canonical post
// (zero for deletes) or the error that caused the rollback.
func (o *Op) Wait(ctx context.Context) (post.Post, error) {
	select {
	case <-o.done:
		return o.result, o.err
	case <-ctx.Done():
		return post.Post{}, ctx.Err()
	}
}

// Err returns the settled error, or nil while the operation is in flight.
func (o *Op) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}
