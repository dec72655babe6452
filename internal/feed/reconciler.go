package feed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/post"
)

const defaultRequestTimeout = 15 * time.Second

type Option func(*Reconciler)

func WithScope(s Scope) Option { return func(r *Reconciler) { r.scope = s } }

func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) {
		if m != nil {
			r.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

// WithIDGenerator sets the source of placeholder ids.
func WithIDGenerator(gen func() string) Option { return func(r *Reconciler) { r.newID = gen } }

func WithRequestTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithAuthFailureHandler is called, outside any lock, when the Backend
// reports a missing or expired credential.
func WithAuthFailureHandler(fn func(error)) Option {
	return func(r *Reconciler) { r.onAuthFailure = fn }
}

// Reconciler owns the feed of one view. All methods are safe for concurrent use.
type Reconciler struct {
	backend       Backend
	viewer        post.Author
	scope         Scope
	log           *zap.Logger
	metrics       *Metrics
	now           func() time.Time
	newID         func() string
	timeout       time.Duration
	onAuthFailure func(error)

	mu         sync.Mutex
	posts      []post.Post
	pending    map[string]PendingOperation
	generation uint64
	closed     bool
	observers  []observer
	nextObs    int
	queue      []Event
	delivering bool
}

type observer struct {
	id int
	fn func(Event)
}

// New returns an empty Reconciler acting on behalf of viewer.
func New(backend Backend, viewer post.Author, opts ...Option) *Reconciler {
	r := &Reconciler{
		backend: backend,
		viewer:  viewer,
		scope:   TimelineScope(),
		log:     zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
		timeout: defaultRequestTimeout,
		pending: make(map[string]PendingOperation),
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	r.log = r.log.With(zap.String("scope", r.scope.String()))
	return r
}

func (r *Reconciler) Viewer() post.Author { return r.viewer }

func (r *Reconciler) Scope() Scope { return r.scope }

// ApplyCreate prepends a placeholder for draft and creates it on the Backend.
func (r *Reconciler) ApplyCreate(ctx context.Context, draft string) (*Op, error) {
	if err := post.Validate(draft); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	now := r.now()
	tmp := post.Post{
		ID:        placeholderPrefix + r.newID(),
		UserID:    r.viewer.ID,
		Content:   draft,
		CreatedAt: now,
		User:      r.viewer,
	}
	r.posts = append([]post.Post{tmp}, r.posts...)
	r.openLocked(PendingOperation{Kind: OpCreate, PostID: tmp.ID, StartedAt: now})
	gen := r.generation
	r.emitLocked(Event{Kind: EventApplied, Op: OpCreate, PostID: tmp.ID})
	r.mu.Unlock()
	r.flush()

	op := newOp(OpCreate, tmp.ID)
	go func() {
		reqCtx, cancel := r.requestContext(ctx)
		defer cancel()
		canonical, err := r.backend.Create(reqCtx, draft)
		r.settleCreate(gen, tmp.ID, canonical, err)
		op.finish(canonical, err)
	}()
	return op, nil
}

// ApplyEdit replaces the body of one of the viewer's posts and updates it on the Backend.
func (r *Reconciler) ApplyEdit(ctx context.Context, postID, content string) (*Op, error) {
	if err := post.Validate(content); err != nil {
		return nil, err
	}

	r.mu.Lock()
	idx, err := r.mutableLocked(postID)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	prior := r.posts[idx]
	r.posts[idx].Content = content
	r.openLocked(PendingOperation{Kind: OpEdit, PostID: postID, Prior: prior, Index: idx, StartedAt: r.now()})
	gen := r.generation
	r.emitLocked(Event{Kind: EventApplied, Op: OpEdit, PostID: postID})
	r.mu.Unlock()
	r.flush()

	op := newOp(OpEdit, postID)
	go func() {
		reqCtx, cancel := r.requestContext(ctx)
		defer cancel()
		canonical, err := r.backend.Update(reqCtx, postID, content)
		r.settleEdit(gen, prior, canonical, err)
		op.finish(canonical, err)
	}()
	return op, nil
}

// ApplyDelete removes one of the viewer's posts and deletes it on the Backend.
func (r *Reconciler) ApplyDelete(ctx context.Context, postID string) (*Op, error) {
	r.mu.Lock()
	idx, err := r.mutableLocked(postID)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	removed := r.posts[idx]
	pending := PendingOperation{
		Kind:      OpDelete,
		PostID:    postID,
		Prior:     removed,
		Index:     idx,
		Newer:     make([]string, 0, idx),
		Older:     make([]string, 0, len(r.posts)-idx-1),
		StartedAt: r.now(),
	}
	for i := idx - 1; i >= 0; i-- {
		pending.Newer = append(pending.Newer, r.posts[i].ID)
	}
	for i := idx + 1; i < len(r.posts); i++ {
		pending.Older = append(pending.Older, r.posts[i].ID)
	}
	r.posts = append(r.posts[:idx:idx], r.posts[idx+1:]...)
	r.openLocked(pending)
	gen := r.generation
	r.emitLocked(Event{Kind: EventApplied, Op: OpDelete, PostID: postID})
	r.mu.Unlock()
	r.flush()

	op := newOp(OpDelete, postID)
	go func() {
		reqCtx, cancel := r.requestContext(ctx)
		defer cancel()
		err := r.backend.Delete(reqCtx, postID)
		r.settleDelete(gen, pending, err)
		op.finish(post.Post{}, err)
	}()
	return op, nil
}

// ReconcileFull replaces the feed with list. Pending operations are dropped
// and their late responses ignored.
func (r *Reconciler) ReconcileFull(list []post.Post) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	posts := make([]post.Post, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, p := range list {
		if _, dup := seen[p.ID]; dup {
			r.log.Warn("duplicate post in server list", zap.String("post_id", p.ID))
			continue
		}
		seen[p.ID] = struct{}{}
		posts = append(posts, p)
	}
	dropped := len(r.pending)
	r.posts = posts
	r.pending = make(map[string]PendingOperation)
	r.generation++
	r.metrics.pending.Sub(float64(dropped))
	r.metrics.reloads.Inc()
	r.emitLocked(Event{Kind: EventReloaded})
	r.mu.Unlock()

	if dropped > 0 {
		r.log.Debug("full reconcile dropped pending operations", zap.Int("dropped", dropped))
	}
	r.flush()
}

// Refresh loads the scope's list from the Backend and reconciles with it.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	list, err := r.backend.List(ctx, r.scope)
	if err != nil {
		r.log.Warn("refresh failed", zap.Error(err))
		r.authFailure(err)
		return err
	}
	r.ReconcileFull(list)
	return nil
}

// Snapshot returns a copy of the feed, most recent first.
func (r *Reconciler) Snapshot() []post.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Reconciler) Pending(postID string) (PendingOperation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[postID]
	return p, ok
}

// Locked reports whether postID has a mutation in flight. Views use it to
// disable edit and delete controls.
func (r *Reconciler) Locked(postID string) bool {
	_, ok := r.Pending(postID)
	return ok
}

// Subscribe registers fn for every later Event. fn runs outside the
// reconciler's lock and may call back into it.
func (r *Reconciler) Subscribe(fn func(Event)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextObs
	r.nextObs++
	r.observers = append(r.observers, observer{id: id, fn: fn})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, o := range r.observers {
			if o.id == id {
				r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

// Close detaches the reconciler from its view. Responses still in flight
// are discarded when they arrive.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.metrics.pending.Sub(float64(len(r.pending)))
	r.pending = make(map[string]PendingOperation)
	r.observers = nil
	r.queue = nil
}

func (r *Reconciler) settleCreate(gen uint64, tmpID string, canonical post.Post, err error) {
	r.mu.Lock()
	if r.staleLocked(gen) {
		r.mu.Unlock()
		r.discard(OpCreate, tmpID, err)
		return
	}
	r.closeLocked(tmpID)
	idx := r.indexLocked(tmpID)
	if err != nil {
		if idx >= 0 {
			r.posts = append(r.posts[:idx:idx], r.posts[idx+1:]...)
		}
		r.emitLocked(Event{Kind: EventRolledBack, Op: OpCreate, PostID: tmpID, Err: err})
	} else {
		if dup := r.indexLocked(canonical.ID); dup >= 0 && dup != idx {
			r.posts = append(r.posts[:dup:dup], r.posts[dup+1:]...)
			if dup < idx {
				idx--
			}
		}
		if idx >= 0 {
			r.posts[idx] = canonical
		}
		r.emitLocked(Event{Kind: EventConfirmed, Op: OpCreate, PostID: canonical.ID})
	}
	r.mu.Unlock()
	r.settled(OpCreate, tmpID, err)
}

func (r *Reconciler) settleEdit(gen uint64, prior, canonical post.Post, err error) {
	r.mu.Lock()
	if r.staleLocked(gen) {
		r.mu.Unlock()
		r.discard(OpEdit, prior.ID, err)
		return
	}
	r.closeLocked(prior.ID)
	if idx := r.indexLocked(prior.ID); idx >= 0 {
		if err != nil {
			r.posts[idx] = prior
		} else if canonical.ID == prior.ID {
			r.posts[idx] = canonical
		} else {
			r.posts[idx].Content = canonical.Content
		}
	}
	kind := EventConfirmed
	if err != nil {
		kind = EventRolledBack
	}
	r.emitLocked(Event{Kind: kind, Op: OpEdit, PostID: prior.ID, Err: err})
	r.mu.Unlock()
	r.settled(OpEdit, prior.ID, err)
}

func (r *Reconciler) settleDelete(gen uint64, p PendingOperation, err error) {
	removed := p.Prior
	r.mu.Lock()
	if r.staleLocked(gen) {
		r.mu.Unlock()
		r.discard(OpDelete, removed.ID, err)
		return
	}
	r.closeLocked(removed.ID)
	kind := EventConfirmed
	if err != nil {
		kind = EventRolledBack
		if r.indexLocked(removed.ID) < 0 {
			idx := r.restoreIndexLocked(p)
			r.posts = append(r.posts[:idx], append([]post.Post{removed}, r.posts[idx:]...)...)
		}
	}
	r.emitLocked(Event{Kind: kind, Op: OpDelete, PostID: removed.ID, Err: err})
	r.mu.Unlock()
	r.settled(OpDelete, removed.ID, err)
}

// restoreIndexLocked finds where a post removed by a failed delete goes back:
// right after the nearest newer neighbour still in the feed, else right
// before the nearest older one, else its old offset.
func (r *Reconciler) restoreIndexLocked(p PendingOperation) int {
	for _, id := range p.Newer {
		if i := r.indexLocked(id); i >= 0 {
			return i + 1
		}
	}
	for _, id := range p.Older {
		if i := r.indexLocked(id); i >= 0 {
			return i
		}
	}
	return min(p.Index, len(r.posts))
}

func (r *Reconciler) settled(op OpKind, postID string, err error) {
	r.flush()
	if err == nil {
		r.metrics.observe(op, outcomeConfirmed)
		r.log.Debug("mutation confirmed", zap.Stringer("op", op), zap.String("post_id", postID))
		return
	}
	r.metrics.observe(op, outcomeRolledBack)
	r.log.Warn("mutation rolled back",
		zap.Stringer("op", op),
		zap.String("post_id", postID),
		zap.Stringer("kind", post.Classify(err)),
		zap.Error(err))
	r.authFailure(err)
}

func (r *Reconciler) discard(op OpKind, postID string, err error) {
	r.metrics.observe(op, outcomeDiscarded)
	r.log.Debug("response discarded", zap.Stringer("op", op), zap.String("post_id", postID), zap.Error(err))
}

func (r *Reconciler) authFailure(err error) {
	if r.onAuthFailure != nil && post.Classify(err) == post.KindAuth {
		r.onAuthFailure(err)
	}
}

func (r *Reconciler) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
}

func (r *Reconciler) mutableLocked(postID string) (int, error) {
	if r.closed {
		return -1, ErrClosed
	}
	if _, locked := r.pending[postID]; locked {
		return -1, ErrPostLocked
	}
	idx := r.indexLocked(postID)
	if idx < 0 {
		return -1, ErrPostNotFound
	}
	if !r.posts[idx].IsOwnedBy(r.viewer.ID) {
		return -1, ErrNotOwner
	}
	return idx, nil
}

func (r *Reconciler) openLocked(p PendingOperation) {
	r.pending[p.PostID] = p
	r.metrics.pending.Inc()
	r.metrics.observe(p.Kind, outcomeApplied)
}

func (r *Reconciler) closeLocked(postID string) {
	if _, ok := r.pending[postID]; ok {
		delete(r.pending, postID)
		r.metrics.pending.Dec()
	}
}

func (r *Reconciler) staleLocked(gen uint64) bool {
	return r.closed || gen != r.generation
}

func (r *Reconciler) indexLocked(postID string) int {
	for i := range r.posts {
		if r.posts[i].ID == postID {
			return i
		}
	}
	return -1
}

func (r *Reconciler) snapshotLocked() []post.Post {
	out := make([]post.Post, len(r.posts))
	copy(out, r.posts)
	return out
}

func (r *Reconciler) emitLocked(ev Event) {
	if len(r.observers) == 0 {
		return
	}
	ev.Posts = r.snapshotLocked()
	r.queue = append(r.queue, ev)
}

// flush delivers queued events in commit order. Only one goroutine delivers
// at a time; the others leave their events to it.
func (r *Reconciler) flush() {
	r.mu.Lock()
	if r.delivering {
		r.mu.Unlock()
		return
	}
	r.delivering = true
	for len(r.queue) > 0 {
		ev := r.queue[0]
		r.queue = r.queue[1:]
		fns := make([]func(Event), len(r.observers))
		for i, o := range r.observers {
			fns[i] = o.fn
		}
		r.mu.Unlock()
		for _, fn := range fns {
			fn(ev)
		}
		r.mu.Lock()
	}
	r.delivering = false
	r.mu.Unlock()
}
