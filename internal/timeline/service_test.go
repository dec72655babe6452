package timeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/kafka"
	"github.com/agaaaptr/open-socmed/internal/post"
	"github.com/agaaaptr/open-socmed/internal/posts"
	"github.com/agaaaptr/open-socmed/internal/profile"
	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
)

var (
	alice = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	bob   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	carol = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

type graph map[uuid.UUID][]uuid.UUID // follower -> following

func (g graph) FollowingIDs(_ context.Context, uid uuid.UUID) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), g[uid]...), nil
}

func (g graph) FollowerIDs(_ context.Context, uid uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for from, tos := range g {
		for _, to := range tos {
			if to == uid {
				out = append(out, from)
			}
		}
	}
	return out, nil
}

type lister struct {
	mu    sync.Mutex
	items []posts.Post
	calls int
}

func (l *lister) ListByAuthors(_ context.Context, authors []uuid.UUID, limit, offset int) ([]posts.Post, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	want := map[uuid.UUID]bool{}
	for _, a := range authors {
		want[a] = true
	}
	var out []posts.Post
	for _, p := range l.items {
		if want[p.UserID] {
			out = append(out, p)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *lister) Create(_ context.Context, p *posts.Post) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]posts.Post{*p}, l.items...)
	return nil
}

func (l *lister) FindByID(_ context.Context, id uuid.UUID) (*posts.Post, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, post.ErrNotFound
}

func (l *lister) UpdateContent(_ context.Context, id uuid.UUID, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Content = content
			return nil
		}
	}
	return post.ErrNotFound
}

func (l *lister) Delete(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return nil
		}
	}
	return post.ErrNotFound
}

func mk(author uuid.UUID, content string, at int64) posts.Post {
	return posts.Post{
		ID:        uuid.New(),
		UserID:    author,
		Content:   content,
		CreatedAt: time.Unix(at, 0).UTC(),
		UpdatedAt: time.Unix(at, 0).UTC(),
		User:      profile.Profile{ID: author, Username: author.String()[:4]},
	}
}

func fixture(t *testing.T) (*Service, *lister, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := &lister{items: []posts.Post{
		mk(carol, "carol newest", 40),
		mk(bob, "bob", 30),
		mk(alice, "alice own", 20),
		mk(carol, "carol older", 10),
	}}
	g := graph{alice: {bob}, carol: {alice}}
	return NewService(g, l, NewRedisCache(rdb, time.Minute), zap.NewNop()), l, mr
}

func contents(items []posts.Post) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Content
	}
	return out
}

func TestTimelineIncludesFollowedAndOwnPosts(t *testing.T) {
	svc, _, _ := fixture(t)
	items, err := svc.Get(context.Background(), alice.String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice own"}, contents(items))
}

func TestTimelineCacheAside(t *testing.T) {
	svc, l, mr := fixture(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, alice.String(), 0, 0)
	require.NoError(t, err)
	assert.True(t, mr.Exists("timeline:"+alice.String()))

	items, err := svc.Get(ctx, alice.String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, l.calls, "second read is served from the cache")
	assert.Equal(t, []string{"bob", "alice own"}, contents(items))
	assert.Equal(t, "bob", items[0].Wire().Content)

	_, err = svc.Get(ctx, alice.String(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, l.calls, "other pages bypass the cache")
}

func TestOwnWriteIsVisibleWithoutEvent(t *testing.T) {
	svc, l, mr := fixture(t)
	ctx := context.Background()
	writes := posts.NewService(l, nil, nil, zap.NewNop(), posts.WithTimelineInvalidator(svc.cache))

	items, err := svc.Get(ctx, alice.String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice own"}, contents(items))
	require.True(t, mr.Exists("timeline:"+alice.String()))

	created, err := writes.Create(ctx, alice.String(), "just posted")
	require.NoError(t, err)
	items, err = svc.Get(ctx, alice.String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"just posted", "bob", "alice own"}, contents(items))

	_, err = writes.Update(ctx, alice.String(), created.ID.String(), "just edited")
	require.NoError(t, err)
	items, err = svc.Get(ctx, alice.String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "just edited", items[0].Content)

	require.NoError(t, writes.Delete(ctx, alice.String(), created.ID.String()))
	items, err = svc.Get(ctx, alice.String(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice own"}, contents(items))
}

func TestPostEventInvalidatesAuthorAndFollowers(t *testing.T) {
	svc, _, mr := fixture(t)
	ctx := context.Background()
	for _, uid := range []uuid.UUID{alice, bob, carol} {
		_, err := svc.Get(ctx, uid.String(), 0, 0)
		require.NoError(t, err)
	}

	require.NoError(t, svc.OnPostEvent(ctx, kafka.Event{Type: kafka.PostCreated, ActorID: bob.String()}))
	assert.False(t, mr.Exists("timeline:"+bob.String()))
	assert.False(t, mr.Exists("timeline:"+alice.String()))
	assert.True(t, mr.Exists("timeline:"+carol.String()))

	assert.Error(t, svc.OnPostEvent(ctx, kafka.Event{Type: kafka.PostCreated, ActorID: "nobody"}))
}

func TestFollowEventInvalidatesFollower(t *testing.T) {
	svc, _, mr := fixture(t)
	ctx := context.Background()
	_, err := svc.Get(ctx, carol.String(), 0, 0)
	require.NoError(t, err)

	require.NoError(t, svc.OnFollowEvent(ctx, kafka.Event{Type: kafka.FollowCreated, ActorID: carol.String(), TargetID: bob.String()}))
	assert.False(t, mr.Exists("timeline:"+carol.String()))
}

func TestCacheDownFallsBackToDatabase(t *testing.T) {
	svc, l, mr := fixture(t)
	mr.Close()

	items, err := svc.Get(context.Background(), alice.String(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, l.calls)
}

func TestHandler(t *testing.T) {
	svc, _, _ := fixture(t)
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
	req = req.WithContext(httpx.WithUser(req.Context(), carol.String()))
	rec := httptest.NewRecorder()
	httpx.Wrap(h.Get).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var feed []post.Post
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&feed))
	require.Len(t, feed, 3)
	assert.Equal(t, "carol newest", feed[0].Content)
	assert.Equal(t, alice.String(), feed[1].UserID)
}
