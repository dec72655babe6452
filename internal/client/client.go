// Package client talks to the Cirqle posts API. A Client is the Backend of
// a feed.Reconciler.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/feed"
	"github.com/agaaaptr/open-socmed/internal/post"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token obtained out of band, e.g. from the auth provider.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", post.ErrUnauthenticated
	}
	return string(t), nil
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

type Client struct {
	base   string
	tokens TokenSource
	hc     *http.Client
	log    *zap.Logger
}

var _ feed.Backend = (*Client)(nil)

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		tokens: tokens,
		hc: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type contentReq struct {
	Content string `json:"content"`
}

func (c *Client) Create(ctx context.Context, content string) (post.Post, error) {
	var p post.Post
	err := c.do(ctx, "create post", http.MethodPost, "/api/posts", nil, contentReq{content}, &p)
	return p, err
}

func (c *Client) Update(ctx context.Context, postID, content string) (post.Post, error) {
	var p post.Post
	err := c.do(ctx, "update post", http.MethodPut, "/api/posts", url.Values{"id": {postID}}, contentReq{content}, &p)
	return p, err
}

func (c *Client) Delete(ctx context.Context, postID string) error {
	return c.do(ctx, "delete post", http.MethodDelete, "/api/posts", url.Values{"id": {postID}}, nil, nil)
}

// List loads the posts of scope, newest first.
func (c *Client) List(ctx context.Context, scope feed.Scope) ([]post.Post, error) {
	var list []post.Post
	var err error
	if scope.Kind == feed.ScopeUser {
		err = c.do(ctx, "list posts", http.MethodGet, "/api/posts", url.Values{"user_id": {scope.UserID}}, nil, &list)
	} else {
		err = c.do(ctx, "load timeline", http.MethodGet, "/api/timeline", nil, nil, &list)
	}
	return list, err
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (post.Author, error) {
	var a post.Author
	err := c.do(ctx, "load profile", http.MethodGet, "/api/profile", nil, nil, &a)
	return a, err
}

type followReq struct {
	FollowingID string `json:"following_id"`
}

func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.do(ctx, "follow", http.MethodPost, "/api/follow", nil, followReq{userID}, nil)
}

func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.do(ctx, "unfollow", http.MethodDelete, "/api/follow", nil, followReq{userID}, nil)
}

type Notification struct {
	ID             string    `json:"id"`
	SenderUserID   string    `json:"sender_user_id"`
	SenderUsername string    `json:"sender_username"`
	Type           string    `json:"type"`
	PostID         string    `json:"post_id,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var list []Notification
	err := c.do(ctx, "list notifications", http.MethodGet, "/api/notifications", nil, nil, &list)
	return list, err
}

func (c *Client) MarkNotificationsRead(ctx context.Context) error {
	return c.do(ctx, "mark notifications read", http.MethodPost, "/api/mark-notifications-as-read", nil, nil, nil)
}

type errorBody struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, in, out any) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return &post.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &post.TransportError{Op: op, Err: err}
	}
	c.log.Debug("api call",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		if json.Unmarshal(raw, &eb) != nil || eb.Message == "" {
			eb.Message = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("%s: %w", op, post.NewAPIError(resp.StatusCode, eb.Message, eb.Reason))
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &post.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// IsAuth reports whether err means the session must be renewed.
func IsAuth(err error) bool { return errors.Is(err, post.ErrUnauthenticated) }
