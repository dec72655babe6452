// Package tui is the terminal front end of the Cirqle client. It renders one
// feed at a time and drives it through a feed.Reconciler, so posts appear,
// change and disappear before the API has answered.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/feed"
	"github.com/agaaaptr/open-socmed/internal/post"
	"github.com/agaaaptr/open-socmed/internal/refresh"
)

// Pull distances are measured in terminal rows.
const (
	pullThreshold = 3
	pullMax       = 6
)

type mode int

const (
	modeList mode = iota
	modeCompose
	modeEdit
	modeConfirmDelete
	modeExpired
)

type Config struct {
	Backend feed.Backend
	Viewer  post.Author
	Log     *zap.Logger
	Metrics *feed.Metrics
	// Timeout bounds every request the reconciler sends. Zero keeps the
	// reconciler's default.
	Timeout time.Duration
	Now     func() time.Time
}

type feedMsg struct {
	rec *feed.Reconciler
	ev  feed.Event
}

type refreshedMsg struct {
	rec *feed.Reconciler
	err error
}

type pulledMsg struct {
	rec       *feed.Reconciler
	triggered bool
	err       error
}

type sessionExpiredMsg struct{ err error }

type Model struct {
	ctx    context.Context
	cfg    Config
	log    *zap.Logger
	styles styles
	inbox  *inbox

	scope   feed.Scope
	rec     *feed.Reconciler
	gesture *refresh.Gesture

	posts  []post.Post
	cursor int
	top    int

	mode       mode
	target     string
	composer   textarea.Model
	refreshing bool

	status    string
	statusErr bool

	width  int
	height int
}

// New builds the model on the viewer's timeline. Call Close once the
// program has exited.
func New(ctx context.Context, cfg Config) Model {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ta := textarea.New()
	ta.Placeholder = "What's happening?"
	ta.CharLimit = post.MaxContentLength
	ta.ShowLineNumbers = false
	ta.SetHeight(5)

	m := Model{
		ctx:      ctx,
		cfg:      cfg,
		log:      cfg.Log.Named("tui"),
		styles:   defaultStyles(),
		inbox:    newInbox(),
		composer: ta,
	}
	m.openFeed(feed.TimelineScope())
	return m
}

func (m *Model) openFeed(scope feed.Scope) {
	if m.rec != nil {
		m.rec.Close()
	}
	box := m.inbox
	opts := []feed.Option{
		feed.WithScope(scope),
		feed.WithLogger(m.cfg.Log),
		feed.WithAuthFailureHandler(func(err error) {
			box.push(sessionExpiredMsg{err: err})
		}),
	}
	if m.cfg.Metrics != nil {
		opts = append(opts, feed.WithMetrics(m.cfg.Metrics))
	}
	if m.cfg.Timeout > 0 {
		opts = append(opts, feed.WithRequestTimeout(m.cfg.Timeout))
	}
	rec := feed.New(m.cfg.Backend, m.cfg.Viewer, opts...)
	rec.Subscribe(func(ev feed.Event) { box.push(feedMsg{rec: rec, ev: ev}) })

	m.scope = scope
	m.rec = rec
	m.gesture = refresh.NewGesture(rec.Refresh, refresh.WithThreshold(pullThreshold), refresh.WithMaxPull(pullMax))
	m.posts = nil
	m.cursor, m.top = 0, 0
}

// Close detaches the model from its feed. Late API answers are dropped.
func (m Model) Close() {
	m.rec.Close()
	m.inbox.close()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.inbox.wait(), m.refreshCmd())
}

func (m Model) refreshCmd() tea.Cmd {
	ctx, rec := m.ctx, m.rec
	return func() tea.Msg {
		return refreshedMsg{rec: rec, err: rec.Refresh(ctx)}
	}
}

func (m Model) releaseCmd() tea.Cmd {
	ctx, rec, g := m.ctx, m.rec, m.gesture
	return func() tea.Msg {
		triggered, err := g.Release(ctx)
		return pulledMsg{rec: rec, triggered: triggered, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w := msg.Width - 4
		if w > 80 {
			w = 80
		}
		if w > 10 {
			m.composer.SetWidth(w)
		}
		m.scrollToCursor()
		return m, nil

	case inboxMsg:
		for _, inner := range msg {
			m = m.handleAsync(inner)
		}
		return m, m.inbox.wait()

	case refreshedMsg, pulledMsg, sessionExpiredMsg, feedMsg:
		return m.handleAsync(msg), nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == modeCompose || m.mode == modeEdit {
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleAsync(msg tea.Msg) Model {
	switch msg := msg.(type) {
	case feedMsg:
		if msg.rec != m.rec {
			return m
		}
		m.posts = msg.ev.Posts
		m.clampCursor()
		m.reportEvent(msg.ev)

	case refreshedMsg:
		if msg.rec != m.rec {
			return m
		}
		m.refreshing = false
		if msg.err != nil {
			m.setError("Refresh failed: " + describe(msg.err))
		} else {
			m.setStatus("Feed is up to date")
		}

	case pulledMsg:
		if msg.rec != m.rec {
			return m
		}
		m.refreshing = false
		switch {
		case msg.err != nil:
			m.setError("Refresh failed: " + describe(msg.err))
		case msg.triggered:
			m.setStatus("Feed is up to date")
		}

	case sessionExpiredMsg:
		m.log.Warn("session expired", zap.Error(msg.err))
		m.mode = modeExpired
		m.composer.Blur()
	}
	return m
}

func (m *Model) reportEvent(ev feed.Event) {
	switch ev.Kind {
	case feed.EventConfirmed:
		switch ev.Op {
		case feed.OpCreate:
			m.setStatus("Posted")
		case feed.OpEdit:
			m.setStatus("Post updated")
		case feed.OpDelete:
			m.setStatus("Post deleted")
		}
	case feed.EventRolledBack:
		m.setError(fmt.Sprintf("Couldn't %s post: %s", ev.Op, describe(ev.Err)))
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeExpired:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			return m, tea.Quit
		}
		return m, nil

	case modeConfirmDelete:
		switch msg.String() {
		case "y", "enter":
			m.mode = modeList
			if _, err := m.rec.ApplyDelete(m.ctx, m.target); err != nil {
				m.setError(describe(err))
			} else {
				m.setStatus("Deleting…")
			}
			m.target = ""
		case "n", "esc", "q":
			m.mode = modeList
			m.target = ""
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case modeCompose, modeEdit:
		switch msg.String() {
		case "esc":
			m.mode = modeList
			m.target = ""
			m.composer.Blur()
			return m, nil
		case "ctrl+s":
			return m.submit(), nil
		case "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.scrollToCursor()
	case "down", "j":
		if m.cursor < len(m.posts)-1 {
			m.cursor++
		}
		m.scrollToCursor()
	case "n":
		m.mode = modeCompose
		m.composer.Reset()
		return m, m.composer.Focus()
	case "e":
		p, ok := m.mutable("edit")
		if !ok {
			return m, nil
		}
		m.mode = modeEdit
		m.target = p.ID
		m.composer.Reset()
		m.composer.SetValue(p.Content)
		return m, m.composer.Focus()
	case "d":
		p, ok := m.mutable("delete")
		if !ok {
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.target = p.ID
	case "r":
		if m.refreshing {
			return m, nil
		}
		m.refreshing = true
		m.setStatus("Refreshing…")
		return m, m.refreshCmd()
	case "tab":
		next := feed.UserScope(m.cfg.Viewer.ID)
		if m.scope.Kind == feed.ScopeUser {
			next = feed.TimelineScope()
		}
		m.openFeed(next)
		m.refreshing = true
		m.setStatus("Loading…")
		return m, m.refreshCmd()
	}
	return m, nil
}

// mutable returns the selected post when the viewer may change it now.
func (m *Model) mutable(verb string) (post.Post, bool) {
	if m.cursor >= len(m.posts) {
		return post.Post{}, false
	}
	p := m.posts[m.cursor]
	switch {
	case !p.IsOwnedBy(m.cfg.Viewer.ID):
		m.setError(fmt.Sprintf("You can only %s your own posts", verb))
		return post.Post{}, false
	case m.rec.Locked(p.ID):
		m.setError("This post is still being saved")
		return post.Post{}, false
	}
	return p, true
}

func (m Model) submit() Model {
	content := post.Normalize(m.composer.Value())
	var err error
	if m.mode == modeEdit {
		_, err = m.rec.ApplyEdit(m.ctx, m.target, content)
	} else {
		_, err = m.rec.ApplyCreate(m.ctx, content)
	}
	if err != nil {
		// stay in the composer so the draft is not lost
		m.setError(describe(err))
		return m
	}
	if m.mode == modeCompose {
		m.cursor, m.top = 0, 0
		m.setStatus("Posting…")
	} else {
		m.setStatus("Saving…")
	}
	m.mode = modeList
	m.target = ""
	m.composer.Blur()
	m.composer.Reset()
	return m
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeList {
		return m, nil
	}
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		if m.cursor > 0 {
			m.cursor--
		}
		m.scrollToCursor()
	case msg.Button == tea.MouseButtonWheelDown:
		if m.cursor < len(m.posts)-1 {
			m.cursor++
		}
		m.scrollToCursor()
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.gesture.Start(float64(msg.Y), m.top == 0)
	case msg.Action == tea.MouseActionMotion:
		m.gesture.Move(float64(msg.Y))
	case msg.Action == tea.MouseActionRelease:
		if m.gesture.State().Distance >= pullThreshold && !m.refreshing {
			m.refreshing = true
			m.setStatus("Refreshing…")
		}
		return m, m.releaseCmd()
	}
	return m, nil
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.posts) {
		m.cursor = len(m.posts) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.top > m.cursor {
		m.top = m.cursor
	}
}

func (m *Model) scrollToCursor() {
	if m.cursor < m.top {
		m.top = m.cursor
		return
	}
	avail := m.listHeight()
	if avail <= 0 {
		return
	}
	for m.top < m.cursor {
		h := 0
		for i := m.top; i <= m.cursor; i++ {
			h += lipgloss.Height(m.renderPost(i))
		}
		if h <= avail {
			return
		}
		m.top++
	}
}

// listHeight is the number of rows left for posts, or zero while the
// terminal size is unknown.
func (m Model) listHeight() int {
	if m.height == 0 {
		return 0
	}
	h := m.height - 5
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func describe(err error) string {
	switch {
	case errors.Is(err, feed.ErrPostLocked):
		return "this post is still being saved"
	case errors.Is(err, feed.ErrNotOwner):
		return "that post belongs to someone else"
	case errors.Is(err, feed.ErrPostNotFound):
		return "that post is no longer in the feed"
	}
	switch post.Classify(err) {
	case post.KindValidation:
		return err.Error()
	case post.KindAuth:
		return "your session has expired"
	case post.KindTransport:
		return "network error, check your connection"
	case post.KindRejected:
		var apiErr *post.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return err.Error()
}
