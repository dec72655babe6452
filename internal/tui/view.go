package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/agaaaptr/open-socmed/internal/feed"
	"github.com/agaaaptr/open-socmed/internal/post"
)

const helpLine = "n new · e edit · d delete · r refresh · tab switch feed · q quit"

func (m Model) View() string {
	switch m.mode {
	case modeExpired:
		return m.expiredView()
	case modeCompose, modeEdit:
		return m.composerView()
	case modeConfirmDelete:
		return m.confirmView()
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	if ind := m.pullIndicator(); ind != "" {
		b.WriteString(ind)
		b.WriteString("\n")
	}
	b.WriteString(m.listView())
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) header() string {
	timeline, mine := m.styles.tab, m.styles.tab
	if m.scope.Kind == feed.ScopeUser {
		mine = m.styles.activeTab
	} else {
		timeline = m.styles.activeTab
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.title.Render("cirqle"),
		" ",
		timeline.Render("Timeline"),
		mine.Render("My posts"),
		" ",
		m.styles.meta.Render("@"+m.cfg.Viewer.Username),
	)
}

func (m Model) pullIndicator() string {
	st := m.gesture.State()
	switch {
	case st.Refreshing || m.refreshing:
		return m.styles.meta.Render("⟳ refreshing…")
	case st.Distance >= pullThreshold:
		return m.styles.status.Render("↑ release to refresh")
	case st.Distance > 0:
		filled := int(st.Progress(pullThreshold) * 10)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
		return m.styles.meta.Render("↓ pull to refresh " + bar)
	}
	return ""
}

func (m Model) listView() string {
	if len(m.posts) == 0 {
		if m.refreshing {
			return m.styles.meta.Render("  Loading posts…")
		}
		return m.styles.meta.Render("  No posts yet. Press n to write one.")
	}
	avail := m.listHeight()
	var blocks []string
	used := 0
	for i := m.top; i < len(m.posts); i++ {
		block := m.renderPost(i)
		h := lipgloss.Height(block)
		if avail > 0 && used+h > avail && len(blocks) > 0 {
			break
		}
		blocks = append(blocks, block)
		used += h
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func (m Model) renderPost(i int) string {
	p := m.posts[i]
	name := p.User.FullName
	if name == "" {
		name = p.User.Username
	}
	head := m.styles.author.Render(name) + " " +
		m.styles.meta.Render(fmt.Sprintf("@%s · %s", p.User.Username, humanize.RelTime(p.CreatedAt, m.cfg.Now(), "ago", "from now")))
	if badge := m.pendingBadge(p.ID); badge != "" {
		head += " " + m.styles.badge.Render(badge)
	}

	width := m.width - 4
	if width < 20 {
		width = 60
	}
	body := lipgloss.NewStyle().Width(width).Render(p.Content)
	block := head + "\n" + body + "\n"
	if i == m.cursor {
		return m.styles.selected.Render(block)
	}
	return m.styles.post.Render(block)
}

func (m Model) pendingBadge(id string) string {
	op, ok := m.rec.Pending(id)
	if !ok {
		return ""
	}
	switch op.Kind {
	case feed.OpCreate:
		return "sending…"
	case feed.OpEdit:
		return "saving…"
	}
	return ""
}

func (m Model) footer() string {
	var b strings.Builder
	if m.status != "" {
		st := m.styles.status
		if m.statusErr {
			st = m.styles.errStatus
		}
		b.WriteString(st.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.help.Render(helpLine))
	return b.String()
}

func (m Model) composerView() string {
	title := "New post"
	if m.mode == modeEdit {
		title = "Edit post"
	}
	value := m.composer.Value()
	counter := m.styles.counter
	if post.Remaining(value) < 0 {
		counter = m.styles.overLimit
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.composer.View())
	b.WriteString("\n")
	b.WriteString(counter.Render(fmt.Sprintf("%d/%d", len([]rune(value)), post.MaxContentLength)))
	b.WriteString("\n")
	if m.status != "" && m.statusErr {
		b.WriteString(m.styles.errStatus.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.help.Render("ctrl+s save · esc cancel"))
	return b.String()
}

func (m Model) confirmView() string {
	preview := ""
	for _, p := range m.posts {
		if p.ID == m.target {
			preview = p.Content
			break
		}
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.author.Render("Delete this post?"),
		"",
		m.styles.meta.Render(preview),
		"",
		"This can't be undone. y delete · n cancel",
	)
	return m.styles.dialog.Render(body)
}

func (m Model) expiredView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.errStatus.Render("Session expired"),
		"",
		"Your session is no longer valid. Sign in again and restart cirqle.",
		m.styles.help.Render("press q to quit"),
	)
}
