package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// inbox carries messages from reconciler goroutines into the program. Pushes
// never block, so a reconciler may publish while Update is calling into it.
type inbox struct {
	mu     sync.Mutex
	queue  []tea.Msg
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

type inboxMsg []tea.Msg

func newInbox() *inbox {
	return &inbox{notify: make(chan struct{}, 1), done: make(chan struct{})}
}

func (b *inbox) push(msg tea.Msg) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *inbox) drain() []tea.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queue
	b.queue = nil
	return out
}

// wait returns a command that blocks until something was pushed. It
// yields nil once the inbox is closed.
func (b *inbox) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.notify:
			return inboxMsg(b.drain())
		case <-b.done:
			return nil
		}
	}
}

func (b *inbox) close() {
	b.once.Do(func() { close(b.done) })
}
