// Package refresh maps a pull-down drag at the top of a feed to a refresh.
package refresh

import (
	"context"
	"sync"
)

const (
	DefaultThreshold = 80
	DefaultMaxPull   = 150
)

// State is what the indicator above the feed renders.
type State struct {
	Distance   float64
	Refreshing bool
}

type Option func(*Gesture)

func WithThreshold(d float64) Option { return func(g *Gesture) { g.threshold = d } }

func WithMaxPull(d float64) Option { return func(g *Gesture) { g.maxPull = d } }

// Gesture tracks one drag at a time. It is safe for concurrent use, so the
// refresher may run on another goroutine than the input events.
type Gesture struct {
	threshold float64
	maxPull   float64
	refresher func(context.Context) error

	mu         sync.Mutex
	tracking   bool
	startY     float64
	distance   float64
	refreshing bool
}

func NewGesture(refresher func(context.Context) error, opts ...Option) *Gesture {
	g := &Gesture{
		threshold: DefaultThreshold,
		maxPull:   DefaultMaxPull,
		refresher: refresher,
	}
	for _, o := range opts {
		o(g)
	}
	if g.maxPull < g.threshold {
		g.maxPull = g.threshold
	}
	return g
}

// Start begins tracking a drag at y. Drags that do not start with the feed
// scrolled to the top are ignored.
func (g *Gesture) Start(y float64, atTop bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !atTop {
		g.tracking = false
		return
	}
	g.tracking = true
	g.startY = y
	g.distance = 0
}

// Move updates the pull distance and returns it. Only downward movement
// counts and the distance never exceeds the maximum pull.
func (g *Gesture) Move(y float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.tracking {
		return g.distance
	}
	d := y - g.startY
	if d <= 0 {
		return g.distance
	}
	if d > g.maxPull {
		d = g.maxPull
	}
	g.distance = d
	return d
}

// Release ends the drag. Past the threshold it runs the refresher and
// reports triggered; below it the indicator snaps back without a fetch.
// A release while a refresh is already running only snaps back.
func (g *Gesture) Release(ctx context.Context) (triggered bool, err error) {
	g.mu.Lock()
	pulled := g.tracking && g.distance >= g.threshold
	g.tracking = false
	g.distance = 0
	if !pulled || g.refreshing {
		g.mu.Unlock()
		return false, nil
	}
	g.refreshing = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.refreshing = false
		g.mu.Unlock()
	}()
	if g.refresher == nil {
		return true, nil
	}
	return true, g.refresher(ctx)
}

func (g *Gesture) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{Distance: g.distance, Refreshing: g.refreshing}
}

// Progress is the pull distance as a fraction of the threshold, capped at 1.
func (s State) Progress(threshold float64) float64 {
	if threshold <= 0 {
		return 1
	}
	p := s.Distance / threshold
	if p > 1 {
		p = 1
	}
	return p
}
