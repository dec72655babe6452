package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleasePastThresholdTriggersRefresh(t *testing.T) {
	calls := 0
	g := NewGesture(func(context.Context) error { calls++; return nil })

	g.Start(10, true)
	assert.Equal(t, 50.0, g.Move(60))
	assert.Equal(t, 90.0, g.Move(100))

	triggered, err := g.Release(context.Background())
	require.NoError(t, err)
	assert.True(t, triggered)
	assert.Equal(t, 1, calls)
	assert.Equal(t, State{}, g.State())
}

func TestReleaseBelowThresholdSnapsBack(t *testing.T) {
	calls := 0
	g := NewGesture(func(context.Context) error { calls++; return nil })

	g.Start(0, true)
	g.Move(DefaultThreshold - 1)
	assert.Equal(t, float64(DefaultThreshold-1), g.State().Distance)

	triggered, err := g.Release(context.Background())
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Zero(t, calls)
	assert.Zero(t, g.State().Distance)
}

func TestExactThresholdTriggers(t *testing.T) {
	g := NewGesture(nil)
	g.Start(0, true)
	g.Move(DefaultThreshold)
	triggered, err := g.Release(context.Background())
	require.NoError(t, err)
	assert.True(t, triggered)
}

func TestMoveClampsAndIgnoresUpwardDrag(t *testing.T) {
	g := NewGesture(nil)
	g.Start(100, true)

	assert.Zero(t, g.Move(40))
	assert.Equal(t, float64(DefaultMaxPull), g.Move(1000))
	// moving back up keeps the last downward distance
	assert.Equal(t, float64(DefaultMaxPull), g.Move(90))
}

func TestDragNotAtTopIsIgnored(t *testing.T) {
	calls := 0
	g := NewGesture(func(context.Context) error { calls++; return nil })

	g.Start(0, false)
	assert.Zero(t, g.Move(200))
	triggered, _ := g.Release(context.Background())
	assert.False(t, triggered)
	assert.Zero(t, calls)
}

func TestRefresherErrorIsReturned(t *testing.T) {
	boom := errors.New("list failed")
	g := NewGesture(func(context.Context) error { return boom })
	g.Start(0, true)
	g.Move(120)

	triggered, err := g.Release(context.Background())
	assert.True(t, triggered)
	assert.ErrorIs(t, err, boom)
	assert.False(t, g.State().Refreshing)
}

func TestNoSecondRefreshWhileRefreshing(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	calls := 0
	g := NewGesture(func(context.Context) error {
		calls++
		close(started)
		<-unblock
		return nil
	})

	g.Start(0, true)
	g.Move(100)
	done := make(chan bool)
	go func() {
		ok, _ := g.Release(context.Background())
		done <- ok
	}()
	<-started
	assert.True(t, g.State().Refreshing)

	g.Start(0, true)
	g.Move(100)
	triggered, err := g.Release(context.Background())
	require.NoError(t, err)
	assert.False(t, triggered)

	close(unblock)
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("first refresh did not finish")
	}
	assert.Equal(t, 1, calls)
}

func TestCustomThresholds(t *testing.T) {
	g := NewGesture(nil, WithThreshold(30), WithMaxPull(10))
	g.Start(0, true)
	// max pull is raised to the threshold so a release can still trigger
	assert.Equal(t, 30.0, g.Move(100))
	triggered, _ := g.Release(context.Background())
	assert.True(t, triggered)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.5, State{Distance: 40}.Progress(DefaultThreshold))
	assert.Equal(t, 1.0, State{Distance: 150}.Progress(DefaultThreshold))
	assert.Equal(t, 1.0, State{}.Progress(0))
}
