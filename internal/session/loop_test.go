package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, opts Options) *Loop {
	t.Helper()
	l := NewLoop(opts, 8)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

func TestLoopDoReportsPanics(t *testing.T) {
	l := startLoop(t, Options{})
	ctx := context.Background()

	err := l.Do(ctx, func(*Session) error { panic("boom") })
	require.ErrorIs(t, err, ErrEventPanicked)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, Code(err), "a panic is not a declined action")

	v, err := l.View(ctx)
	require.NoError(t, err, "loop keeps running after a panic")
	assert.Equal(t, PhaseHidden, v.Phase)
}

func TestLoopDrivesSessionThroughFuncAdapters(t *testing.T) {
	var mu sync.Mutex
	var actions []string
	var phases []Phase
	l := startLoop(t, Options{
		Emitter: EmitterFunc(func(in Intent) {
			mu.Lock()
			defer mu.Unlock()
			actions = append(actions, in.Action)
		}),
		Renderer: RendererFunc(func(v View) {
			mu.Lock()
			defer mu.Unlock()
			phases = append(phases, v.Phase)
		}),
	})
	ctx := context.Background()

	require.NoError(t, l.Do(ctx, func(s *Session) error { return s.Open(testPayload()) }))
	require.NoError(t, l.Do(ctx, func(s *Session) error { return s.AddToCart("weapons", "weapon_bat") }))

	// the open animation completes through a timer posted back into the loop
	assert.Eventually(t, func() bool {
		v, err := l.View(ctx)
		return err == nil && v.Phase == PhaseOpen
	}, 2*OpenDelay+time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{ActionAddToCart, ActionShowNotification}, actions)
	require.NotEmpty(t, phases)
	assert.Equal(t, PhaseOpening, phases[0])
	assert.Equal(t, PhaseOpen, phases[len(phases)-1])
}

func TestLoopStopped(t *testing.T) {
	l := NewLoop(Options{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()
	<-l.Done()

	err := l.Do(context.Background(), func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrLoopStopped)
	assert.False(t, l.Post(func(*Session) {}))
}
