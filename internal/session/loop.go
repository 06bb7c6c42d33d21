package session

import (
	"context"
	"fmt"
	"time"

	"blackmarket/internal/logger"
)

// Loop owns a Session and runs every event against it on one goroutine, in
// arrival order. It is the only way to touch a session from HTTP handlers or
// timers.
type Loop struct {
	session *Session
	events  chan func(*Session)
	done    chan struct{}
}

// NewLoop builds a session from opts whose deferred transitions are posted
// back into the loop. buffer sizes the event queue.
func NewLoop(opts Options, buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	l := &Loop{
		events: make(chan func(*Session), buffer),
		done:   make(chan struct{}),
	}
	opts.Schedule = l.after
	l.session = New(opts)
	return l
}

// Run processes events until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	logger.LogInfo("Session loop started")

	for {
		select {
		case <-ctx.Done():
			logger.LogInfo("Session loop stopped: %v", ctx.Err())
			return
		case fn := <-l.events:
			l.dispatch(fn)
		}
	}
}

// dispatch runs one event, keeping the loop alive if it panics.
func (l *Loop) dispatch(fn func(*Session)) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogError("Panic in session event: %v", r)
		}
	}()
	fn(l.session)
}

// Done is closed once Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Do runs fn on the loop and waits for its result. A panic in fn is
// reported as ErrEventPanicked.
func (l *Loop) Do(ctx context.Context, fn func(*Session) error) error {
	result := make(chan error, 1)
	event := func(s *Session) {
		var err error
		defer func() {
			if r := recover(); r != nil {
				logger.LogError("Panic in session event: %v", r)
				err = fmt.Errorf("%w: %v", ErrEventPanicked, r)
			}
			result <- err
		}()
		err = fn(s)
	}

	select {
	case l.events <- event:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View fetches the current full view.
func (l *Loop) View(ctx context.Context) (View, error) {
	var v View
	err := l.Do(ctx, func(s *Session) error {
		v = s.View()
		return nil
	})
	return v, err
}

// Post queues fn without waiting. It reports false if the loop has stopped
// or the queue is full.
func (l *Loop) Post(fn func(*Session)) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.events <- fn:
		return true
	default:
		logger.LogWarn("Session event queue full, dropping event")
		return false
	}
}

func (l *Loop) after(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		l.Post(func(*Session) { fn() })
	})
}
