// Package loop provides the single-threaded task queue every piece of gate
// state is mutated on. Work runs in ticks: a tick takes a snapshot of the
// queued work and runs it to completion; anything queued while the tick runs
// waits for the next one.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Loop is a cooperative task queue. Post, CallLater and Do are safe from any
// goroutine; Tick and Run must only be driven from one goroutine at a time.
type Loop struct {
	mu     sync.Mutex
	now    []func()
	later  []func()
	wake   chan struct{}
	logger *slog.Logger
}

// New creates an idle loop.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Post queues fn for the next tick, ahead of deferred work.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.now = append(l.now, fn)
	l.mu.Unlock()
	l.signal()
}

// CallLater queues fn to run at the end of the next tick.
func (l *Loop) CallLater(fn func()) {
	l.mu.Lock()
	l.later = append(l.later, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.now) + len(l.later)
}

// Tick runs one batch and returns how many tasks it ran.
func (l *Loop) Tick() int {
	l.mu.Lock()
	batch := make([]func(), 0, len(l.now)+len(l.later))
	batch = append(batch, l.now...)
	batch = append(batch, l.later...)
	l.now = nil
	l.later = nil
	l.mu.Unlock()

	for _, fn := range batch {
		l.run(fn)
	}
	return len(batch)
}

// Drain ticks until the queue is empty or max ticks have run, and returns
// the number of ticks. Intended for tests and shutdown.
func (l *Loop) Drain(maxTicks int) int {
	ticks := 0
	for ticks < maxTicks && l.Pending() > 0 {
		l.Tick()
		ticks++
	}
	return ticks
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop: task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// Run drives ticks until ctx is cancelled. It returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
		for l.Pending() > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			l.Tick()
		}
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a task already running on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("loop: waiting for task: %w", ctx.Err())
	}
}
