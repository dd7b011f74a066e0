// Package queue provides the single serial worker every dispatch attempt,
// retry, poll tick and loop tick runs on.
package queue

import (
	"context"
	"sync"
	"time"
)

// Scheduler posts tasks onto one serial queue. Tasks never run concurrently
// with each other. A delayed task cannot be withdrawn once posted; owners
// cancel by making the task a no-op when it fires.
type Scheduler interface {
	Post(task func())
	PostDelayed(d time.Duration, task func())
}

// Loop is the production Scheduler: a goroutine draining a FIFO, with
// delayed tasks re-serialized onto it by timers.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	timers  map[*time.Timer]struct{}
	closed  bool
	wake    chan struct{}
}

func NewLoop() *Loop {
	return &Loop{
		timers: make(map[*time.Timer]struct{}),
		wake:   make(chan struct{}, 1),
	}
}

// Post enqueues task. Posting after Run returned drops the task.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, task)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// PostDelayed enqueues task after d.
func (l *Loop) PostDelayed(d time.Duration, task func()) {
	if task == nil {
		return
	}
	if d <= 0 {
		l.Post(task)
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		l.mu.Lock()
		delete(l.timers, t)
		l.mu.Unlock()
		l.Post(task)
	})
	l.timers[t] = struct{}{}
}

// Run drains the queue until ctx is done. Pending timers are stopped on exit.
func (l *Loop) Run(ctx context.Context) {
	defer l.shutdown()
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		for _, task := range batch {
			if ctx.Err() != nil {
				return
			}
			task()
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.pending = nil
	for t := range l.timers {
		t.Stop()
	}
	l.timers = map[*time.Timer]struct{}{}
}
