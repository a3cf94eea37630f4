// Package eventloop runs work on a single logical UI thread.
//
// Tasks posted to a Loop run one at a time, in order. Blocking work is
// started with Go: it runs on its own goroutine and its continuation is
// queued back onto the loop, so callers never wait for it.
package eventloop

import (
	"context"
	"sync"
)

// Loop is a serial task queue.
type Loop struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []func()
	inflight int
}

// New returns an idle Loop.
func New() *Loop {
	l := &Loop{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Post queues fn to run on the loop.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Go runs work on a new goroutine and queues then on the loop once work
// returns. There is no way to cancel work other than through ctx.
func (l *Loop) Go(ctx context.Context, work func(context.Context), then func()) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()

	go func() {
		work(ctx)

		l.mu.Lock()
		l.inflight--
		if then != nil {
			l.queue = append(l.queue, then)
		}
		l.cond.Broadcast()
		l.mu.Unlock()
	}()
}

// Pending is the number of Go calls whose work has not returned.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight
}

// Run executes tasks on the calling goroutine until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	for {
		l.mu.Lock()
		for len(l.queue) == 0 && ctx.Err() == nil {
			l.cond.Wait()
		}
		if err := ctx.Err(); err != nil {
			l.mu.Unlock()
			return err
		}
		fn := l.pop()
		l.mu.Unlock()

		fn()
	}
}

// Drain executes tasks on the calling goroutine until the queue is empty
// and no Go work is outstanding. Must not be called concurrently with Run.
func (l *Loop) Drain() {
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && l.inflight > 0 {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.pop()
		l.mu.Unlock()

		fn()
	}
}

func (l *Loop) pop() func() {
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}
