package layout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var ErrWorkerUnavailable = errors.New("layout worker unavailable")

// Executor runs a layout over an encoded payload.
type Executor interface {
	Name() string
	Run(ctx context.Context, payload []byte) (map[string]Position, error)
}

// Inline computes the layout on the calling goroutine.
type Inline struct{}

func (Inline) Name() string { return "inline" }

func (Inline) Run(ctx context.Context, payload []byte) (positions map[string]Position, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("inline layout panicked: %v", r)
		}
	}()
	p, err := DecodePayload(payload)
	if err != nil {
		return nil, err
	}
	return Compute(p), nil
}

type job struct {
	payload []byte
	reply   chan result
}

type result struct {
	positions map[string]Position
	err       error
}

// Worker computes layouts on a dedicated background goroutine. Once a job
// panics the worker is broken and every later call returns
// ErrWorkerUnavailable.
type Worker struct {
	jobs      chan job
	done      chan struct{}
	closeOnce sync.Once
	broken    atomic.Bool
}

func NewWorker() *Worker {
	w := &Worker{
		jobs: make(chan job),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) Name() string { return "worker" }

func (w *Worker) loop() {
	for {
		select {
		case j := <-w.jobs:
			j.reply <- w.handle(j.payload)
		case <-w.done:
			return
		}
	}
}

func (w *Worker) handle(payload []byte) (res result) {
	defer func() {
		if r := recover(); r != nil {
			w.broken.Store(true)
			res = result{err: fmt.Errorf("%w: %v", ErrWorkerUnavailable, r)}
		}
	}()
	p, err := DecodePayload(payload)
	if err != nil {
		return result{err: err}
	}
	return result{positions: Compute(p)}
}

func (w *Worker) Run(ctx context.Context, payload []byte) (map[string]Position, error) {
	if w.broken.Load() {
		return nil, ErrWorkerUnavailable
	}

	reply := make(chan result, 1)
	select {
	case w.jobs <- job{payload: payload, reply: reply}:
	case <-w.done:
		return nil, ErrWorkerUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.positions, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the worker goroutine. Calls after Close report
// ErrWorkerUnavailable.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	return nil
}
