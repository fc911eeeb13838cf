package customelements

import (
	"context"
	"sync"
)

// PromiseState is the settlement state of a Promise.
type PromiseState int

const (
	Pending PromiseState = iota
	Fulfilled
	Rejected
)

func (s PromiseState) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Promise is the handle returned by WhenDefined. It settles at most once, either
// fulfilled with a constructor or rejected with an error.
type Promise struct {
	mu      sync.Mutex
	state   PromiseState
	value   Constructor
	err     error
	done    chan struct{}
	waiters []func(Constructor, error)
}

func newPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

func resolvedPromise(ctor Constructor) *Promise {
	p := newPromise()
	p.resolve(ctor)
	return p
}

func rejectedPromise(err error) *Promise {
	p := newPromise()
	p.reject(err)
	return p
}

// State returns the current state.
func (p *Promise) State() PromiseState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} { return p.done }

// Result returns the settled value. ok is false while the promise is pending.
func (p *Promise) Result() (ctor Constructor, err error, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err, p.state != Pending
}

// Wait blocks until the promise settles or ctx is done.
func (p *Promise) Wait(ctx context.Context) (Constructor, error) {
	select {
	case <-p.done:
		ctor, err, _ := p.Result()
		return ctor, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Then registers fn to run when the promise settles. If it already has, fn runs
// immediately on the caller's goroutine.
func (p *Promise) Then(fn func(Constructor, error)) {
	p.mu.Lock()
	if p.state == Pending {
		p.waiters = append(p.waiters, fn)
		p.mu.Unlock()
		return
	}
	ctor, err := p.value, p.err
	p.mu.Unlock()
	fn(ctor, err)
}

func (p *Promise) resolve(ctor Constructor) { p.settle(Fulfilled, ctor, nil) }

func (p *Promise) reject(err error) { p.settle(Rejected, nil, err) }

func (p *Promise) settle(state PromiseState, ctor Constructor, err error) {
	p.mu.Lock()
	if p.state != Pending {
		p.mu.Unlock()
		return
	}
	p.state, p.value, p.err = state, ctor, err
	waiters := p.waiters
	p.waiters = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range waiters {
		fn(ctor, err)
	}
}
