package client

import "context"

// Pending is the eventual result of a session action. It resolves once the
// action's request has finished and its effect on the session state has
// been applied.
type Pending[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

func resolved[T any](v T, err error) *Pending[T] {
	p := newPending[T]()
	p.resolve(v, err)
	return p
}

func (p *Pending[T]) resolve(v T, err error) {
	p.val, p.err = v, err
	close(p.done)
}

// Done is closed when the result is available.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the action resolves or ctx ends. Giving up on the wait
// does not cancel the action.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
