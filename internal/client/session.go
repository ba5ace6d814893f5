package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// ErrSessionClosed is returned for actions submitted after Close.
var ErrSessionClosed = errors.New("session closed")

// API is the subset of Client a Session drives.
type API interface {
	List(ctx context.Context) ([]core.Expense, error)
	Create(ctx context.Context, d Draft) (core.Expense, error)
	Delete(ctx context.Context, id string) error
}

// Session owns the local record cache and the view selection. Every action
// runs on one goroutine in submission order, and an action that talks to
// the API applies its result before the next action starts.
type Session struct {
	api    API
	logger *log.Logger

	actions chan func(context.Context)
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.RWMutex
	closed bool

	// owned by the loop goroutine
	records []core.Expense
	state   core.ViewState
}

func NewSession(api API, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		api:     api,
		logger:  logger.WithComponent(log.ComponentClient),
		actions: make(chan func(context.Context), 64),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		state:   core.DefaultViewState(),
	}
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for fn := range s.actions {
		fn(s.ctx)
	}
}

func (s *Session) submit(fn func(context.Context)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	s.actions <- fn
	return true
}

// call runs fn on the loop and waits for it.
func (s *Session) call(fn func()) error {
	finished := make(chan struct{})
	if !s.submit(func(context.Context) {
		defer close(finished)
		fn()
	}) {
		return ErrSessionClosed
	}
	<-finished
	return nil
}

// Load replaces the local records with the server's collection.
func (s *Session) Load() *Pending[[]core.Expense] {
	p := newPending[[]core.Expense]()
	if !s.submit(func(ctx context.Context) {
		items, err := s.api.List(ctx)
		if err != nil {
			s.logger.Warn("Load failed", log.FieldOperation, log.OpList, log.FieldError, err)
			p.resolve(nil, err)
			return
		}
		s.records = items
		p.resolve(slices.Clone(items), nil)
	}) {
		return resolved[[]core.Expense](nil, ErrSessionClosed)
	}
	return p
}

// Add submits d and appends the created record. An incomplete draft fails
// without reaching the network.
func (s *Session) Add(d Draft) *Pending[core.Expense] {
	if err := d.Validate(); err != nil {
		return resolved(core.Expense{}, err)
	}
	p := newPending[core.Expense]()
	if !s.submit(func(ctx context.Context) {
		e, err := s.api.Create(ctx, d)
		if err != nil {
			s.logger.Warn("Add failed", log.FieldOperation, log.OpCreate, log.FieldError, err)
			p.resolve(core.Expense{}, err)
			return
		}
		s.records = append(s.records, e)
		p.resolve(e, nil)
	}) {
		return resolved(core.Expense{}, ErrSessionClosed)
	}
	return p
}

// Remove deletes id on the server and then locally. Removing an id the
// session does not hold is not an error.
func (s *Session) Remove(id string) *Pending[struct{}] {
	p := newPending[struct{}]()
	if !s.submit(func(ctx context.Context) {
		if err := s.api.Delete(ctx, id); err != nil {
			s.logger.Warn("Remove failed",
				log.FieldOperation, log.OpDelete,
				log.FieldExpenseID, id,
				log.FieldError, err)
			p.resolve(struct{}{}, err)
			return
		}
		s.records = slices.DeleteFunc(s.records, func(e core.Expense) bool { return e.ID == id })
		p.resolve(struct{}{}, nil)
	}) {
		return resolved(struct{}{}, ErrSessionClosed)
	}
	return p
}

// SetFilter selects FilterAll or a category. Unknown values leave the
// selection unchanged and fail with KindInvalidArgument.
func (s *Session) SetFilter(filter string) error {
	var err error
	if cerr := s.call(func() {
		if filter != core.FilterAll && !core.Category(filter).Valid() {
			err = core.E(core.KindInvalidArgument, "set filter", fmt.Errorf("unknown filter %q", filter))
			return
		}
		s.state.Filter = filter
	}); cerr != nil {
		return cerr
	}
	return err
}

// ToggleSort flips between latest and low-to-high and returns the new order.
func (s *Session) ToggleSort() (core.SortOrder, error) {
	var order core.SortOrder
	err := s.call(func() {
		s.state.Sort = s.state.Sort.Toggle()
		order = s.state.Sort
	})
	return order, err
}

// State returns the current selection.
func (s *Session) State() (core.ViewState, error) {
	var st core.ViewState
	err := s.call(func() { st = s.state })
	return st, err
}

// View derives the display list and totals from the local records.
func (s *Session) View() (core.View, error) {
	var (
		v    core.View
		verr error
	)
	if err := s.call(func() { v, verr = core.DeriveView(s.records, s.state) }); err != nil {
		return core.View{}, err
	}
	return v, verr
}

// Close stops accepting actions, cancels the session context and waits for
// the loop to drain. The in-flight action and actions queued before Close
// still run, under the cancelled context, and settle with whatever the API
// returns for it. Later actions fail with ErrSessionClosed. It is safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.actions)
	}
	s.mu.Unlock()
	s.cancel()
	<-s.done
}
