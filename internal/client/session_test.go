package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
)

// fakeAPI records calls and optionally blocks Create until released.
type fakeAPI struct {
	mu      sync.Mutex
	items   []core.Expense
	calls   []string
	nextID  int
	gate    chan struct{}
	listErr error
}

func (f *fakeAPI) List(ctx context.Context) ([]core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]core.Expense(nil), f.items...), nil
}

func (f *fakeAPI) Create(ctx context.Context, d Draft) (core.Expense, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return core.Expense{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+d.Name)
	amount, _ := core.ParseAmount(d.Amount)
	date, _ := core.ParseDate(d.Date)
	f.nextID++
	e := core.Expense{
		ID:       string(rune('a' + f.nextID - 1)),
		Name:     d.Name,
		Amount:   amount,
		Category: core.Category(d.Category),
		Date:     date,
	}
	f.items = append(f.items, e)
	return e, nil
}

func (f *fakeAPI) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+id)
	for i, e := range f.items {
		if e.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func wait[T any](t *testing.T, p *Pending[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

func TestSessionScenario(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(api, nil)
	defer s.Close()

	if _, err := wait(t, s.Load()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	lunch, err := wait(t, s.Add(Draft{Name: "Lunch", Amount: "10", Category: "Food", Date: "2024-01-01"}))
	if err != nil {
		t.Fatalf("Add lunch: %v", err)
	}
	rent, err := wait(t, s.Add(Draft{Name: "Rent", Amount: "1000", Category: "Rent", Date: "2024-01-05"}))
	if err != nil {
		t.Fatalf("Add rent: %v", err)
	}

	v, err := s.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(v.Items) != 2 || v.Items[0].ID != rent.ID || v.Items[1].ID != lunch.ID {
		t.Fatalf("All/latest = %+v", v.Items)
	}

	if err := s.SetFilter("Food"); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	v, _ = s.View()
	if len(v.Items) != 1 || v.Items[0].ID != lunch.ID {
		t.Fatalf("Food/latest = %+v", v.Items)
	}
	if v.Totals[1].Category != core.Rent || !v.Totals[1].Total.Equal(core.AmountFromInt(1000)) {
		t.Fatalf("totals must ignore the filter: %+v", v.Totals)
	}

	if _, err := wait(t, s.Remove(lunch.ID)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := wait(t, s.Remove("missing")); err != nil {
		t.Fatalf("Remove of unknown id: %v", err)
	}
	v, _ = s.View()
	if len(v.Items) != 0 {
		t.Fatalf("Food after remove = %+v", v.Items)
	}
}

func TestSessionAddValidatesBeforeNetwork(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(api, nil)
	defer s.Close()

	_, err := wait(t, s.Add(Draft{Name: "Lunch", Amount: "10", Category: "Food"}))
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if _, err := s.View(); err != nil {
		t.Fatalf("View: %v", err)
	}
	if calls := api.callLog(); len(calls) != 0 {
		t.Fatalf("incomplete draft reached the API: %v", calls)
	}
}

func TestSessionAppliesResultBeforeNextAction(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	s := NewSession(api, nil)
	defer s.Close()

	add := s.Add(Draft{Name: "Bus", Amount: "2", Category: "Transport", Date: "2024-02-01"})

	viewed := make(chan core.View, 1)
	go func() {
		v, _ := s.View()
		viewed <- v
	}()

	select {
	case <-viewed:
		t.Fatalf("View ran before the pending Add resolved")
	case <-add.Done():
		t.Fatalf("Add resolved before its request finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(api.gate)
	if _, err := wait(t, add); err != nil {
		t.Fatalf("Add: %v", err)
	}
	select {
	case v := <-viewed:
		if len(v.Items) != 1 || v.Items[0].Name != "Bus" {
			t.Fatalf("View missed the applied Add: %+v", v.Items)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("View never ran")
	}
}

func TestSessionSubmissionOrder(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(api, nil)
	defer s.Close()

	p1 := s.Add(Draft{Name: "one", Amount: "1", Category: "Food", Date: "2024-01-01"})
	p2 := s.Add(Draft{Name: "two", Amount: "2", Category: "Food", Date: "2024-01-02"})
	p3 := s.Remove("a")
	p4 := s.Load()

	if _, err := wait(t, p4); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, p := range []interface{ Done() <-chan struct{} }{p1, p2, p3} {
		select {
		case <-p.Done():
		default:
			t.Fatalf("earlier action still pending after a later one resolved")
		}
	}

	want := []string{"create:one", "create:two", "delete:a", "list"}
	got := api.callLog()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestSessionFailedLoadKeepsState(t *testing.T) {
	api := &fakeAPI{}
	s := NewSession(api, nil)
	defer s.Close()

	if _, err := wait(t, s.Add(Draft{Name: "one", Amount: "1", Category: "Food", Date: "2024-01-01"})); err != nil {
		t.Fatalf("Add: %v", err)
	}
	api.mu.Lock()
	api.listErr = errors.New("boom")
	api.mu.Unlock()

	if _, err := wait(t, s.Load()); err == nil {
		t.Fatalf("expected Load error")
	}
	v, _ := s.View()
	if len(v.Items) != 1 {
		t.Fatalf("failed Load must not clear records: %+v", v.Items)
	}
}

func TestSessionSelection(t *testing.T) {
	s := NewSession(&fakeAPI{}, nil)
	defer s.Close()

	if err := s.SetFilter("Gifts"); !core.IsKind(err, core.KindInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	st, _ := s.State()
	if st.Filter != core.FilterAll {
		t.Fatalf("filter changed to %q after a rejected value", st.Filter)
	}

	order, err := s.ToggleSort()
	if err != nil || order != core.SortLowToHigh {
		t.Fatalf("ToggleSort = %s, %v", order, err)
	}
	order, _ = s.ToggleSort()
	if order != core.SortLatest {
		t.Fatalf("second ToggleSort = %s", order)
	}
}

func TestSessionClose(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	s := NewSession(api, nil)

	inflight := s.Add(Draft{Name: "x", Amount: "1", Category: "Food", Date: "2024-01-01"})
	queued := s.Load()

	s.Close()
	s.Close()

	if _, err := wait(t, inflight); !errors.Is(err, context.Canceled) {
		t.Fatalf("in-flight action: %v", err)
	}
	if _, err := wait(t, queued); err != nil {
		t.Fatalf("queued Load should still resolve: %v", err)
	}
	if _, err := wait(t, s.Load()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := s.View(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from View, got %v", err)
	}
}

func TestSessionCloseRunsQueuedActionsCancelled(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	s := NewSession(api, nil)

	first := s.Add(Draft{Name: "one", Amount: "1", Category: "Food", Date: "2024-01-01"})
	second := s.Add(Draft{Name: "two", Amount: "2", Category: "Food", Date: "2024-01-02"})

	s.Close()

	for i, p := range []*Pending[core.Expense]{first, second} {
		if _, err := wait(t, p); !errors.Is(err, context.Canceled) {
			t.Fatalf("action %d: expected context.Canceled, got %v", i+1, err)
		}
	}
	if calls := api.callLog(); len(calls) != 0 {
		t.Fatalf("no create should have reached the API, got %v", calls)
	}
}
