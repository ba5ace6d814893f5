package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store/memory"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	svc := services.NewExpenseService(memory.New(), services.Options{})
	srv := apphttp.NewServer(":0", svc, apphttp.Options{})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
		_ = svc.Close()
	})
	return ts
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := newAPI(t)
	c, err := NewClient(ts.URL + "/")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	items, err := c.List(ctx)
	if err != nil || items == nil || len(items) != 0 {
		t.Fatalf("List on empty store = %v, %v", items, err)
	}

	e, err := c.Create(ctx, Draft{Name: "Lunch", Amount: "10", Category: "Food", Date: "2024-01-01"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ID == "" || !e.Amount.Equal(core.AmountFromInt(10)) || e.Date.String() != "2024-01-01" {
		t.Fatalf("unexpected record %+v", e)
	}

	items, err = c.List(ctx)
	if err != nil || len(items) != 1 || items[0].ID != e.ID {
		t.Fatalf("List = %v, %v", items, err)
	}

	if err := c.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, e.ID); err != nil {
		t.Fatalf("second Delete should succeed: %v", err)
	}
	if err := c.Delete(ctx, " "); !core.IsKind(err, core.KindValidation) {
		t.Fatalf("expected validation error for blank id, got %v", err)
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	ts := newAPI(t)
	c, _ := NewClient(ts.URL)

	_, err := c.Create(ctx, Draft{Name: "x", Amount: "1", Category: "Gifts", Date: "2024-01-01"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
	if !core.IsKind(err, core.KindValidation) {
		t.Fatalf("expected validation kind, got %s", core.KindOf(err))
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Server Error"}`))
	}))
	defer failing.Close()
	c, _ = NewClient(failing.URL)
	_, err = c.List(ctx)
	if !errors.As(err, &apiErr) || apiErr.Message != "Server Error" {
		t.Fatalf("expected server error message, got %v", err)
	}
	if !core.IsKind(err, core.KindUnavailable) {
		t.Fatalf("expected unavailable kind, got %s", core.KindOf(err))
	}

	failing.Close()
	if _, err := c.List(ctx); !core.IsKind(err, core.KindUnavailable) {
		t.Fatalf("expected unavailable on network failure, got %v", err)
	}
}

func TestClientSendsRequestID(t *testing.T) {
	ids := make(chan string, 2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get(log.HeaderRequestID)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	c, _ := NewClient(ts.URL)
	for i := 0; i < 2; i++ {
		if _, err := c.List(context.Background()); err != nil {
			t.Fatalf("List: %v", err)
		}
	}
	first, second := <-ids, <-ids
	if !strings.HasPrefix(first, "req_") || first == second {
		t.Fatalf("expected a fresh request id per call, got %q and %q", first, second)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, u := range []string{"localhost:8081", "ftp://x", "://"} {
		if _, err := NewClient(u); err == nil {
			t.Fatalf("NewClient(%q) expected error", u)
		}
	}
}

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   Draft
		wantErr bool
	}{
		{"complete", Draft{"Lunch", "10", "Food", "2024-01-01"}, false},
		{"no name", Draft{"", "10", "Food", "2024-01-01"}, true},
		{"blank amount", Draft{"Lunch", " ", "Food", "2024-01-01"}, true},
		{"no category", Draft{"Lunch", "10", "", "2024-01-01"}, true},
		{"no date", Draft{"Lunch", "10", "Food", ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && (!errors.Is(err, ErrMissingFields) || !core.IsKind(err, core.KindValidation)) {
				t.Fatalf("unexpected error shape %v", err)
			}
		})
	}
}
