package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"fintrack/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets implements the handful of Sheets REST calls the client makes.
type fakeSheets struct {
	mu       sync.Mutex
	title    string
	sheetID  int64
	rows     [][]any
	appends  int
	gets     int
	batchRaw []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if got := r.URL.Query().Get("valueInputOption"); got != "RAW" {
			http.Error(w, "unexpected valueInputOption "+got, http.StatusBadRequest)
			return
		}
		f.rows = append(f.rows, vr.Values...)
		f.appends++
		n := len(f.rows)
		writeJSON(w, map[string]any{"updates": map[string]any{
			"updatedRange": f.title + "!A" + strconv.Itoa(n) + ":E" + strconv.Itoa(n),
		}})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		body, _ := io.ReadAll(r.Body)
		f.batchRaw = append(f.batchRaw, string(body))
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			rng := rq.DeleteDimension.Range
			if rng.SheetId != f.sheetID {
				http.Error(w, "wrong sheet", http.StatusBadRequest)
				return
			}
			f.rows = append(f.rows[:rng.StartIndex], f.rows[rng.EndIndex:]...)
		}
		writeJSON(w, map[string]any{})

	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		values := make([][]any, len(f.rows))
		for i, row := range f.rows {
			values[i] = []any{row[0]}
		}
		writeJSON(w, map[string]any{"values": values})

	case r.Method == http.MethodGet:
		f.gets++
		writeJSON(w, map[string]any{"sheets": []any{
			map[string]any{"properties": map[string]any{"sheetId": 7, "title": "Other"}},
			map[string]any{"properties": map[string]any{"sheetId": f.sheetID, "title": f.title}},
		}})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}


func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(ts.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-123", f.title, nil)
}

func expense(id, name string, amount int64) core.Expense {
	return core.Expense{
		ID:       id,
		Name:     name,
		Amount:   core.AmountFromInt(amount),
		Category: core.Food,
		Date:     core.NewDate(2024, 1, 1),
	}
}

func TestAppendAndDelete(t *testing.T) {
	ctx := context.Background()
	f := &fakeSheets{title: "Expenses", sheetID: 0}
	c := newTestClient(t, f)

	for _, e := range []core.Expense{expense("a", "Lunch", 10), expense("b", "Dinner", 20), expense("c", "Snack", 3)} {
		if _, err := c.AppendExpense(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}

	ref, err := c.AppendExpense(ctx, expense("b", "Dinner", 20))
	if err != nil {
		t.Fatalf("re-append: %v", err)
	}
	if f.appends != 3 || ref != "'Expenses'!A2:E2" {
		t.Fatalf("re-append should reuse row 2, got %q after %d appends", ref, f.appends)
	}

	if got := f.rows[0]; got[0] != "a" || got[1] != "2024-01-01" || got[2] != "Lunch" || got[3] != float64(10) || got[4] != "Food" {
		t.Fatalf("unexpected row layout %v", got)
	}

	if err := c.DeleteExpense(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ids, err := c.ExpenseIDs(ctx)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if strings.Join(ids, ",") != "a,c" {
		t.Fatalf("ids after delete = %v", ids)
	}
	if !strings.Contains(f.batchRaw[0], `"sheetId":0`) || !strings.Contains(f.batchRaw[0], `"startIndex":1`) {
		t.Fatalf("delete request must name sheet 0 explicitly: %s", f.batchRaw[0])
	}

	if err := c.DeleteExpense(ctx, "a"); err != nil {
		t.Fatalf("delete first row: %v", err)
	}
	if !strings.Contains(f.batchRaw[1], `"startIndex":0`) {
		t.Fatalf("row 0 must be sent explicitly: %s", f.batchRaw[1])
	}
	if f.gets != 1 {
		t.Fatalf("sheet id should be resolved once, got %d lookups", f.gets)
	}
}

func TestDeleteMissingRow(t *testing.T) {
	ctx := context.Background()
	f := &fakeSheets{title: "Expenses", sheetID: 3}
	c := newTestClient(t, f)

	if _, err := c.AppendExpense(ctx, expense("a", "Lunch", 10)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := c.DeleteExpense(ctx, "zzz"); err != nil {
		t.Fatalf("delete of missing row: %v", err)
	}
	if len(f.batchRaw) != 0 || f.gets != 0 {
		t.Fatalf("nothing to delete should not call batchUpdate")
	}
}

func TestDeleteDuplicates(t *testing.T) {
	ctx := context.Background()
	f := &fakeSheets{title: "Expenses", sheetID: 3}
	f.rows = [][]any{{"a"}, {"x"}, {"a"}, {"y"}}
	c := newTestClient(t, f)

	if err := c.DeleteExpense(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ids, _ := c.ExpenseIDs(ctx)
	if strings.Join(ids, ",") != "x,y" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestSheetNotFound(t *testing.T) {
	ctx := context.Background()
	f := &fakeSheets{title: "Expenses"}
	f.rows = [][]any{{"a"}}
	ts := httptest.NewServer(f)
	defer ts.Close()
	svc, err := gsheet.NewService(ctx, goption.WithEndpoint(ts.URL+"/"), goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c := NewWithService(svc, "sheet-123", "Missing", nil)

	if err := c.DeleteExpense(ctx, "a"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected sheet not found, got %v", err)
	}
}

func TestAppendRejectsEmptyID(t *testing.T) {
	c := NewWithService(nil, "sheet", "", nil)
	if _, err := c.AppendExpense(context.Background(), core.Expense{}); err == nil {
		t.Fatalf("expected error")
	}
	if c.sheetName != "Expenses" {
		t.Fatalf("default sheet name = %q", c.sheetName)
	}
}

func TestNewCredentials(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Config{}, nil); err == nil || !strings.Contains(err.Error(), "spreadsheet id") {
		t.Fatalf("expected missing spreadsheet id, got %v", err)
	}
	if _, err := New(ctx, Config{SpreadsheetID: "x"}, nil); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("expected missing credentials, got %v", err)
	}
	if _, err := New(ctx, Config{SpreadsheetID: "x", CredentialsJSON: "not json"}, nil); err == nil {
		t.Fatalf("expected parse error for invalid JSON")
	}

	missing := filepath.Join(t.TempDir(), "nope.json")
	if _, err := New(ctx, Config{SpreadsheetID: "x", CredentialsFile: missing}, nil); err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(ctx, Config{SpreadsheetID: "x", CredentialsFile: bad}, nil); err == nil {
		t.Fatalf("expected parse error for truncated file")
	}
}
