package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/yourorg/skewsentry/internal/table"
)

// TestHTTPAdapterRoundTrip is grounded on the original tool's
// test_adapter_http.py: an echo service returning z = a + b for each row,
// exercised through a batch size smaller than the input so batching is real.
func TestHTTPAdapterRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rows []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			a, _ := row["a"].(float64)
			b, _ := row["b"].(float64)
			out[i] = map[string]any{"id": row["id"], "z": a + b}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	a, err := NewHTTP(HTTPConfig{URL: srv.URL, BatchSize: 2, Timeout: 2 * time.Second, Retries: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := []int64{1, 2, 3}
	aVals := []int64{10, 20, 30}
	bVals := []int64{1, 2, 3}
	null := make([]bool, 3)
	in := table.Table{Rows: 3, Columns: []table.Column{
		{Name: "id", Kind: table.IntKind, Ints: ids, Null: null},
		{Name: "a", Kind: table.IntKind, Ints: aVals, Null: null},
		{Name: "b", Kind: table.IntKind, Ints: bVals, Null: null},
	}}

	out, err := a.Produce(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(out.Header(), []string{"id", "z"}) {
		t.Fatalf("unexpected output columns: %v", out.Header())
	}
	zCol, _ := out.Col("z")
	zs := []float64{zCol.Value(0).(float64), zCol.Value(1).(float64), zCol.Value(2).(float64)}
	if !reflect.DeepEqual(zs, []float64{11, 22, 33}) {
		t.Fatalf("unexpected z values: %v", zs)
	}
}

// TestHTTPAdapterRetriesOnClientError covers spec.md §4.2.2: any non-200
// response, 4xx included, is a transport error and gets retried.
func TestHTTPAdapterRetriesOnClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	a, _ := NewHTTP(HTTPConfig{URL: srv.URL, Retries: 2, Timeout: time.Second})
	in := table.Table{Rows: 1, Columns: []table.Column{{Name: "id", Kind: table.IntKind, Ints: []int64{1}, Null: []bool{false}}}}

	_, err := a.Produce(context.Background(), in)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected all 3 attempts (1 + 2 retries) for a persistent 400, got %d", calls)
	}
}

// TestHTTPAdapterNonRetryableOnMalformedBody covers spec.md §4.2.2: a 200
// response whose body isn't a JSON array is a protocol error, not retried.
func TestHTTPAdapterNonRetryableOnMalformedBody(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	a, _ := NewHTTP(HTTPConfig{URL: srv.URL, Retries: 2, Timeout: time.Second})
	in := table.Table{Rows: 1, Columns: []table.Column{{Name: "id", Kind: table.IntKind, Ints: []int64{1}, Null: []bool{false}}}}

	_, err := a.Produce(context.Background(), in)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt for a non-retryable malformed body, got %d", calls)
	}
}

func TestHTTPAdapterRetriesTransportFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"z":5}]`))
	}))
	defer srv.Close()

	a, _ := NewHTTP(HTTPConfig{URL: srv.URL, Retries: 2, Timeout: time.Second})
	in := table.Table{Rows: 1, Columns: []table.Column{{Name: "id", Kind: table.IntKind, Ints: []int64{1}, Null: []bool{false}}}}

	out, err := a.Produce(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected a retry after the first 503, got %d calls", calls)
	}
	zCol, _ := out.Col("z")
	if zCol.Value(0).(float64) != 5 {
		t.Fatalf("unexpected z value: %v", zCol.Value(0))
	}
}
