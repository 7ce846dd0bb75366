package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/backend"
)

type selectHandler func(q *backend.Query) ([]map[string]any, error)

type mutation struct {
	method     string
	resource   string
	query      *backend.Query
	row        any
	onConflict []string
}

// fakeStore is an in-memory transport. Selects are served by per-resource
// handlers or, when none is set, by eq.-filtering the stored rows.
type fakeStore struct {
	mu        sync.Mutex
	handlers  map[string]selectHandler
	tables    map[string][]map[string]any
	unique    map[string][]string
	failWrite map[string]error
	queries   []*backend.Query
	mutations []mutation
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		handlers:  make(map[string]selectHandler),
		tables:    make(map[string][]map[string]any),
		unique:    make(map[string][]string),
		failWrite: make(map[string]error),
	}
}

func newTestRepository(store *fakeStore) *Repository {
	repo := NewRepository(store, zap.NewNop())
	repo.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return repo
}

func (f *fakeStore) Select(_ context.Context, q *backend.Query, target any) error {
	values, err := q.Values()
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.queries = append(f.queries, q)
	handler := f.handlers[q.Resource()]
	rows := f.filter(q.Resource(), values)
	f.mu.Unlock()

	if handler != nil {
		rows, err = handler(q)
		if err != nil {
			return err
		}
	}

	return backend.Decode(rows, target)
}

func (f *fakeStore) filter(resource string, values map[string][]string) []map[string]any {
	var out []map[string]any
	for _, row := range f.tables[resource] {
		match := true
		for col, conds := range values {
			if strings.Contains(col, ".") {
				continue
			}
			for _, cond := range conds {
				if !strings.HasPrefix(cond, "eq.") {
					continue
				}
				if fmt.Sprint(row[col]) != strings.TrimPrefix(cond, "eq.") {
					match = false
				}
			}
		}
		if match {
			out = append(out, row)
		}
	}
	return out
}

func (f *fakeStore) Insert(_ context.Context, resource string, row any, target any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mutations = append(f.mutations, mutation{method: http.MethodPost, resource: resource, row: row})
	if err := f.failWrite[resource]; err != nil {
		return err
	}

	record := toRecord(row)
	if cols := f.unique[resource]; len(cols) > 0 {
		for _, existing := range f.tables[resource] {
			same := true
			for _, c := range cols {
				if fmt.Sprint(existing[c]) != fmt.Sprint(record[c]) {
					same = false
				}
			}
			if same {
				return &backend.APIError{Status: http.StatusConflict, Code: "23505", Message: "duplicate key value violates unique constraint"}
			}
		}
	}

	f.seq++
	if _, ok := record["id"]; !ok {
		record["id"] = fmt.Sprintf("%s-%d", resource, f.seq)
	}
	if _, ok := record["created_at"]; !ok {
		record["created_at"] = time.Date(2024, 5, 1, 10, f.seq, 0, 0, time.UTC).Format(time.RFC3339)
	}
	f.tables[resource] = append(f.tables[resource], record)

	if target == nil {
		return nil
	}
	return backend.Decode([]map[string]any{record}, target)
}

func (f *fakeStore) Upsert(_ context.Context, resource string, row any, onConflict []string, target any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mutations = append(f.mutations, mutation{method: "UPSERT", resource: resource, row: row, onConflict: onConflict})
	if err := f.failWrite[resource]; err != nil {
		return err
	}

	record := toRecord(row)
	for _, existing := range f.tables[resource] {
		same := true
		for _, c := range onConflict {
			if fmt.Sprint(existing[c]) != fmt.Sprint(record[c]) {
				same = false
			}
		}
		if same {
			for k, v := range record {
				existing[k] = v
			}
			return nil
		}
	}
	f.tables[resource] = append(f.tables[resource], record)
	return nil
}

func (f *fakeStore) Update(_ context.Context, q *backend.Query, patch any, target any) error {
	values, err := q.Values()
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.mutations = append(f.mutations, mutation{method: http.MethodPatch, resource: q.Resource(), query: q, row: patch})
	if err := f.failWrite[q.Resource()]; err != nil {
		return err
	}

	rows := f.filter(q.Resource(), values)
	for _, row := range rows {
		for k, v := range toRecord(patch) {
			row[k] = v
		}
	}

	if target == nil {
		return nil
	}
	return backend.Decode(rows, target)
}

func (f *fakeStore) Delete(_ context.Context, q *backend.Query) error {
	values, err := q.Values()
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.mutations = append(f.mutations, mutation{method: http.MethodDelete, resource: q.Resource(), query: q})
	matched := f.filter(q.Resource(), values)
	kept := f.tables[q.Resource()][:0]
	for _, row := range f.tables[q.Resource()] {
		drop := false
		for _, m := range matched {
			if fmt.Sprint(m["id"]) == fmt.Sprint(row["id"]) && fmt.Sprint(m) == fmt.Sprint(row) {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, row)
		}
	}
	f.tables[q.Resource()] = kept
	return nil
}

func (f *fakeStore) seed(resource string, rows ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[resource] = append(f.tables[resource], rows...)
}

func (f *fakeStore) count(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[resource])
}

// queriesWith returns recorded selects whose filters contain substr.
func (f *fakeStore) queriesWith(substr string) []*backend.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*backend.Query
	for _, q := range f.queries {
		if strings.Contains(q.String(), substr) {
			out = append(out, q)
		}
	}
	return out
}

func toRecord(row any) map[string]any {
	raw, err := json.Marshal(row)
	if err != nil {
		panic(fmt.Sprintf("marshal row %T: %v", row, err))
	}
	record := make(map[string]any)
	if err := json.Unmarshal(raw, &record); err != nil {
		panic(fmt.Sprintf("unmarshal row %T: %v", row, err))
	}
	return record
}

func jobRow(id, employerID, title string, skills ...string) map[string]any {
	s := make([]any, 0, len(skills))
	for _, v := range skills {
		s = append(s, v)
	}
	return map[string]any{
		"id":          id,
		"employer_id": employerID,
		"title":       title,
		"location":    "Berlin",
		"status":      "active",
		"skills":      s,
		"created_at":  "2024-04-01T10:00:00+00:00",
	}
}

func TestFakeStoreUniqueness(t *testing.T) {
	store := newFakeStore()
	store.unique["t"] = []string{"a"}

	if err := store.Insert(context.Background(), "t", map[string]string{"a": "1"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := store.Insert(context.Background(), "t", map[string]string{"a": "1"}, nil)
	if !backend.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}
