package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

func TestCreateAndGet(t *testing.T) {
	s := New()
	e, err := s.CreateExpression("square", "z^2", "doubles angles")
	if err != nil {
		t.Fatalf("CreateExpression: %v", err)
	}
	if e.RevisionID != "000001-000" {
		t.Errorf("RevisionID = %q, want 000001-000", e.RevisionID)
	}
	if e.Canonical != "(z ^ 2)" {
		t.Errorf("Canonical = %q", e.Canonical)
	}

	got, err := s.GetExpression("square")
	if err != nil {
		t.Fatalf("GetExpression: %v", err)
	}
	if got != e {
		t.Error("GetExpression returned a different expression")
	}
}

func TestCreateErrors(t *testing.T) {
	s := New()
	if _, err := s.CreateExpression("square", "z^2", ""); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		id     string
		source string
		check  func(error) bool
	}{
		{"duplicate", "square", "z", func(err error) bool { return errors.Is(err, ErrAlreadyExists) }},
		{"bad name", "Square", "z", func(err error) bool { return errors.Is(err, ErrInvalidName) }},
		{"empty name", "", "z", func(err error) bool { return errors.Is(err, ErrInvalidName) }},
		{"parse error", "broken", "z +", func(err error) bool {
			var pe *types.ParseError
			return errors.As(err, &pe)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateExpression(tt.id, tt.source, "")
			if err == nil || !tt.check(err) {
				t.Errorf("CreateExpression(%q, %q) error = %v", tt.id, tt.source, err)
			}
		})
	}
}

func TestListSorted(t *testing.T) {
	s := New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := s.CreateExpression(name, "z", ""); err != nil {
			t.Fatal(err)
		}
	}
	list := s.ListExpressions()
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i, want := range []string{"alpha", "mid", "zeta"} {
		if list[i].Name != want {
			t.Errorf("list[%d] = %q, want %q", i, list[i].Name, want)
		}
	}
}

func TestUpdateExpression(t *testing.T) {
	s := New()
	orig, err := s.CreateExpression("f", "z", "identity")
	if err != nil {
		t.Fatal(err)
	}

	updated, err := s.UpdateExpression("f", "z^3", "")
	if err != nil {
		t.Fatalf("UpdateExpression: %v", err)
	}
	if updated.Source != "z^3" || updated.Description != "identity" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.RevisionID == orig.RevisionID {
		t.Error("revision did not change")
	}
	if orig.Source != "z" {
		t.Error("update mutated the previously returned expression")
	}

	if _, err := s.UpdateExpression("missing", "z", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: %v", err)
	}
	if _, err := s.UpdateExpression("f", "((z", ""); err == nil {
		t.Error("expected parse error")
	}
}

func TestDeleteExpression(t *testing.T) {
	s := New()
	if _, err := s.CreateExpression("f", "z", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteExpression("f"); err != nil {
		t.Fatalf("DeleteExpression: %v", err)
	}
	if _, err := s.GetExpression("f"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetExpression after delete: %v", err)
	}
	if err := s.DeleteExpression("f"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestTableCaching(t *testing.T) {
	s := New()
	if _, err := s.CreateExpression("sq", "z^2", ""); err != nil {
		t.Fatal(err)
	}

	a, err := s.Table("sq", 8, 6)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	b, err := s.Table("sq", 8, 6)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("second Table call did not hit the cache")
	}
	st := s.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Tables != 1 || st.Expressions != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.TableBytes != 8*6*4 {
		t.Errorf("TableBytes = %d, want %d", st.TableBytes, 8*6*4)
	}

	if _, err := s.UpdateExpression("sq", "z^3", ""); err != nil {
		t.Fatal(err)
	}
	if n := s.Stats().Tables; n != 0 {
		t.Errorf("tables after update = %d, want 0", n)
	}
	c, err := s.Table("sq", 8, 6)
	if err != nil {
		t.Fatal(err)
	}
	if c == a {
		t.Error("table survived an update")
	}

	if _, err := s.Table("missing", 8, 6); !errors.Is(err, ErrNotFound) {
		t.Errorf("Table(missing): %v", err)
	}
}

func TestTableEviction(t *testing.T) {
	s := New(WithTableCapacity(2))
	if _, err := s.CreateExpression("f", "z", ""); err != nil {
		t.Fatal(err)
	}
	first, _ := s.Table("f", 1, 1)
	_, _ = s.Table("f", 2, 2)
	_, _ = s.Table("f", 1, 1) // refresh 1x1
	_, _ = s.Table("f", 3, 3) // evicts 2x2

	if n := s.Stats().Tables; n != 2 {
		t.Fatalf("tables = %d, want 2", n)
	}
	again, _ := s.Table("f", 1, 1)
	if again != first {
		t.Error("recently used table was evicted")
	}
	misses := s.Stats().Misses
	_, _ = s.Table("f", 2, 2)
	if s.Stats().Misses != misses+1 {
		t.Error("least recently used table was not evicted")
	}
}

func TestPutTree(t *testing.T) {
	s := New()
	e, err := s.PutTree("cubic", expr.Polynomial([]float64{0, 0, 0, 1}), "z cubed")
	if err != nil {
		t.Fatalf("PutTree: %v", err)
	}
	if e.Source != "(z ^ 3)" {
		t.Errorf("Source = %q", e.Source)
	}
	again, err := s.PutTree("cubic", expr.MustParse("z"), "")
	if err != nil {
		t.Fatal(err)
	}
	if again.RevisionID == e.RevisionID {
		t.Error("replacing did not bump the revision")
	}
	if !again.CreateTime.Equal(e.CreateTime) {
		t.Error("replacing changed CreateTime")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	if _, err := s.CreateExpression("f", "sin(z)", ""); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Table("f", 4+i%2, 4); err != nil {
				t.Error(err)
			}
			_ = s.ListExpressions()
			_ = s.Stats()
		}(i)
	}
	wg.Wait()
}
