package inputs

import (
	"reflect"
	"testing"

	"github.com/yourorg/skewsentry/internal/table"
)

func rangeTable(n int) table.Table {
	vals := make([]int64, n)
	null := make([]bool, n)
	for i := range vals {
		vals[i] = int64(i)
	}
	return table.Table{Rows: n, Columns: []table.Column{{Name: "x", Kind: table.IntKind, Ints: vals, Null: null}}}
}

func TestSamplingIsDeterministic(t *testing.T) {
	tb := rangeTable(100)

	s1, err := Sample(tb, 10, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, err := Sample(tb, 10, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c1, _ := s1.Col("x")
	c2, _ := s2.Col("x")
	if !reflect.DeepEqual(c1.Ints, c2.Ints) {
		t.Fatalf("same seed produced different samples: %v vs %v", c1.Ints, c2.Ints)
	}

	s3, err := Sample(tb, 10, 43)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c3, _ := s3.Col("x")
	if reflect.DeepEqual(c1.Ints, c3.Ints) {
		t.Fatal("different seeds should produce different samples")
	}

	if s1.Rows != 10 || s2.Rows != 10 || s3.Rows != 10 {
		t.Fatalf("expected 10 rows in each sample")
	}
}

func TestSamplingBounds(t *testing.T) {
	tb := rangeTable(5)

	s, err := Sample(tb, 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Rows != 5 {
		t.Fatalf("expected passthrough of all 5 rows, got %d", s.Rows)
	}

	if _, err := Sample(tb, 0, 1); err == nil {
		t.Fatal("expected error for sample size 0")
	}
}
