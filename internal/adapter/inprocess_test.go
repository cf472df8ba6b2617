package adapter

import (
	"context"
	"testing"

	"github.com/yourorg/skewsentry/internal/table"
)

func makeIDTable(ids ...int64) table.Table {
	null := make([]bool, len(ids))
	return table.Table{Rows: len(ids), Columns: []table.Column{{Name: "id", Kind: table.IntKind, Ints: ids, Null: null}}}
}

func TestNewInProcessUnknownName(t *testing.T) {
	if _, err := NewInProcess("does-not-exist"); err == nil {
		t.Fatal("expected error for unregistered adapter name")
	}
}

func TestInProcessProducePassesThroughRegisteredFunc(t *testing.T) {
	Register("double-id", func(ctx context.Context, in table.Table) (table.Table, error) {
		col, _ := in.Col("id")
		out := make([]int64, len(col.Ints))
		for i, v := range col.Ints {
			out[i] = v * 2
		}
		return table.Table{Rows: in.Rows, Columns: []table.Column{{Name: "id", Kind: table.IntKind, Ints: out, Null: col.Null}}}, nil
	})

	a, err := NewInProcess("double-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := a.Produce(context.Background(), makeIDTable(1, 2, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	col, _ := out.Col("id")
	if col.Ints[0] != 2 || col.Ints[1] != 4 || col.Ints[2] != 6 {
		t.Fatalf("unexpected output: %v", col.Ints)
	}
}

func TestInProcessWrapsNonAdapterError(t *testing.T) {
	Register("always-fails", func(ctx context.Context, in table.Table) (table.Table, error) {
		return table.Table{}, errPlain("boom")
	})

	a, _ := NewInProcess("always-fails")
	_, err := a.Produce(context.Background(), makeIDTable(1))
	var ae *Error
	if !asError(err, &ae) {
		t.Fatalf("expected *adapter.Error, got %T: %v", err, err)
	}
	if ae.Kind != KindReturnShape {
		t.Fatalf("expected KindReturnShape, got %v", ae.Kind)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func asError(err error, target **Error) bool {
	ae, ok := err.(*Error)
	if ok {
		*target = ae
	}
	return ok
}
