package inputs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCSVInfersKinds(t *testing.T) {
	content := "id,value,name\n1,0.1,a\n2,0.2,b\n3,0.3,c\n"
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	tb, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tb.Rows != 3 {
		t.Fatalf("expected 3 rows, got %d", tb.Rows)
	}

	idCol, ok := tb.Col("id")
	if !ok {
		t.Fatal("expected id column")
	}
	if idCol.Value(0) != int64(1) {
		t.Fatalf("expected id[0]=1, got %v", idCol.Value(0))
	}

	valCol, ok := tb.Col("value")
	if !ok {
		t.Fatal("expected value column")
	}
	if valCol.Value(1) != 0.2 {
		t.Fatalf("expected value[1]=0.2, got %v", valCol.Value(1))
	}

	nameCol, ok := tb.Col("name")
	if !ok {
		t.Fatal("expected name column")
	}
	if nameCol.Value(2) != "c" {
		t.Fatalf("expected name[2]=c, got %v", nameCol.Value(2))
	}
}

func TestLoadCSVHandlesMissingCells(t *testing.T) {
	content := "id,value\n1,0.5\n2,\n"
	path := filepath.Join(t.TempDir(), "nulls.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	tb, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	valCol, _ := tb.Col("value")
	if !valCol.Null[1] {
		t.Fatal("expected row 1 value to be null")
	}
}
