package compare

import (
	"math"
	"testing"
	"time"

	"github.com/yourorg/skewsentry/internal/contract"
	"github.com/yourorg/skewsentry/internal/table"
)

func floatCol(name string, vals []float64, null []bool) table.Column {
	if null == nil {
		null = make([]bool, len(vals))
	}
	return table.Column{Name: name, Kind: table.FloatKind, Floats: vals, Null: null}
}

func numericSpec(tol *contract.Tolerance) *contract.Spec {
	return &contract.Spec{
		Keys:       []string{"id"},
		NullPolicy: contract.NullPolicySame,
		Features:   []contract.Feature{{Name: "x", DType: contract.DTypeFloat, Tolerance: tol}},
	}
}

// TestNumericAbsTolerance mirrors original_source's test_compare.test_numeric_abs_tolerance.
func TestNumericAbsTolerance(t *testing.T) {
	spec := numericSpec(&contract.Tolerance{Abs: 0.01, HasAbs: true})
	off := table.Table{Rows: 3, Columns: []table.Column{floatCol("x", []float64{1.00, 2.00, 3.00}, nil)}}
	on := table.Table{Rows: 3, Columns: []table.Column{floatCol("x", []float64{1.005, 2.02, 2.99}, nil)}}

	res := Compare(off, on, spec)
	r := res[0]
	expected := []bool{false, true, false}
	for i := range expected {
		if r.MismatchMask[i] != expected[i] {
			t.Fatalf("row %d: expected %v, got %v", i, expected[i], r.MismatchMask[i])
		}
	}
	if r.NumRowsCompared != 3 {
		t.Fatalf("expected 3 rows compared, got %d", r.NumRowsCompared)
	}
}

// TestNumericRelTolerance mirrors test_numeric_rel_tolerance.
func TestNumericRelTolerance(t *testing.T) {
	spec := numericSpec(&contract.Tolerance{Rel: 0.05, HasRel: true})
	off := table.Table{Rows: 2, Columns: []table.Column{floatCol("x", []float64{100.0, 0.1}, nil)}}
	on := table.Table{Rows: 2, Columns: []table.Column{floatCol("x", []float64{104.0, 0.099}, nil)}}

	res := Compare(off, on, spec)
	if res[0].MismatchRate != 0.0 {
		t.Fatalf("expected mismatch_rate=0, got %v", res[0].MismatchRate)
	}
}

// TestNullPolicySameFlagsMismatch mirrors test_null_policy_same_flags_mismatch.
func TestNullPolicySameFlagsMismatch(t *testing.T) {
	spec := numericSpec(&contract.Tolerance{Abs: 0.01, HasAbs: true})
	off := table.Table{Rows: 2, Columns: []table.Column{floatCol("x", []float64{0, 2.0}, []bool{true, false})}}
	on := table.Table{Rows: 2, Columns: []table.Column{floatCol("x", []float64{1.0, 0}, []bool{false, true})}}

	res := Compare(off, on, spec)
	if res[0].MismatchMask[0] != true || res[0].MismatchMask[1] != true {
		t.Fatalf("expected both rows to mismatch under null_policy=same, got %v", res[0].MismatchMask)
	}
}

// TestCategoryAndUnknowns mirrors test_category_and_unknowns.
func TestCategoryAndUnknowns(t *testing.T) {
	spec := &contract.Spec{
		Keys:       []string{"id"},
		NullPolicy: contract.NullPolicySame,
		Features: []contract.Feature{
			{Name: "country", DType: contract.DTypeCategory, Categories: []string{"US", "UK"}},
		},
	}
	off := table.Table{Rows: 3, Columns: []table.Column{
		{Name: "country", Kind: table.StringKind, Strings: []string{"US", "CA", "UK"}, Null: make([]bool, 3)},
	}}
	on := table.Table{Rows: 3, Columns: []table.Column{
		{Name: "country", Kind: table.StringKind, Strings: []string{"US", "UK", "DE"}, Null: make([]bool, 3)},
	}}

	res := Compare(off, on, spec)
	r := res[0]
	expected := []bool{false, true, true}
	for i := range expected {
		if r.MismatchMask[i] != expected[i] {
			t.Fatalf("row %d: expected %v, got %v", i, expected[i], r.MismatchMask[i])
		}
	}
	if len(r.UnknownCategories.OfflineUnknown) != 1 || r.UnknownCategories.OfflineUnknown[0] != "CA" {
		t.Fatalf("expected offline_unknown={CA}, got %v", r.UnknownCategories.OfflineUnknown)
	}
	if len(r.UnknownCategories.OnlineUnknown) != 1 || r.UnknownCategories.OnlineUnknown[0] != "DE" {
		t.Fatalf("expected online_unknown={DE}, got %v", r.UnknownCategories.OnlineUnknown)
	}
}

// TestCategoryAgreeingUnknownsStillMismatch covers the resolved open question
// (spec.md §9): two out-of-domain values that happen to be equal still count
// as a mismatch, not a match.
func TestCategoryAgreeingUnknownsStillMismatch(t *testing.T) {
	spec := &contract.Spec{
		Keys:       []string{"id"},
		NullPolicy: contract.NullPolicySame,
		Features: []contract.Feature{
			{Name: "country", DType: contract.DTypeCategory, Categories: []string{"US", "UK"}},
		},
	}
	off := table.Table{Rows: 1, Columns: []table.Column{
		{Name: "country", Kind: table.StringKind, Strings: []string{"ZZ"}, Null: make([]bool, 1)},
	}}
	on := table.Table{Rows: 1, Columns: []table.Column{
		{Name: "country", Kind: table.StringKind, Strings: []string{"ZZ"}, Null: make([]bool, 1)},
	}}

	res := Compare(off, on, spec)
	if !res[0].MismatchMask[0] {
		t.Fatal("expected agreeing unknown category values to still mismatch")
	}
}

// TestStringAndDatetimeEquality mirrors test_string_and_datetime_equality.
func TestStringAndDatetimeEquality(t *testing.T) {
	spec := &contract.Spec{
		Keys:       []string{"id"},
		NullPolicy: contract.NullPolicySame,
		Features: []contract.Feature{
			{Name: "name", DType: contract.DTypeString},
			{Name: "ts", DType: contract.DTypeDatetime},
		},
	}
	ts1, _ := time.Parse("2006-01-02", "2024-01-01")
	ts2, _ := time.Parse("2006-01-02", "2024-01-02")

	off := table.Table{Rows: 2, Columns: []table.Column{
		{Name: "name", Kind: table.StringKind, Strings: []string{"a", "b"}, Null: make([]bool, 2)},
		{Name: "ts", Kind: table.TimeKind, Times: []time.Time{ts1, ts2}, Null: make([]bool, 2)},
	}}
	on := table.Table{Rows: 2, Columns: []table.Column{
		{Name: "name", Kind: table.StringKind, Strings: []string{"a", "x"}, Null: make([]bool, 2)},
		{Name: "ts", Kind: table.TimeKind, Times: []time.Time{ts1, ts2}, Null: make([]bool, 2)},
	}}

	res := Compare(off, on, spec)
	var nameRes, tsRes *PerFeatureComparison
	for i := range res {
		switch res[i].FeatureName {
		case "name":
			nameRes = &res[i]
		case "ts":
			tsRes = &res[i]
		}
	}
	if nameRes.MismatchMask[0] != false || nameRes.MismatchMask[1] != true {
		t.Fatalf("unexpected name mismatch mask: %v", nameRes.MismatchMask)
	}
	if tsRes.MismatchRate != 0.0 {
		t.Fatalf("expected ts mismatch_rate=0, got %v", tsRes.MismatchRate)
	}
}

func TestNaNTreatedAsNull(t *testing.T) {
	spec := numericSpec(nil)
	off := table.Table{Rows: 1, Columns: []table.Column{floatCol("x", []float64{math.NaN()}, nil)}}
	on := table.Table{Rows: 1, Columns: []table.Column{floatCol("x", []float64{1.0}, nil)}}

	res := Compare(off, on, spec)
	if !res[0].MismatchMask[0] {
		t.Fatal("expected NaN-vs-value to be a one-sided null mismatch")
	}
}

func TestMissingFeatureReportedNotFatal(t *testing.T) {
	spec := &contract.Spec{
		Keys:       []string{"id"},
		NullPolicy: contract.NullPolicySame,
		Features:   []contract.Feature{{Name: "absent", DType: contract.DTypeString}},
	}
	off := table.Table{Rows: 1}
	on := table.Table{Rows: 1}

	res := Compare(off, on, spec)
	if !res[0].Missing {
		t.Fatal("expected Missing=true for a feature absent from both tables")
	}
	if res[0].NumRowsCompared != 0 || res[0].MismatchRate != 0 {
		t.Fatalf("expected zeroed stats for a missing feature, got %+v", res[0])
	}
}

func TestRangeViolationIsMismatchRegardlessOfTolerance(t *testing.T) {
	spec := &contract.Spec{
		Keys:       []string{"id"},
		NullPolicy: contract.NullPolicySame,
		Features: []contract.Feature{{
			Name: "age", DType: contract.DTypeInt,
			Tolerance: &contract.Tolerance{Abs: 100, HasAbs: true},
			Range:     &contract.Range{Lo: 0, Hi: 120},
		}},
	}
	null := []bool{false}
	off := table.Table{Rows: 1, Columns: []table.Column{{Name: "age", Kind: table.IntKind, Ints: []int64{30}, Null: null}}}
	on := table.Table{Rows: 1, Columns: []table.Column{{Name: "age", Kind: table.IntKind, Ints: []int64{200}, Null: null}}}

	res := Compare(off, on, spec)
	if !res[0].MismatchMask[0] {
		t.Fatal("expected an out-of-range value to mismatch despite generous tolerance")
	}
}
