// Package compare implements the dtype-dispatched comparator (spec.md §4.4):
// given two positionally aligned feature tables and a contract, it produces
// one PerFeatureComparison per declared feature.
package compare

import (
	"math"
	"time"

	"github.com/yourorg/skewsentry/internal/contract"
	"github.com/yourorg/skewsentry/internal/table"
)

// UnknownCategories holds the values observed on each side of a category
// feature that fall outside its declared domain.
type UnknownCategories struct {
	OfflineUnknown []string
	OnlineUnknown  []string
}

// PerFeatureComparison is the per-feature comparison result spec.md §4.4
// defines: a row-aligned mismatch mask plus summary statistics.
type PerFeatureComparison struct {
	FeatureName            string
	Missing                bool
	MismatchMask           []bool
	MismatchRate           float64
	NumRowsCompared        int
	MeanAbsoluteDifference *float64
	UnknownCategories      *UnknownCategories
}

// Compare iterates spec's features against the aligned tables, dispatching
// on each feature's declared dtype.
func Compare(offline, online table.Table, spec *contract.Spec) []PerFeatureComparison {
	out := make([]PerFeatureComparison, len(spec.Features))
	for i, f := range spec.Features {
		offCol, offOK := offline.Col(f.Name)
		onCol, onOK := online.Col(f.Name)
		if !offOK || !onOK {
			out[i] = PerFeatureComparison{FeatureName: f.Name, Missing: true}
			continue
		}
		out[i] = compareFeature(f, offCol, onCol, offline.Rows, spec.NullPolicy)
	}
	return out
}

func compareFeature(f contract.Feature, offCol, onCol *table.Column, rows int, nullPolicy contract.NullPolicy) PerFeatureComparison {
	mask := make([]bool, rows)
	compared := 0
	mismatches := 0
	var absDiffs []float64

	var offUnknown, onUnknown map[string]bool
	if f.DType == contract.DTypeCategory {
		offUnknown, onUnknown = map[string]bool{}, map[string]bool{}
	}

	numeric := f.DType == contract.DTypeFloat || f.DType == contract.DTypeInt

	for i := 0; i < rows; i++ {
		offNull := isNull(offCol, i)
		onNull := isNull(onCol, i)

		if nullPolicy == contract.NullPolicyIgnore && (offNull || onNull) {
			continue
		}
		compared++

		var mismatch bool
		if offNull || onNull {
			// null_policy=same (the only other branch reaching here): a
			// one-sided null is always a mismatch; both null always matches.
			mismatch = offNull != onNull
		} else {
			matched, diff := compareValues(f, offCol, onCol, i, offUnknown, onUnknown)
			mismatch = !matched
			if numeric && diff != nil {
				absDiffs = append(absDiffs, *diff)
			}
			if f.Range != nil && (outOfRange(f.Range, offCol, i) || outOfRange(f.Range, onCol, i)) {
				mismatch = true
			}
		}

		mask[i] = mismatch
		if mismatch {
			mismatches++
		}
	}

	result := PerFeatureComparison{
		FeatureName:     f.Name,
		MismatchMask:    mask,
		NumRowsCompared: compared,
	}
	if compared > 0 {
		result.MismatchRate = float64(mismatches) / float64(compared)
	}
	if len(absDiffs) > 0 {
		sum := 0.0
		for _, d := range absDiffs {
			sum += d
		}
		mean := sum / float64(len(absDiffs))
		result.MeanAbsoluteDifference = &mean
	}
	if offUnknown != nil {
		result.UnknownCategories = &UnknownCategories{
			OfflineUnknown: sortedKeys(offUnknown),
			OnlineUnknown:  sortedKeys(onUnknown),
		}
	}
	return result
}

// compareValues reports whether row i matches under f's dtype rule, and for
// numeric dtypes, the absolute difference contributing to
// mean_absolute_difference (nil if not finite/applicable).
func compareValues(f contract.Feature, offCol, onCol *table.Column, i int, offUnknown, onUnknown map[string]bool) (bool, *float64) {
	switch f.DType {
	case contract.DTypeFloat, contract.DTypeInt:
		o := numericValue(offCol, i)
		n := numericValue(onCol, i)
		return compareNumeric(o, n, f.Tolerance)
	case contract.DTypeBool:
		return boolValue(offCol, i) == boolValue(onCol, i), nil
	case contract.DTypeString:
		return stringValue(offCol, i) == stringValue(onCol, i), nil
	case contract.DTypeDatetime:
		return timeValue(offCol, i).UTC().Equal(timeValue(onCol, i).UTC()), nil
	case contract.DTypeCategory:
		ov, nv := stringValue(offCol, i), stringValue(onCol, i)
		offKnown := contains(f.Categories, ov)
		onKnown := contains(f.Categories, nv)
		if !offKnown {
			offUnknown[ov] = true
		}
		if !onKnown {
			onUnknown[nv] = true
		}
		// unknowns are kept strict: even if both sides emit the same
		// out-of-domain value, that's still a mismatch (spec.md §9).
		if !offKnown || !onKnown {
			return false, nil
		}
		return ov == nv, nil
	default:
		return stringValue(offCol, i) == stringValue(onCol, i), nil
	}
}

// compareNumeric applies spec.md §4.4's tolerance algebra, treating NaN as
// null (the caller already screened nulls and NaN floats via isNull; a NaN
// here comes from numericValue reading a column that is neither int nor
// float).
func compareNumeric(o, n float64, tol *contract.Tolerance) (bool, *float64) {
	if math.IsNaN(o) || math.IsNaN(n) {
		// NaN behaves as null under tolerance rules; treat as a one-sided
		// null so it is always a mismatch unless both sides are NaN.
		match := math.IsNaN(o) && math.IsNaN(n)
		return match, nil
	}

	if math.IsInf(o, 0) || math.IsInf(n, 0) {
		sameSign := (math.IsInf(o, 1) && math.IsInf(n, 1)) || (math.IsInf(o, -1) && math.IsInf(n, -1))
		if !sameSign {
			return false, nil
		}
		if tol != nil && tol.HasAbs && math.IsInf(tol.Abs, 1) {
			return true, nil
		}
		return false, nil
	}

	diff := math.Abs(o - n)
	diffCopy := diff
	if tol == nil || (!tol.HasAbs && !tol.HasRel) {
		return o == n, &diffCopy
	}
	if tol.HasAbs && diff <= tol.Abs {
		return true, &diffCopy
	}
	if tol.HasRel {
		maxAbs := math.Max(math.Abs(o), math.Abs(n))
		if maxAbs > 0 && diff <= tol.Rel*maxAbs {
			return true, &diffCopy
		}
	}
	return false, &diffCopy
}

func outOfRange(r *contract.Range, col *table.Column, i int) bool {
	v := numericValue(col, i)
	if math.IsNaN(v) {
		return false
	}
	return v < r.Lo || v > r.Hi
}

func isNull(col *table.Column, i int) bool {
	if col.Null[i] {
		return true
	}
	if col.Kind == table.FloatKind && math.IsNaN(col.Floats[i]) {
		return true
	}
	return false
}

func numericValue(col *table.Column, i int) float64 {
	switch col.Kind {
	case table.FloatKind:
		return col.Floats[i]
	case table.IntKind:
		return float64(col.Ints[i])
	default:
		return math.NaN()
	}
}

func boolValue(col *table.Column, i int) bool {
	if col.Kind == table.BoolKind {
		return col.Bools[i]
	}
	return false
}

func stringValue(col *table.Column, i int) string {
	if col.Kind == table.StringKind {
		return col.Strings[i]
	}
	return ""
}

func timeValue(col *table.Column, i int) time.Time {
	if col.Kind == table.TimeKind {
		return col.Times[i]
	}
	return time.Time{}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// stable, deterministic report output
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
