// Package contract models the declarative feature contract (spec.md §3): the
// keys, features, dtypes, tolerances, nullability, categorical domains, numeric
// ranges, and null policy a training/serving skew check is run against.
package contract

// DType is the declared type of a feature column.
type DType string

const (
	DTypeInt      DType = "int"
	DTypeFloat    DType = "float"
	DTypeBool     DType = "bool"
	DTypeString   DType = "string"
	DTypeCategory DType = "category"
	DTypeDatetime DType = "datetime"
)

func (d DType) valid() bool {
	switch d {
	case DTypeInt, DTypeFloat, DTypeBool, DTypeString, DTypeCategory, DTypeDatetime:
		return true
	default:
		return false
	}
}

// NullPolicy controls how one-sided and two-sided nulls are scored.
type NullPolicy string

const (
	NullPolicySame   NullPolicy = "same"
	NullPolicyIgnore NullPolicy = "ignore"
)

// Tolerance is the (abs, rel) pair defining allowed numeric disagreement.
// At least one of Abs/Rel must be set for the tolerance to be meaningful;
// HasAbs/HasRel record which were actually declared (zero is a valid value).
type Tolerance struct {
	Abs    float64
	Rel    float64
	HasAbs bool
	HasRel bool
}

// Range is an inclusive numeric bound, Lo <= Hi.
type Range struct {
	Lo float64
	Hi float64
}

// Window is descriptive metadata about a time-windowed feature. It is not
// enforced by the comparator (spec.md §3).
type Window struct {
	LookbackDays int
	TimestampCol string
	Closed       string // left | right | both | neither
}

// Feature is a single named, typed entry in a Spec.
type Feature struct {
	Name       string
	DType      DType
	Nullable   bool
	Tolerance  *Tolerance
	Categories []string
	Range      *Range
	Window     *Window
}

// Spec is the immutable-after-load feature contract.
type Spec struct {
	Version    int
	Keys       []string
	Features   []Feature
	NullPolicy NullPolicy
}

// FeatureByName returns the feature with the given name, if any.
func (s *Spec) FeatureByName(name string) (*Feature, bool) {
	for i := range s.Features {
		if s.Features[i].Name == name {
			return &s.Features[i], true
		}
	}
	return nil, false
}
