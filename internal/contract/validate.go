package contract

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every invariant violation found while validating
// a Spec into a single error naming each offending field path, per spec.md
// §4.1 ("fail fast with a single aggregated error naming the offending field
// path").
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid feature spec: %s", strings.Join(e.Problems, "; "))
}

// Validate checks every invariant in spec.md §3 and returns a *ValidationError
// naming all violations at once, or nil if the spec is well-formed.
func (s *Spec) Validate() error {
	var problems []string

	if len(s.Keys) == 0 {
		problems = append(problems, "keys: must be a non-empty list of column names")
	}
	if len(s.Features) == 0 {
		problems = append(problems, "features: must be a non-empty list")
	}
	if s.NullPolicy != NullPolicySame && s.NullPolicy != NullPolicyIgnore {
		problems = append(problems, fmt.Sprintf("null_policy: unknown value %q", s.NullPolicy))
	}

	seen := make(map[string]bool, len(s.Features))
	for i, f := range s.Features {
		path := fmt.Sprintf("features[%d](%s)", i, f.Name)

		if f.Name == "" {
			problems = append(problems, fmt.Sprintf("features[%d]: name must not be empty", i))
		} else if seen[f.Name] {
			problems = append(problems, fmt.Sprintf("features: duplicate feature name %q", f.Name))
		}
		seen[f.Name] = true

		if !f.DType.valid() {
			problems = append(problems, fmt.Sprintf("%s.dtype: unknown dtype %q", path, f.DType))
		}

		if f.Tolerance != nil {
			if !f.Tolerance.HasAbs && !f.Tolerance.HasRel {
				problems = append(problems, fmt.Sprintf("%s.tolerance: at least one of abs/rel must be present", path))
			}
			if f.Tolerance.HasAbs && f.Tolerance.Abs < 0 {
				problems = append(problems, fmt.Sprintf("%s.tolerance.abs: must be non-negative, got %v", path, f.Tolerance.Abs))
			}
			if f.Tolerance.HasRel && f.Tolerance.Rel < 0 {
				problems = append(problems, fmt.Sprintf("%s.tolerance.rel: must be non-negative, got %v", path, f.Tolerance.Rel))
			}
		}

		if f.DType == DTypeCategory {
			if len(f.Categories) == 0 {
				problems = append(problems, fmt.Sprintf("%s.categories: required and non-empty for dtype=category", path))
			} else {
				dup := make(map[string]bool, len(f.Categories))
				for _, c := range f.Categories {
					if dup[c] {
						problems = append(problems, fmt.Sprintf("%s.categories: duplicate value %q", path, c))
					}
					dup[c] = true
				}
			}
		}

		if f.Range != nil && f.Range.Lo > f.Range.Hi {
			problems = append(problems, fmt.Sprintf("%s.range: lo (%v) must be <= hi (%v)", path, f.Range.Lo, f.Range.Hi))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
