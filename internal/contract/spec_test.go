package contract

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestRoundTripYAML(t *testing.T) {
	const yamlContent = `
version: 1
keys: ["user_id", "ts"]
features:
  - name: spend_7d
    dtype: float
    nullable: true
    tolerance: { abs: 0.01, rel: 0.001 }
    window: { lookback_days: 7, timestamp_col: "ts", closed: "right" }
  - name: country
    dtype: category
    categories: [UK, US, DE]
    nullable: false
  - name: age
    dtype: int
    nullable: false
    range: [0, 120]
null_policy: same
`
	path := writeTemp(t, "features.yml", yamlContent)

	spec, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Version != 1 {
		t.Fatalf("expected version 1, got %d", spec.Version)
	}
	if len(spec.Keys) != 2 || spec.Keys[0] != "user_id" || spec.Keys[1] != "ts" {
		t.Fatalf("unexpected keys: %v", spec.Keys)
	}
	if len(spec.Features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(spec.Features))
	}
	if spec.NullPolicy != NullPolicySame {
		t.Fatalf("expected null_policy=same, got %q", spec.NullPolicy)
	}

	roundTripPath := filepath.Join(t.TempDir(), "roundtrip.yml")
	if err := spec.Save(roundTripPath); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	spec2, err := Load(roundTripPath)
	if err != nil {
		t.Fatalf("unexpected error reloading round-tripped spec: %v", err)
	}
	if spec2.Version != spec.Version || len(spec2.Features) != len(spec.Features) {
		t.Fatalf("round-trip mismatch: %+v vs %+v", spec2, spec)
	}
	age, ok := spec2.FeatureByName("age")
	if !ok || age.Range == nil || age.Range.Lo != 0 || age.Range.Hi != 120 {
		t.Fatalf("round-trip lost age range: %+v", age)
	}
	country, ok := spec2.FeatureByName("country")
	if !ok || len(country.Categories) != 3 {
		t.Fatalf("round-trip lost categories: %+v", country)
	}
}

func TestInvalidDuplicateFeatureNames(t *testing.T) {
	path := writeTemp(t, "dup.yml", `
version: 1
keys: ["user_id"]
features:
  - name: f
    dtype: float
  - name: f
    dtype: float
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate feature names")
	}
}

func TestNegativeToleranceRejected(t *testing.T) {
	path := writeTemp(t, "neg_tol.yml", `
version: 1
keys: ["user_id"]
features:
  - name: f
    dtype: float
    tolerance: { abs: -0.1 }
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative tolerance")
	}
}

func TestInvalidRangeOrderRejected(t *testing.T) {
	path := writeTemp(t, "bad_range.yml", `
version: 1
keys: ["user_id"]
features:
  - name: age
    dtype: int
    range: [10, 0]
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for reversed range")
	}
}

func TestCategoriesNoDuplicatesRejected(t *testing.T) {
	path := writeTemp(t, "dup_cat.yml", `
version: 1
keys: ["user_id"]
features:
  - name: c
    dtype: category
    categories: [A, A]
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for duplicate categories")
	}
}

func TestDefaultsAppliedBeforeValidation(t *testing.T) {
	path := writeTemp(t, "defaults.yml", `
keys: ["user_id"]
features:
  - name: f
    dtype: float
`)
	spec, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Version != 1 {
		t.Fatalf("expected default version 1, got %d", spec.Version)
	}
	if spec.NullPolicy != NullPolicySame {
		t.Fatalf("expected default null_policy=same, got %q", spec.NullPolicy)
	}
	f, ok := spec.FeatureByName("f")
	if !ok || !f.Nullable {
		t.Fatalf("expected default nullable=true, got %+v", f)
	}
}

func TestUnknownDTypeRejected(t *testing.T) {
	path := writeTemp(t, "bad_dtype.yml", `
version: 1
keys: ["user_id"]
features:
  - name: f
    dtype: imaginary
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown dtype")
	}
}
