package report

import (
	"strings"
	"testing"

	"github.com/yourorg/skewsentry/internal/compare"
	"github.com/yourorg/skewsentry/internal/contract"
	"github.com/yourorg/skewsentry/internal/runner"
)

func dummyReport() *runner.ComparisonReport {
	meanAbs := 0.1
	return &runner.ComparisonReport{
		OK:   false,
		Keys: []string{"id"},
		Spec: &contract.Spec{Version: 1, Keys: []string{"id"}, Features: []contract.Feature{{Name: "x", DType: contract.DTypeFloat}}},
		Alignment: runner.AlignmentReport{
			MissingInOnlineCount:  0,
			MissingInOfflineCount: 0,
		},
		PerFeature: []runner.FeatureReport{
			{
				FeatureName:            "x",
				MismatchMask:           []bool{false, true, false},
				MismatchRate:           1.0 / 3.0,
				NumRowsCompared:        3,
				MeanAbsoluteDifference: &meanAbs,
				UnknownCategories:      &compare.UnknownCategories{},
			},
		},
	}
}

// TestRenderTextContainsKeyInfo mirrors original_source's test_report.test_render_text_contains_key_info.
func TestRenderTextContainsKeyInfo(t *testing.T) {
	txt := Text(dummyReport())
	if !strings.Contains(txt, "Per-feature") {
		t.Fatal("expected text report to mention Per-feature")
	}
	if !strings.Contains(txt, "mismatch_rate") {
		t.Fatal("expected text report to mention mismatch_rate")
	}
}

// TestRenderHTMLContainsSections mirrors test_render_html_contains_sections.
func TestRenderHTMLContainsSections(t *testing.T) {
	html, err := HTML(dummyReport(), "report.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "SkewSentry Report") {
		t.Fatal("expected HTML to contain title")
	}
	if !strings.Contains(html, "Per-feature") {
		t.Fatal("expected HTML to contain Per-feature section")
	}
	if !strings.Contains(html, "Mismatch rate") {
		t.Fatal("expected HTML to contain Mismatch rate column header")
	}
	if !strings.Contains(html, "report.json") {
		t.Fatal("expected HTML to link the JSON sibling")
	}
}

func TestRenderJSONRoundTrips(t *testing.T) {
	raw, err := JSON(dummyReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), `"ok": false`) {
		t.Fatalf("expected ok:false in JSON output, got %s", raw)
	}
}
