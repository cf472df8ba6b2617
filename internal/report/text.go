// Package report renders a runner.ComparisonReport as text, HTML, or JSON
// (spec.md §6: "Serialization (JSON/HTML/text) is a collaborator").
package report

import (
	"fmt"
	"strings"

	"github.com/yourorg/skewsentry/internal/runner"
)

// Text renders a plain-text summary, in the spirit of a CI log: overall
// verdict first, then one line per feature, then alignment diagnostics.
func Text(r *runner.ComparisonReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SkewSentry report\n")
	fmt.Fprintf(&b, "OK: %v\n", r.OK)
	fmt.Fprintf(&b, "Keys: %s\n\n", strings.Join(r.Keys, ", "))

	fmt.Fprintf(&b, "Per-feature results:\n")
	for _, f := range r.PerFeature {
		if f.Missing {
			fmt.Fprintf(&b, "  %-30s MISSING\n", f.FeatureName)
			continue
		}
		fmt.Fprintf(&b, "  %-30s mismatch_rate=%.4f rows_compared=%d", f.FeatureName, f.MismatchRate, f.NumRowsCompared)
		if f.MeanAbsoluteDifference != nil {
			fmt.Fprintf(&b, " mean_abs_diff=%.6f", *f.MeanAbsoluteDifference)
		}
		if f.UnknownCategories != nil && (len(f.UnknownCategories.OfflineUnknown) > 0 || len(f.UnknownCategories.OnlineUnknown) > 0) {
			fmt.Fprintf(&b, " offline_unknown=%v online_unknown=%v", f.UnknownCategories.OfflineUnknown, f.UnknownCategories.OnlineUnknown)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\nAlignment:\n")
	fmt.Fprintf(&b, "  missing_in_online_count=%d\n", r.Alignment.MissingInOnlineCount)
	fmt.Fprintf(&b, "  missing_in_offline_count=%d\n", r.Alignment.MissingInOfflineCount)

	return b.String()
}
