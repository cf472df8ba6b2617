package report

import (
	"encoding/json"

	"github.com/yourorg/skewsentry/internal/runner"
)

// JSON renders the report's logical schema (spec.md §6) as indented JSON.
func JSON(r *runner.ComparisonReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
