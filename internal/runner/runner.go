// Package runner implements the top-level orchestration spec.md §4.5
// describes: load, sample, invoke both adapters concurrently, align,
// compare, and assemble the final ComparisonReport.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yourorg/skewsentry/internal/adapter"
	"github.com/yourorg/skewsentry/internal/align"
	"github.com/yourorg/skewsentry/internal/compare"
	"github.com/yourorg/skewsentry/internal/contract"
	"github.com/yourorg/skewsentry/internal/inputs"
	"github.com/yourorg/skewsentry/internal/table"
)

// loadInput resolves dataPath to a table: a Google Sheets URL is fetched via
// the Sheets API, anything else is dispatched on file extension.
func loadInput(ctx context.Context, dataPath, googleCredentialsPath string) (table.Table, error) {
	if _, _, ok := inputs.ParseGoogleSheetURL(dataPath); ok {
		return inputs.LoadGoogleSheet(ctx, googleCredentialsPath, dataPath, "")
	}
	switch strings.ToLower(filepath.Ext(dataPath)) {
	case ".csv":
		return inputs.LoadCSV(dataPath)
	case ".xlsx":
		return inputs.LoadXLSX(dataPath, "")
	default:
		return table.Table{}, fmt.Errorf("unsupported input file extension %q", filepath.Ext(dataPath))
	}
}

// AlignmentReport is the JSON-facing shape of align.Diagnostics (spec.md §6).
type AlignmentReport struct {
	MissingInOnlineCount     int         `json:"missing_in_online_count"`
	MissingInOfflineCount    int         `json:"missing_in_offline_count"`
	MissingInOnlineExamples  []table.Row `json:"missing_in_online_examples"`
	MissingInOfflineExamples []table.Row `json:"missing_in_offline_examples"`
}

// FeatureReport is the JSON-facing shape of compare.PerFeatureComparison.
type FeatureReport struct {
	FeatureName            string                     `json:"feature_name"`
	NumRowsCompared        int                        `json:"num_rows_compared"`
	MismatchRate           float64                    `json:"mismatch_rate"`
	MeanAbsoluteDifference *float64                   `json:"mean_absolute_difference,omitempty"`
	UnknownCategories      *compare.UnknownCategories `json:"unknown_categories,omitempty"`
	Missing                bool                       `json:"-"`
	MismatchMask           []bool                     `json:"-"`
}

// ComparisonReport is the sole durable output of a run (spec.md §4.1, §6).
type ComparisonReport struct {
	OK         bool            `json:"ok"`
	Keys       []string        `json:"keys"`
	Spec       *contract.Spec  `json:"spec"`
	Alignment  AlignmentReport `json:"alignment"`
	PerFeature []FeatureReport `json:"per_feature"`
}

// Options configures a single Run. Sample nil means the flag was never set:
// the full input is used. A non-nil Sample is passed through to
// inputs.Sample as-is, so an explicit 0 reaches its "sample size must be
// positive" rejection (spec.md §8) instead of silently skipping sampling.
type Options struct {
	Sample *int
	Seed   int64
}

// Run executes the full offline/online comparison pipeline against an
// already-loaded input table.
func Run(ctx context.Context, spec *contract.Spec, input table.Table, offline, online adapter.Adapter, opts Options) (*ComparisonReport, error) {
	sampled := input
	if opts.Sample != nil {
		s, err := inputs.Sample(input, *opts.Sample, opts.Seed)
		if err != nil {
			return nil, fmt.Errorf("runner: sampling input: %w", err)
		}
		sampled = s
	}

	offTable, onTable, err := produceBoth(ctx, offline, online, sampled)
	if err != nil {
		return nil, err
	}

	offAligned, onAligned, diag, err := align.Align(offTable, onTable, spec.Keys)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	results := compare.Compare(offAligned, onAligned, spec)

	report := assembleReport(spec, diag, results)
	return report, nil
}

// RunFromPath is the CLI-facing entry point: it loads data from a file path
// or Google Sheets URL via internal/inputs before delegating to Run.
// googleCredentialsPath is only consulted when dataPath is a Google Sheets
// URL; pass "" to fall back to application-default credentials.
func RunFromPath(ctx context.Context, spec *contract.Spec, dataPath, googleCredentialsPath string, offline, online adapter.Adapter, opts Options) (*ComparisonReport, error) {
	input, err := loadInput(ctx, dataPath, googleCredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("runner: loading %s: %w", dataPath, err)
	}
	return Run(ctx, spec, input, offline, online, opts)
}

type producerResult struct {
	table table.Table
	err   error
}

// produceBoth invokes both adapters independently. Per spec.md §5 there is
// no shared mutable state between them; each gets the same (read-only)
// input table and the runner never retries above the adapter layer.
func produceBoth(ctx context.Context, offline, online adapter.Adapter, input table.Table) (table.Table, table.Table, error) {
	offCh := make(chan producerResult, 1)
	onCh := make(chan producerResult, 1)

	go func() {
		t, err := offline.Produce(ctx, input)
		offCh <- producerResult{table: t, err: err}
	}()
	go func() {
		t, err := online.Produce(ctx, input)
		onCh <- producerResult{table: t, err: err}
	}()

	offRes := <-offCh
	onRes := <-onCh

	if offRes.err != nil {
		return table.Table{}, table.Table{}, fmt.Errorf("runner: offline adapter: %w", offRes.err)
	}
	if onRes.err != nil {
		return table.Table{}, table.Table{}, fmt.Errorf("runner: online adapter: %w", onRes.err)
	}
	return offRes.table, onRes.table, nil
}

func assembleReport(spec *contract.Spec, diag align.Diagnostics, results []compare.PerFeatureComparison) *ComparisonReport {
	ok := true
	features := make([]FeatureReport, len(results))
	for i, r := range results {
		if r.Missing || r.MismatchRate > 0 {
			ok = false
		}
		features[i] = FeatureReport{
			FeatureName:            r.FeatureName,
			NumRowsCompared:        r.NumRowsCompared,
			MismatchRate:           r.MismatchRate,
			MeanAbsoluteDifference: r.MeanAbsoluteDifference,
			UnknownCategories:      r.UnknownCategories,
			Missing:                r.Missing,
			MismatchMask:           r.MismatchMask,
		}
	}

	return &ComparisonReport{
		OK:   ok,
		Keys: spec.Keys,
		Spec: spec,
		Alignment: AlignmentReport{
			MissingInOnlineCount:     diag.MissingInOnlineCount,
			MissingInOfflineCount:    diag.MissingInOfflineCount,
			MissingInOnlineExamples:  diag.MissingInOnlineKeys,
			MissingInOfflineExamples: diag.MissingInOfflineKeys,
		},
		PerFeature: features,
	}
}
