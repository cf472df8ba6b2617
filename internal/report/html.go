package report

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/yourorg/skewsentry/internal/runner"
)

const htmlTemplateSrc = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>SkewSentry Report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.ok { color: green; }
.fail { color: #b00020; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
pre { background: #f6f6f6; padding: 0.5em; overflow-x: auto; }
</style>
</head>
<body>
<h1>SkewSentry Report</h1>
<p>Overall: <span class="{{if .OK}}ok{{else}}fail{{end}}">{{if .OK}}OK{{else}}FAIL{{end}}</span></p>
{{if .JSONHref}}<p><a href="{{.JSONHref}}">raw JSON</a></p>{{end}}
<p>Keys: {{.KeysJoined}}</p>

<h2>Per-feature</h2>
<table>
<tr><th>Feature</th><th>Mismatch rate</th><th>Rows compared</th><th>Mean abs diff</th><th>Unknown categories</th></tr>
{{range .Features}}
<tr>
<td>{{.Name}}</td>
<td>{{if .Missing}}MISSING{{else}}{{printf "%.4f" .MismatchRate}}{{end}}</td>
<td>{{.NumRowsCompared}}</td>
<td>{{if .HasMeanAbsDiff}}{{printf "%.6f" .MeanAbsDiff}}{{else}}-{{end}}</td>
<td>{{if .HasUnknownCategories}}offline: {{.OfflineUnknown}}, online: {{.OnlineUnknown}}{{else}}-{{end}}</td>
</tr>
{{if .MaskDiff}}<tr><td colspan="5"><pre>{{.MaskDiff}}</pre></td></tr>{{end}}
{{end}}
</table>

<h2>Alignment</h2>
<p>missing_in_online_count: {{.Alignment.MissingInOnlineCount}}</p>
<p>missing_in_offline_count: {{.Alignment.MissingInOfflineCount}}</p>

</body>
</html>
`

var htmlTemplate = template.Must(template.New("report").Parse(htmlTemplateSrc))

type htmlFeature struct {
	Name                 string
	Missing              bool
	MismatchRate         float64
	NumRowsCompared      int
	HasMeanAbsDiff       bool
	MeanAbsDiff          float64
	HasUnknownCategories bool
	OfflineUnknown       []string
	OnlineUnknown        []string
	MaskDiff             string
}

type htmlData struct {
	OK         bool
	KeysJoined string
	JSONHref   string
	Features   []htmlFeature
	Alignment  runner.AlignmentReport
}

// HTML renders the report as a self-contained HTML document. jsonHref, if
// non-empty, is linked as the raw JSON sibling (spec.md §6 treats JSON/HTML
// as independent collaborator outputs of the same report).
func HTML(r *runner.ComparisonReport, jsonHref string) (string, error) {
	data := htmlData{
		OK:         r.OK,
		KeysJoined: strings.Join(r.Keys, ", "),
		JSONHref:   jsonHref,
		Alignment:  r.Alignment,
	}

	for _, f := range r.PerFeature {
		hf := htmlFeature{
			Name:            f.FeatureName,
			Missing:         f.Missing,
			MismatchRate:    f.MismatchRate,
			NumRowsCompared: f.NumRowsCompared,
		}
		if f.MeanAbsoluteDifference != nil {
			hf.HasMeanAbsDiff = true
			hf.MeanAbsDiff = *f.MeanAbsoluteDifference
		}
		if f.UnknownCategories != nil && (len(f.UnknownCategories.OfflineUnknown) > 0 || len(f.UnknownCategories.OnlineUnknown) > 0) {
			hf.HasUnknownCategories = true
			hf.OfflineUnknown = f.UnknownCategories.OfflineUnknown
			hf.OnlineUnknown = f.UnknownCategories.OnlineUnknown
		}
		if diff, err := maskDiff(f.FeatureName, f.MismatchMask); err == nil {
			hf.MaskDiff = diff
		}
		data.Features = append(data.Features, hf)
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// maskDiff renders a unified diff between an all-matching baseline and the
// feature's actual per-row mismatch mask, so a reviewer can see at a glance
// which rows disagree without scanning a raw boolean array. Grounded on the
// teacher's diff package, which wraps go-difflib the same way for textual
// unified diffs; here the "before" and "after" texts are row-per-line
// match/mismatch markers instead of document text.
func maskDiff(feature string, mask []bool) (string, error) {
	if len(mask) == 0 || !anyTrue(mask) {
		return "", nil
	}
	before := make([]string, len(mask))
	after := make([]string, len(mask))
	for i, mismatch := range mask {
		before[i] = "match"
		if mismatch {
			after[i] = "mismatch"
		} else {
			after[i] = "match"
		}
	}
	ud := difflib.UnifiedDiff{
		A:        before,
		B:        after,
		FromFile: feature + " (expected)",
		ToFile:   feature + " (actual)",
		Context:  0,
	}
	return difflib.GetUnifiedDiffString(ud)
}

func anyTrue(mask []bool) bool {
	for _, m := range mask {
		if m {
			return true
		}
	}
	return false
}
