package adapter

import (
	"context"
	"fmt"

	"github.com/yourorg/skewsentry/internal/table"
)

// FeastClient is the minimal surface SkewSentry needs from a Feast (or
// Feast-shaped) online feature store client. Ported from the original
// tool's FeastAdapter, which accepted any object exposing
// get_online_features(features, entity_rows, project); Go asks for an
// explicit interface instead of duck typing.
type FeastClient interface {
	GetOnlineFeatures(ctx context.Context, features []string, entityRows []map[string]any, project string) (any, error)
}

// ToTable is implemented by Feast response types that can render themselves
// directly as a table.Table (the Go analogue of the original's
// `resp.to_df()`).
type ToTable interface {
	ToTable() (table.Table, error)
}

type feastAdapter struct {
	client      FeastClient
	featureRefs []string
	entityKeys  []string
	project     string
}

// NewFeast builds an Adapter around a Feast-shaped client. entityKeys are the
// table.Table columns sent as entity rows; featureRefs are passed through to
// the client unmodified ("<feature_view>:<feature>" strings, typically).
func NewFeast(client FeastClient, featureRefs, entityKeys []string, project string) Adapter {
	return &feastAdapter{client: client, featureRefs: featureRefs, entityKeys: entityKeys, project: project}
}

func (a *feastAdapter) Produce(ctx context.Context, in table.Table) (table.Table, error) {
	if !in.HasColumns(a.entityKeys) {
		return table.Table{}, newError(KindConfig, nil, "input table is missing entity key column(s) %v", a.entityKeys)
	}

	if in.Rows == 0 {
		return in.Select(a.entityKeys)
	}

	entityRows := make([]map[string]any, in.Rows)
	for i := 0; i < in.Rows; i++ {
		row := make(map[string]any, len(a.entityKeys))
		for _, k := range a.entityKeys {
			col, _ := in.Col(k)
			row[k] = col.Value(i)
		}
		entityRows[i] = row
	}

	resp, err := a.client.GetOnlineFeatures(ctx, a.featureRefs, entityRows, a.project)
	if err != nil {
		if ClassifyTransportError(err) {
			return table.Table{}, newError(KindTransport, err, "feast client call")
		}
		return table.Table{}, newError(KindProtocol, err, "feast client call")
	}

	out, err := normalizeFeastResponse(resp)
	if err != nil {
		return table.Table{}, err
	}

	if !out.HasColumns(a.entityKeys) {
		entityTable, err := in.Select(a.entityKeys)
		if err != nil {
			return table.Table{}, newError(KindReturnShape, err, "re-attaching entity keys omitted by feast response")
		}
		merged, err := mergeColumns(entityTable, out)
		if err != nil {
			return table.Table{}, newError(KindReturnShape, err, "merging entity keys into feast response")
		}
		return merged, nil
	}
	return out, nil
}

// normalizeFeastResponse accepts the three response shapes the original
// FeastAdapter supported: a value with a ToTable() method, a []table.Row,
// or a map[string]any of column name to slice of values.
func normalizeFeastResponse(resp any) (table.Table, error) {
	switch v := resp.(type) {
	case ToTable:
		out, err := v.ToTable()
		if err != nil {
			return table.Table{}, newError(KindReturnShape, err, "ToTable() failed")
		}
		return out, nil
	case []table.Row:
		header := rowSetHeader(v)
		return table.FromOrderedRows(header, v)
	case map[string]any:
		return columnsMapToTable(v)
	default:
		return table.Table{}, newError(KindReturnShape, nil, "unsupported feast response type %T", resp)
	}
}

func rowSetHeader(rows []table.Row) []string {
	seen := map[string]bool{}
	var header []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}
	return header
}

func columnsMapToTable(cols map[string]any) (table.Table, error) {
	var header []string
	colsBySize := map[string][]any{}
	n := -1
	for name, raw := range cols {
		vals, ok := raw.([]any)
		if !ok {
			return table.Table{}, fmt.Errorf("column %q is not a slice of values", name)
		}
		if n == -1 {
			n = len(vals)
		} else if len(vals) != n {
			return table.Table{}, fmt.Errorf("column %q has %d values, expected %d", name, len(vals), n)
		}
		header = append(header, name)
		colsBySize[name] = vals
	}
	if n < 0 {
		n = 0
	}

	rows := make([]table.Row, n)
	for i := 0; i < n; i++ {
		row := make(table.Row, len(header))
		for _, name := range header {
			row[name] = colsBySize[name][i]
		}
		rows[i] = row
	}
	return table.FromOrderedRows(header, rows)
}

func mergeColumns(left, right table.Table) (table.Table, error) {
	if left.Rows != right.Rows {
		return table.Table{}, fmt.Errorf("row count mismatch: %d vs %d", left.Rows, right.Rows)
	}
	out := table.Table{Rows: left.Rows}
	out.Columns = append(out.Columns, left.Columns...)
	out.Columns = append(out.Columns, right.Columns...)
	return out, nil
}
