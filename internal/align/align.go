// Package align implements the key-based inner join between an offline and
// an online feature table (spec.md §4.3): the step that turns two
// independently produced tables into a pair of positionally aligned tables
// the comparator can iterate over column by column.
package align

import (
	"fmt"

	"github.com/yourorg/skewsentry/internal/table"
)

const maxExampleKeys = 10

// Error reports a fatal alignment precondition violation: duplicate key
// tuples on one side, or a missing key column. Both are unrecoverable —
// spec.md §4.3 requires these to be hard errors rather than silently
// producing a Cartesian join.
type Error struct {
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("align: %s", e.Message) }

// Diagnostics reports, as sets, the key tuples present on only one side of
// the join, capped at maxExampleKeys example rows each (spec.md §4.3).
type Diagnostics struct {
	MissingInOnlineCount  int
	MissingInOfflineCount int
	MissingInOnlineKeys   []table.Row
	MissingInOfflineKeys  []table.Row
}

// Align inner-joins offline and online on keys, returning both sides
// re-ordered into the same canonical ascending key order, plus diagnostics
// describing what didn't join.
func Align(offline, online table.Table, keys []string) (table.Table, table.Table, Diagnostics, error) {
	if !offline.HasColumns(keys) {
		return table.Table{}, table.Table{}, Diagnostics{}, &Error{Message: fmt.Sprintf("offline table is missing key column(s) %v", keys)}
	}
	if !online.HasColumns(keys) {
		return table.Table{}, table.Table{}, Diagnostics{}, &Error{Message: fmt.Sprintf("online table is missing key column(s) %v", keys)}
	}

	offIndex, err := keyIndex(offline, keys, "offline")
	if err != nil {
		return table.Table{}, table.Table{}, Diagnostics{}, err
	}
	onIndex, err := keyIndex(online, keys, "online")
	if err != nil {
		return table.Table{}, table.Table{}, Diagnostics{}, err
	}

	var sharedKeyTuples []string
	for k := range offIndex {
		if _, ok := onIndex[k]; ok {
			sharedKeyTuples = append(sharedKeyTuples, k)
		}
	}

	order, err := offline.Gather(valuesOf(offIndex, sharedKeyTuples)).SortedRowOrder(keys)
	if err != nil {
		return table.Table{}, table.Table{}, Diagnostics{}, err
	}
	sharedOffRows := valuesOf(offIndex, sharedKeyTuples)
	sharedOnRows := make([]int, len(sharedKeyTuples))
	for i, k := range sharedKeyTuples {
		sharedOnRows[i] = onIndex[k]
	}

	// order indexes into sharedOffRows/sharedOnRows (both keyed the same way,
	// position-for-position, since sharedKeyTuples drives both slices).
	offlineAligned := offline.Gather(reindex(sharedOffRows, order))
	onlineAligned := online.Gather(reindex(sharedOnRows, order))

	diag := Diagnostics{}
	for k, ri := range offIndex {
		if _, ok := onIndex[k]; !ok {
			diag.MissingInOnlineCount++
			if len(diag.MissingInOnlineKeys) < maxExampleKeys {
				diag.MissingInOnlineKeys = append(diag.MissingInOnlineKeys, offline.RowAt(ri))
			}
		}
	}
	for k, ri := range onIndex {
		if _, ok := offIndex[k]; !ok {
			diag.MissingInOfflineCount++
			if len(diag.MissingInOfflineKeys) < maxExampleKeys {
				diag.MissingInOfflineKeys = append(diag.MissingInOfflineKeys, online.RowAt(ri))
			}
		}
	}

	return offlineAligned, onlineAligned, diag, nil
}

func keyIndex(t table.Table, keys []string, side string) (map[string]int, error) {
	idx := make(map[string]int, t.Rows)
	for i := 0; i < t.Rows; i++ {
		k, err := t.KeyTuple(i, keys)
		if err != nil {
			return nil, &Error{Message: err.Error()}
		}
		if _, dup := idx[k]; dup {
			return nil, &Error{Message: fmt.Sprintf("duplicate key tuple in %s table: %s", side, k)}
		}
		idx[k] = i
	}
	return idx, nil
}

func valuesOf(idx map[string]int, keyTuples []string) []int {
	out := make([]int, len(keyTuples))
	for i, k := range keyTuples {
		out[i] = idx[k]
	}
	return out
}

func reindex(rows []int, order []int) []int {
	out := make([]int, len(order))
	for i, o := range order {
		out[i] = rows[o]
	}
	return out
}
