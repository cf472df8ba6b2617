package inputs

import (
	"fmt"
	"math/rand"

	"github.com/yourorg/skewsentry/internal/table"
)

// Sample deterministically draws n rows from t using seed, per spec.md §5:
// sample=0 is rejected, sample>=t.Rows is a passthrough, and the same
// (n, seed) pair always selects the same rows.
func Sample(t table.Table, n int, seed int64) (table.Table, error) {
	if n <= 0 {
		return table.Table{}, fmt.Errorf("inputs: sample size must be positive, got %d", n)
	}
	if n >= t.Rows {
		return t, nil
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(t.Rows)
	indices := perm[:n]

	return t.Gather(indices), nil
}
