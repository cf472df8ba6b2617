package adapter

import (
	"context"

	"github.com/yourorg/skewsentry/internal/table"
)

// Adapter produces feature values for the rows of in. Implementations may
// call out to an in-process function, an HTTP feature service, or an online
// feature store; none of that is visible to the runner past this interface
// (spec.md §5, §9).
type Adapter interface {
	Produce(ctx context.Context, in table.Table) (table.Table, error)
}
