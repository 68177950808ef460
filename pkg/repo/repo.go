// Package repo defines read-only repository helpers shared by record sources.
package repo

import "context"

// Lister reads every entity a query yields, in result order.
type Lister[T any] interface {
	List(ctx context.Context, params map[string]any) ([]T, error)
}
