// Package facets computes the available_filters block for catalog list
// responses. Counts follow standard faceted-search semantics: each facet is
// counted under every active filter EXCEPT the one the facet describes, so
// the numbers tell the user what selecting that value would yield instead of
// collapsing to the size of the current result set.
package facets

import "context"

// Filters is the active AND-composed filter set, keyed by dimension name
// (e.g. "category" -> "cardiovascular"). Values are the raw normalized
// filter values; absent keys mean the dimension is unfiltered.
type Filters map[string]string

// Clone returns a copy of the filter set.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Without returns a copy of the filter set with one dimension removed.
func (f Filters) Without(dimension string) Filters {
	out := f.Clone()
	delete(out, dimension)
	return out
}

// Count is one facet value with the number of results selecting it would
// produce under the other active filters.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Counter answers "how many items match these filters, grouped by this
// dimension". Repositories implement it with a GROUP BY query.
type Counter interface {
	CountBy(ctx context.Context, dimension string, filters Filters) ([]Count, error)
}

// Compute builds the available_filters block for the given dimensions.
// Each dimension is counted with its own filter removed.
func Compute(ctx context.Context, counter Counter, filters Filters, dimensions []string) (map[string][]Count, error) {
	out := make(map[string][]Count, len(dimensions))
	for _, dim := range dimensions {
		counts, err := counter.CountBy(ctx, dim, filters.Without(dim))
		if err != nil {
			return nil, err
		}
		out[dim] = counts
	}
	return out, nil
}
