package geoshard

import (
	"github.com/geoshard/geoshard/geom"
	"github.com/geoshard/geoshard/metadata"
)

// SearchOptions refines a search operation.
type SearchOptions struct {
	// Text restricts spatial searches to documents matching the text query,
	// in the whitespace-separated field:term syntax. Empty or "*:*" matches
	// every document.
	Text string

	// Predicate is the spatial relation region searches evaluate between
	// the query region and each document geometry. Defaults to Intersects.
	// Ignored by nearest-neighbor and text searches.
	Predicate geom.Predicate

	// Fields post-filters hits against the documents' indexed metadata.
	// Applied after the global top-k merge, so a restrictive filter can
	// return fewer than k hits.
	Fields metadata.FilterSet
}

// WithText restricts the search to documents matching the text query.
func WithText(query string) func(*SearchOptions) {
	return func(o *SearchOptions) {
		o.Text = query
	}
}

// WithPredicate selects the spatial relation for region searches.
func WithPredicate(p geom.Predicate) func(*SearchOptions) {
	return func(o *SearchOptions) {
		o.Predicate = p
	}
}

// WithFields post-filters hits against their metadata documents.
func WithFields(fs metadata.FilterSet) func(*SearchOptions) {
	return func(o *SearchOptions) {
		o.Fields = fs
	}
}

func applySearchOptions(optFns []func(*SearchOptions)) SearchOptions {
	opts := SearchOptions{
		Predicate: geom.Intersects,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	return opts
}
