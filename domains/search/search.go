package search

import "context"

// Result is a single web/news search hit used as verification context.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// ISearchUsecase supplies web context for a claim. Implementations must
// degrade to an empty slice on failure; search is never fatal to
// verification.
type ISearchUsecase interface {
	Search(ctx context.Context, query string) ([]Result, error)
}
