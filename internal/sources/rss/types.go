package rss

import (
	"context"

	"trendcast/internal/types"
)

// FeedList is a reference to an external list of feeds, such as an OPML
// document. Category applies to feeds the list does not categorize itself.
type FeedList struct {
	Kind     string
	Value    string
	Category string
}

type SourceLoader interface {
	Load(ctx context.Context, value string, category string) ([]types.FeedSource, error)
}
