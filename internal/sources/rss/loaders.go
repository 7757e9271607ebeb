package rss

import (
	"context"
	"fmt"

	"trendcast/internal/types"
)

type OPMLFileLoader struct{}

func (o *OPMLFileLoader) Load(ctx context.Context, path string, category string) ([]types.FeedSource, error) {
	data, err := LoadOPMLFile(path)
	if err != nil {
		return nil, err
	}

	return ParseOPML(data, category)
}

type OPMLURLLoader struct{}

func (o *OPMLURLLoader) Load(ctx context.Context, url string, category string) ([]types.FeedSource, error) {
	data, err := FetchOPML(ctx, url)
	if err != nil {
		return nil, err
	}

	return ParseOPML(data, category)
}

func init() {
	RegisterLoader("opml_file", &OPMLFileLoader{})
	RegisterLoader("opml_url", &OPMLURLLoader{})
}

// ExpandSources appends the feeds of every list, in list order, to the inline
// sources. A feed URL that appears more than once is kept only the first time.
func ExpandSources(ctx context.Context, inline []types.FeedSource, lists []FeedList) ([]types.FeedSource, error) {
	sources := make([]types.FeedSource, 0, len(inline))
	seen := make(map[string]bool, len(inline))

	add := func(src types.FeedSource) {
		if seen[src.URL] {
			return
		}
		seen[src.URL] = true
		sources = append(sources, src)
	}

	for _, src := range inline {
		add(src)
	}

	for _, list := range lists {
		loader, err := GetLoader(list.Kind)
		if err != nil {
			return nil, err
		}

		feeds, err := loader.Load(ctx, list.Value, list.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to load feed list %s: %w", list.Value, err)
		}

		for _, feed := range feeds {
			add(feed)
		}
	}

	return sources, nil
}
