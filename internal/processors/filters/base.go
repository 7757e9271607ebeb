package filters

import (
	"trendcast/internal/types"
)

// Filter decides whether an article takes part in trend analysis.
type Filter interface {
	Name() string
	Keep(article types.Article) bool
}

type FilterFunc func(types.Article) bool

type FilterProcessor struct {
	name     string
	filterFn FilterFunc
}

func NewFilterProcessor(name string, filterFn FilterFunc) *FilterProcessor {
	return &FilterProcessor{
		name:     name,
		filterFn: filterFn,
	}
}

func (f *FilterProcessor) Name() string {
	return f.name
}

func (f *FilterProcessor) Keep(article types.Article) bool {
	if f.filterFn == nil {
		return true
	}
	return f.filterFn(article)
}

// Apply runs every filter in order and reports how many articles each one
// dropped. Article order is preserved.
func Apply(articles []types.Article, filters ...Filter) ([]types.Article, map[string]int) {
	dropped := make(map[string]int, len(filters))
	kept := make([]types.Article, 0, len(articles))

next:
	for _, article := range articles {
		for _, f := range filters {
			if !f.Keep(article) {
				dropped[f.Name()]++
				continue next
			}
		}
		kept = append(kept, article)
	}

	return kept, dropped
}
