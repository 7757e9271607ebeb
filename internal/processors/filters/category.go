package filters

import (
	"strings"

	"trendcast/internal/types"
)

// CategoryFilter keeps articles whose category is in the allow list.
// Matching ignores case. An empty list keeps everything.
func CategoryFilter(name string, categories []string) *FilterProcessor {
	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[strings.ToLower(strings.TrimSpace(c))] = true
	}

	return NewFilterProcessor(name, func(article types.Article) bool {
		if len(allowed) == 0 {
			return true
		}
		return allowed[strings.ToLower(article.Category)]
	})
}
