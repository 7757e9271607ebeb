package filters

import (
	"slices"
	"strings"

	"trendcast/internal/types"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	ModeInclude = "include"
	ModeExclude = "exclude"
)

var analyzer analysis.Analyzer

func init() {
	cache := registry.NewCache()
	var err error
	analyzer, err = en.AnalyzerConstructor(nil, cache)
	if err != nil {
		panic(err)
	}
}

// KeywordFilter matches stemmed keywords against an article's title and
// summary. Include keeps only matching articles, exclude drops them.
func KeywordFilter(name string, keywords []string, mode string) *FilterProcessor {
	stemmedKeywords := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		tokens := analyzeText(strings.ToLower(kw))
		stemmedKeywords = append(stemmedKeywords, tokens...)
	}

	return NewFilterProcessor(name, func(article types.Article) bool {
		if len(stemmedKeywords) == 0 {
			return true
		}

		tokens := analyzeText(article.Title + " " + article.Summary)

		matches := false
		for _, token := range tokens {
			if slices.Contains(stemmedKeywords, token) {
				matches = true
				break
			}
		}

		switch mode {
		case ModeInclude:
			return matches
		case ModeExclude:
			return !matches
		default:
			return true
		}
	})
}

func analyzeText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokenStream := analyzer.Analyze([]byte(text))

	tokens := make([]string, 0, len(tokenStream))
	for _, token := range tokenStream {
		tokens = append(tokens, string(token.Term))
	}

	return tokens
}
