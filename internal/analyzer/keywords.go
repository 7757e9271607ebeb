package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/registry"
)

const keywordAnalyzerName = "trend_keywords"

// Shorter terms are dropped unless they are known acronyms such as "ai".
const minKeywordRunes = 3

// headlineStopwords are words that are common in news headlines but say
// nothing about the topic.
var headlineStopwords = []string{
	"new", "news", "says", "said", "say", "how", "why", "what", "who", "when",
	"now", "just", "get", "gets", "got", "can", "could", "will", "would",
	"one", "two", "also", "year", "years", "today", "week", "day", "days",
	"first", "last", "more", "most", "may", "might", "make", "makes", "made",
	"here", "there", "report", "reports", "update", "updates", "via", "use",
	"using", "used", "want", "wants", "like", "still", "amp", "nbsp", "read",
	"inc", "ltd", "it's", "its", "vs",
}

// KeywordExtractor turns text into a set of significant lowercase keywords.
type KeywordExtractor struct {
	analyzer analysis.Analyzer
	stop     map[string]bool
}

func NewKeywordExtractor(extraStopwords []string) (*KeywordExtractor, error) {
	cache := registry.NewCache()
	a, err := cache.DefineAnalyzer(keywordAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicodetokenizer.Name,
		"token_filters": []interface{}{
			lowercase.Name,
			en.PossessiveName,
			en.StopName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build keyword analyzer: %w", err)
	}

	stop := make(map[string]bool, len(headlineStopwords)+len(extraStopwords))
	for _, w := range headlineStopwords {
		stop[w] = true
	}
	for _, w := range extraStopwords {
		stop[strings.ToLower(strings.TrimSpace(w))] = true
	}

	return &KeywordExtractor{analyzer: a, stop: stop}, nil
}

// Keywords returns the sorted, de-duplicated keywords of text.
func (k *KeywordExtractor) Keywords(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokenStream := k.analyzer.Analyze([]byte(text))

	set := make(map[string]struct{}, len(tokenStream))
	for _, token := range tokenStream {
		term := string(token.Term)
		if !k.significant(term) {
			continue
		}
		set[term] = struct{}{}
	}

	keywords := make([]string, 0, len(set))
	for term := range set {
		keywords = append(keywords, term)
	}
	sort.Strings(keywords)
	return keywords
}

func (k *KeywordExtractor) significant(term string) bool {
	if utf8.RuneCountInString(term) < minKeywordRunes && !acronyms[term] {
		return false
	}
	if k.stop[term] {
		return false
	}
	return strings.ContainsFunc(term, unicode.IsLetter)
}
