package analyzer

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"trendcast/internal/types"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	labelKeywords = 2
	trendKeywords = 5
)

// acronyms are rendered upper case in labels instead of title case.
var acronyms = map[string]bool{
	"ai": true, "ml": true, "llm": true, "llms": true, "gpu": true, "gpus": true,
	"cpu": true, "cpus": true, "api": true, "apis": true, "os": true, "ios": true,
	"vr": true, "ar": true, "eu": true, "us": true, "uk": true, "ev": true,
	"evs": true, "5g": true, "6g": true, "sdk": true, "ceo": true, "ftc": true,
	"sec": true, "nasa": true, "aws": true, "ibm": true, "amd": true,
}

type Config struct {
	MaxTrends   int
	Threshold   float64
	MinArticles int
	// DedupeSimilarity is the title overlap above which articles are
	// near-duplicates. Zero selects DefaultSimilarity.
	DedupeSimilarity float64
	ExtraStopwords   []string
}

// Analyzer clusters articles into ranked trends. For a fixed configuration
// the output depends only on the input articles.
type Analyzer struct {
	config    Config
	extractor *KeywordExtractor
	logger    *slog.Logger
}

func New(config Config, logger *slog.Logger) (*Analyzer, error) {
	if config.MaxTrends <= 0 {
		config.MaxTrends = 3
	}
	if config.MinArticles <= 0 {
		config.MinArticles = 2
	}
	if config.DedupeSimilarity <= 0 {
		config.DedupeSimilarity = DefaultSimilarity
	}
	if logger == nil {
		logger = slog.Default()
	}

	extractor, err := NewKeywordExtractor(config.ExtraStopwords)
	if err != nil {
		return nil, &types.AnalysisError{Reason: "keyword extractor", Err: err}
	}

	return &Analyzer{
		config:    config,
		extractor: extractor,
		logger:    logger,
	}, nil
}

// Analyze returns at most MaxTrends trends, highest score first. An empty
// article set yields an empty, non-nil trend list.
func (a *Analyzer) Analyze(articles []types.Article) ([]types.Trend, error) {
	unique := Dedupe(articles, a.config.DedupeSimilarity)
	a.logger.Debug("Articles deduplicated", "input", len(articles), "unique", len(unique))

	if len(unique) == 0 {
		return []types.Trend{}, nil
	}

	keywords := make([][]string, len(unique))
	for i, article := range unique {
		keywords[i] = a.extractor.Keywords(article.Title + " " + article.Summary)
	}

	groups := cluster(keywords, a.config.Threshold)

	caser := cases.Title(language.English)
	trends := make([]types.Trend, 0, len(groups))
	for _, members := range groups {
		if len(members) < a.config.MinArticles {
			continue
		}
		trends = append(trends, buildTrend(unique, keywords, members, caser))
	}

	sort.SliceStable(trends, func(i, j int) bool {
		return trendLess(trends[i], trends[j])
	})

	qualifying := len(trends)
	if len(trends) > a.config.MaxTrends {
		trends = trends[:a.config.MaxTrends]
	}

	a.logger.Info("Trends analyzed",
		"articles", len(unique),
		"clusters", len(groups),
		"qualifying", qualifying,
		"selected", len(trends))

	return trends, nil
}

func trendLess(a, b types.Trend) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Latest.Equal(b.Latest) {
		return a.Latest.After(b.Latest)
	}
	if a.Label != b.Label {
		return a.Label < b.Label
	}
	return a.Articles[0].ID < b.Articles[0].ID
}

func buildTrend(articles []types.Article, keywords [][]string, members []int, caser cases.Caser) types.Trend {
	top := topKeywords(keywords, members, trendKeywords)

	topSet := make(map[string]bool, len(top))
	for _, kw := range top {
		topSet[kw] = true
	}

	relevance := make(map[int]int, len(members))
	for _, m := range members {
		for _, kw := range keywords[m] {
			if topSet[kw] {
				relevance[m]++
			}
		}
	}

	ordered := append([]int(nil), members...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ai, aj := articles[ordered[i]], articles[ordered[j]]
		if relevance[ordered[i]] != relevance[ordered[j]] {
			return relevance[ordered[i]] > relevance[ordered[j]]
		}
		if !ai.Published.Equal(aj.Published) {
			return ai.Published.After(aj.Published)
		}
		if ai.Title != aj.Title {
			return ai.Title < aj.Title
		}
		return ai.Link < aj.Link
	})

	trend := types.Trend{
		Keywords: top,
		Articles: make([]types.Article, 0, len(ordered)),
		Score:    len(ordered),
	}

	var latest time.Time
	categories := make(map[string]int)
	for _, m := range ordered {
		article := articles[m]
		trend.Articles = append(trend.Articles, article)
		if article.Published.After(latest) {
			latest = article.Published
		}
		if article.Category != "" {
			categories[article.Category]++
		}
	}

	trend.Latest = latest
	trend.Category = mostFrequent(categories)
	trend.Label = label(top, caser)

	return trend
}

// topKeywords ranks keywords by how many members carry them, then
// alphabetically. In multi-article trends only keywords shared by at least
// two members are eligible.
func topKeywords(keywords [][]string, members []int, limit int) []string {
	freq := make(map[string]int)
	for _, m := range members {
		for _, kw := range keywords[m] {
			freq[kw]++
		}
	}

	minFreq := 1
	if len(members) > 1 {
		minFreq = 2
	}

	ranked := make([]string, 0, len(freq))
	for kw, n := range freq {
		if n >= minFreq {
			ranked = append(ranked, kw)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if freq[ranked[i]] != freq[ranked[j]] {
			return freq[ranked[i]] > freq[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func label(keywords []string, caser cases.Caser) string {
	n := labelKeywords
	if len(keywords) < n {
		n = len(keywords)
	}

	parts := make([]string, 0, n)
	for _, kw := range keywords[:n] {
		if acronyms[kw] {
			parts = append(parts, strings.ToUpper(kw))
			continue
		}
		parts = append(parts, caser.String(kw))
	}

	if len(parts) == 0 {
		return "Trending"
	}
	return strings.Join(parts, " & ")
}

func mostFrequent(counts map[string]int) string {
	best := ""
	bestCount := 0
	for value, n := range counts {
		if n > bestCount || (n == bestCount && value < best) {
			best = value
			bestCount = n
		}
	}
	return best
}
