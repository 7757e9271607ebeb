package analyzer

import (
	"net/url"
	"strings"
	"unicode"

	"trendcast/internal/types"
)

// DefaultSimilarity is the title overlap above which two articles are the
// same story syndicated under slightly different headlines.
const DefaultSimilarity = 0.6

// Dedupe drops articles whose link or title was already seen, and articles
// whose title token set overlaps a kept title by more than similarity. A
// similarity of 1 or more disables the near-duplicate check. The first
// occurrence wins, so the result keeps input order.
func Dedupe(articles []types.Article, similarity float64) []types.Article {
	seenLinks := make(map[string]bool, len(articles))
	seenTitles := make(map[string]bool, len(articles))
	keptTokens := make([]map[string]bool, 0, len(articles))
	result := make([]types.Article, 0, len(articles))

	for _, a := range articles {
		link := normalizeLink(a.Link)
		title := normalizeTitle(a.Title)

		if link != "" && seenLinks[link] {
			continue
		}
		if title != "" && seenTitles[title] {
			continue
		}

		tokens := tokenSet(title)
		if similarity < 1 && nearDuplicate(tokens, keptTokens, similarity) {
			continue
		}

		if link != "" {
			seenLinks[link] = true
		}
		if title != "" {
			seenTitles[title] = true
		}
		keptTokens = append(keptTokens, tokens)
		result = append(result, a)
	}

	return result
}

func nearDuplicate(tokens map[string]bool, kept []map[string]bool, similarity float64) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, other := range kept {
		if jaccard(tokens, other) > similarity {
			return true
		}
	}
	return false
}

func tokenSet(title string) map[string]bool {
	fields := strings.Fields(title)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if b[t] {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

func normalizeLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")

	query := u.Query()
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			query.Del(key)
		}
	}
	u.RawQuery = query.Encode()

	return u.String()
}

func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
