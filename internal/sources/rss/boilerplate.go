package rss

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultBoilerplate matches the footers blog engines append to feed summaries.
var DefaultBoilerplate = []string{
	`(?is)\s*the post\s.+?\sappeared first on\s.+$`,
	`(?i)\s*(?:continue reading|read more)(?:\s*(?:\.{1,3}|…|→|»))?\s*$`,
	`\s*\[\s*(?:…|\.{3})\s*\]?\s*$`,
}

// Boilerplate removes footer text from plain-text summaries.
type Boilerplate struct {
	patterns []*regexp.Regexp
}

// NewBoilerplate compiles patterns. An empty list selects DefaultBoilerplate.
func NewBoilerplate(patterns []string) (*Boilerplate, error) {
	if len(patterns) == 0 {
		patterns = DefaultBoilerplate
	}

	b := &Boilerplate{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid boilerplate pattern %q: %w", p, err)
		}
		b.patterns = append(b.patterns, re)
	}

	return b, nil
}

func mustDefaultBoilerplate() *Boilerplate {
	b, err := NewBoilerplate(nil)
	if err != nil {
		panic(err)
	}
	return b
}

// Strip applies every pattern until the text stops changing. Footers are
// often stacked, e.g. a "[…]" marker followed by "The post … appeared first on".
func (b *Boilerplate) Strip(s string) string {
	if b == nil {
		return s
	}

	for range 4 {
		before := s
		for _, re := range b.patterns {
			s = strings.TrimSpace(re.ReplaceAllString(s, ""))
		}
		if s == before {
			break
		}
	}

	return s
}
