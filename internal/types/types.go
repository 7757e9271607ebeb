package types

import (
	"time"
)

// FeedSource is one configured RSS or Atom feed.
type FeedSource struct {
	URL      string
	Name     string
	Category string
}

// Article is a normalized feed entry. Articles only live for one run.
type Article struct {
	ID        string
	Title     string
	Summary   string
	Source    string
	Category  string
	Link      string
	Published time.Time
}

// Trend is a cluster of articles that share keywords.
type Trend struct {
	Label    string
	Keywords []string
	Articles []Article
	Score    int
	Latest   time.Time
	Category string
}

// Sources returns the distinct source names of the trend's articles in
// member order.
func (t Trend) Sources() []string {
	seen := make(map[string]bool, len(t.Articles))
	sources := make([]string, 0, len(t.Articles))
	for _, a := range t.Articles {
		if a.Source == "" || seen[a.Source] {
			continue
		}
		seen[a.Source] = true
		sources = append(sources, a.Source)
	}
	return sources
}

// Slide is one rendered carousel image. Index 0 is the cover.
type Slide struct {
	Index  int
	Name   string
	Data   []byte
	Alt    string
	Width  int
	Height int
}

type PublishResult struct {
	Success   bool
	Target    string
	URI       string
	CID       string
	Images    int
	Timestamp time.Time
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	DryRun      bool
	FeedsTotal  int
	FeedsFailed int
	Articles    int
	Trends      int
	Labels      []string
	Slides      int
	Posted      bool
	PostURI     string
	Err         error
}

func (r *RunResult) Succeeded() bool {
	return r.Err == nil
}

func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
