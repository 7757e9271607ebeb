package rss

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"trendcast/internal/types"
	"trendcast/internal/utils/hash"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const maxSummaryRunes = 500

type FetcherConfig struct {
	Timeout   time.Duration
	Workers   int
	MaxItems  int
	MaxAge    time.Duration
	UserAgent string
	Client    *http.Client
	// Boilerplate is stripped from summaries. Nil selects DefaultBoilerplate.
	Boilerplate *Boilerplate
}

// Fetcher retrieves a list of feeds once. Failed feeds are logged and skipped.
type Fetcher struct {
	config FetcherConfig
	logger *slog.Logger
	now    func() time.Time
}

// FetchResult holds the articles in source order, then native entry order.
type FetchResult struct {
	Articles []types.Article
	Failed   []*types.FetchError
	Fetched  int
}

func NewFetcher(config FetcherConfig, logger *slog.Logger) *Fetcher {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.MaxItems <= 0 {
		config.MaxItems = 30
	}
	if config.Client == nil {
		config.Client = &http.Client{}
	}
	if config.Boilerplate == nil {
		config.Boilerplate = mustDefaultBoilerplate()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

type feedSlot struct {
	articles []types.Article
	err      *types.FetchError
}

func (f *Fetcher) Fetch(ctx context.Context, sources []types.FeedSource) (*FetchResult, error) {
	f.logger.Info("Fetching feeds", "count", len(sources), "workers", f.config.Workers)

	slots := make([]feedSlot, len(sources))

	var g errgroup.Group
	g.SetLimit(f.config.Workers)

	for i, src := range sources {
		g.Go(func() error {
			articles, err := f.fetchFeed(ctx, src)
			if err != nil {
				slots[i].err = &types.FetchError{Source: src.Name, URL: src.URL, Err: err}
				return nil
			}
			slots[i].articles = articles
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &FetchResult{}
	for i, slot := range slots {
		if slot.err != nil {
			f.logger.Warn("Feed fetch failed, skipping", "source", sources[i].Name, "url", sources[i].URL, "error", slot.err.Err)
			result.Failed = append(result.Failed, slot.err)
			continue
		}

		f.logger.Debug("Feed fetched", "source", sources[i].Name, "articles", len(slot.articles))
		result.Fetched++
		result.Articles = append(result.Articles, slot.articles...)
	}

	f.logger.Info("Feeds fetched", "fetched", result.Fetched, "failed", len(result.Failed), "articles", len(result.Articles))

	if len(sources) > 0 && result.Fetched == 0 {
		return result, fmt.Errorf("%d feeds: %w", len(sources), types.ErrAllFeedsFailed)
	}

	return result, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, src types.FeedSource) ([]types.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	// gofeed parsers keep per-document state, so each feed gets its own.
	parser := gofeed.NewParser()
	parser.UserAgent = f.config.UserAgent
	parser.Client = f.config.Client

	feed, err := parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	now := f.now()
	limit := f.config.MaxItems
	if limit > len(feed.Items) {
		limit = len(feed.Items)
	}

	articles := make([]types.Article, 0, limit)
	for _, item := range feed.Items[:limit] {
		if item == nil {
			continue
		}

		article := convertToArticle(item, src, now, f.config.Boilerplate)
		if f.config.MaxAge > 0 && article.Published.Before(now.Add(-f.config.MaxAge)) {
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func convertToArticle(item *gofeed.Item, src types.FeedSource, now time.Time, boilerplate *Boilerplate) types.Article {
	published := now
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	summary := item.Description
	if summary == "" && item.Content != "" {
		summary = item.Content
	}

	title := collapseSpace(html.UnescapeString(item.Title))
	link := strings.TrimSpace(item.Link)

	id := hash.Of(link).Short()
	if link == "" {
		id = hash.Of(src.Name, title).Short()
	}

	return types.Article{
		ID:        id,
		Title:     title,
		Summary:   truncate(boilerplate.Strip(stripHTML(summary)), maxSummaryRunes),
		Source:    src.Name,
		Category:  src.Category,
		Link:      link,
		Published: published.UTC(),
	}
}

var htmlStripper = bluemonday.StrictPolicy()

func stripHTML(s string) string {
	s = htmlStripper.Sanitize(s)
	s = html.UnescapeString(s)
	return collapseSpace(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
