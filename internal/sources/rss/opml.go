package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"trendcast/internal/types"
)

type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Body    OPMLBody `xml:"body"`
}

type OPMLBody struct {
	Outlines []OPMLOutline `xml:"outline"`
}

type OPMLOutline struct {
	Title    string        `xml:"title,attr"`
	Text     string        `xml:"text,attr"`
	Type     string        `xml:"type,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	Category string        `xml:"category,attr"`
	Outlines []OPMLOutline `xml:"outline"`
}

// ParseOPML returns the feeds of an OPML document in document order. A feed
// takes its category from its own category attribute, then from the folder
// outline that contains it, then from fallbackCategory.
func ParseOPML(data []byte, fallbackCategory string) ([]types.FeedSource, error) {
	var opml OPML
	if err := xml.Unmarshal(data, &opml); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}

	var feeds []types.FeedSource
	extractFeeds(&feeds, opml.Body.Outlines, fallbackCategory)

	return feeds, nil
}

func extractFeeds(result *[]types.FeedSource, outlines []OPMLOutline, category string) {
	for _, outline := range outlines {
		if outline.XMLURL != "" {
			name := strings.TrimSpace(outline.Title)
			if name == "" {
				name = strings.TrimSpace(outline.Text)
			}
			if name == "" {
				name = outline.XMLURL
			}

			feedCategory := category
			if outline.Category != "" {
				feedCategory = outline.Category
			}

			*result = append(*result, types.FeedSource{
				URL:      outline.XMLURL,
				Name:     name,
				Category: feedCategory,
			})
		}

		if len(outline.Outlines) > 0 {
			folder := category
			if outline.XMLURL == "" {
				if label := folderLabel(outline); label != "" {
					folder = label
				}
			}
			extractFeeds(result, outline.Outlines, folder)
		}
	}
}

func folderLabel(outline OPMLOutline) string {
	if t := strings.TrimSpace(outline.Text); t != "" {
		return t
	}
	return strings.TrimSpace(outline.Title)
}

func LoadOPMLFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPML file: %w", err)
	}
	return data, nil
}

func FetchOPML(ctx context.Context, url string) ([]byte, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build OPML request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OPML: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch OPML: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPML response: %w", err)
	}

	return data, nil
}
