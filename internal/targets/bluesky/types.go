package bluesky

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"trendcast/internal"
	"trendcast/internal/types"

	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
)

// MaxImages is the most images one app.bsky.embed.images embed may carry.
const MaxImages = 4

// MaxPostRunes approximates the 300 grapheme post limit.
const MaxPostRunes = 300

type Post struct {
	Segments []Segment
}

var _ internal.Into[RichText] = (*Post)(nil)

// Segment is a run of post text. A segment with a URI becomes a link facet,
// one with a Tag becomes a hashtag facet.
type Segment struct {
	Text string
	URI  string
	Tag  string
}

type RichText struct {
	Text   string
	Facets []*bsky.RichtextFacet
}

func (p *Post) Len() int {
	n := 0
	for _, seg := range p.Segments {
		n += utf8.RuneCountInString(seg.Text)
	}
	return n
}

// Caption builds the carousel post text: a headline, the numbered trend
// labels, the contributing sources and hashtags. The sources line and
// hashtags are dropped when they would push the post over the limit; an
// oversized body is truncated.
func Caption(brand, date string, trends []types.Trend, baseTags []string) Post {
	var body strings.Builder
	fmt.Fprintf(&body, "%s · %s", brand, date)
	if len(trends) == 0 {
		body.WriteString("\nNo trends today.")
	}
	for i, trend := range trends {
		fmt.Fprintf(&body, "\n%d. %s", i+1, trend.Label)
	}

	text := body.String()
	if utf8.RuneCountInString(text) > MaxPostRunes {
		runes := []rune(text)
		text = string(runes[:MaxPostRunes-1]) + "…"
	}

	if sources := Sources(trends); len(sources) > 0 {
		line := "\nSources: " + strings.Join(sources, ", ")
		if utf8.RuneCountInString(text)+utf8.RuneCountInString(line) <= MaxPostRunes {
			text += line
		}
	}

	post := Post{Segments: []Segment{{Text: text}}}

	tags := Hashtags(trends, baseTags)
	for i, tag := range tags {
		sep := " "
		if i == 0 {
			sep = "\n\n"
		}
		cost := utf8.RuneCountInString(sep) + 1 + utf8.RuneCountInString(tag)
		if post.Len()+cost > MaxPostRunes {
			break
		}
		post.Segments = append(post.Segments,
			Segment{Text: sep},
			Segment{Text: "#" + tag, Tag: tag},
		)
	}

	return post
}

// Sources returns the distinct article sources of all trends, in trend order.
func Sources(trends []types.Trend) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, trend := range trends {
		for _, source := range trend.Sources() {
			if seen[source] {
				continue
			}
			seen[source] = true
			sources = append(sources, source)
		}
	}
	return sources
}

// Hashtags returns the configured tags followed by one tag per trend label
// keyword, normalized and de-duplicated.
func Hashtags(trends []types.Trend, baseTags []string) []string {
	seen := make(map[string]bool)
	var tags []string

	add := func(raw string) {
		tag := normalizeTag(raw)
		if tag == "" || seen[strings.ToLower(tag)] {
			return
		}
		seen[strings.ToLower(tag)] = true
		tags = append(tags, tag)
	}

	for _, tag := range baseTags {
		add(tag)
	}
	for _, trend := range trends {
		n := len(trend.Keywords)
		if n > 2 {
			n = 2
		}
		for _, kw := range trend.Keywords[:n] {
			add(kw)
		}
	}

	return tags
}

func normalizeTag(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	tag := b.String()
	if !strings.ContainsFunc(tag, unicode.IsLetter) {
		return ""
	}
	return tag
}

// Into joins the segments and computes facets on UTF-8 byte offsets.
func (p *Post) Into() RichText {
	var text string
	var facets []*bsky.RichtextFacet

	for _, seg := range p.Segments {
		if seg.Text == "" {
			continue
		}

		start := int64(len(text))
		text += seg.Text
		end := int64(len(text))

		index := &bsky.RichtextFacet_ByteSlice{
			ByteStart: start,
			ByteEnd:   end,
		}

		switch {
		case seg.URI != "":
			facets = append(facets, &bsky.RichtextFacet{
				Index: index,
				Features: []*bsky.RichtextFacet_Features_Elem{
					{
						RichtextFacet_Link: &bsky.RichtextFacet_Link{
							Uri: seg.URI,
						},
					},
				},
			})
		case seg.Tag != "":
			facets = append(facets, &bsky.RichtextFacet{
				Index: index,
				Features: []*bsky.RichtextFacet_Features_Elem{
					{
						RichtextFacet_Tag: &bsky.RichtextFacet_Tag{
							Tag: seg.Tag,
						},
					},
				},
			})
		}
	}

	return RichText{
		Text:   text,
		Facets: facets,
	}
}

func BuildPost(richText RichText, images []*bsky.EmbedImages_Image, languages []string, createdAt time.Time) *bsky.FeedPost {
	post := &bsky.FeedPost{
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
		Langs:     languages,
		Text:      richText.Text,
		Facets:    richText.Facets,
	}

	if len(images) > 0 {
		post.Embed = &bsky.FeedPost_Embed{
			EmbedImages: &bsky.EmbedImages{
				Images: images,
			},
		}
	}

	return post
}

func EmbedImage(slide types.Slide, blob *lexutil.LexBlob) *bsky.EmbedImages_Image {
	return &bsky.EmbedImages_Image{
		Alt:   slide.Alt,
		Image: blob,
	}
}
