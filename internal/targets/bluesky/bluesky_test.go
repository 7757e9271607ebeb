package bluesky

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"trendcast/internal/types"

	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	uploads   [][]byte
	posts     []*bsky.FeedPost
	uploadErr error
	postErr   error
}

func (f *fakePlatform) UploadBlob(ctx context.Context, data []byte) (*lexutil.LexBlob, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, data)
	return &lexutil.LexBlob{MimeType: "image/png", Size: int64(len(data))}, nil
}

func (f *fakePlatform) CreatePost(ctx context.Context, post *bsky.FeedPost) (string, string, error) {
	if f.postErr != nil {
		return "", "", f.postErr
	}
	f.posts = append(f.posts, post)
	return "at://did:plc:bot/app.bsky.feed.post/abc", "bafycid", nil
}

var runDate = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func trends() []types.Trend {
	return []types.Trend{
		{Label: "Compiler & Rust", Keywords: []string{"compiler", "rust", "release"}},
		{Label: "AI & Chips", Keywords: []string{"ai", "chips"}},
	}
}

func slides(n int) []types.Slide {
	out := make([]types.Slide, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.Slide{Index: i, Name: "slide", Data: []byte{byte(i)}, Alt: "alt"})
	}
	return out
}

func newTarget(p Platform) *Target {
	target := New("bluesky", p, Config{Brand: "Tech Trends", Languages: []string{"en"}, Hashtags: []string{"#tech"}}, nil)
	target.now = func() time.Time { return runDate }
	return target
}

func TestPublishCarousel(t *testing.T) {
	platform := &fakePlatform{}
	target := newTarget(platform)

	result, err := target.Publish(context.Background(), slides(3), trends(), runDate)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Images)
	assert.Equal(t, "at://did:plc:bot/app.bsky.feed.post/abc", result.URI)

	require.Len(t, platform.uploads, 3)
	require.Len(t, platform.posts, 1)

	post := platform.posts[0]
	assert.Equal(t, []string{"en"}, post.Langs)
	require.NotNil(t, post.Embed)
	require.NotNil(t, post.Embed.EmbedImages)
	assert.Len(t, post.Embed.EmbedImages.Images, 3)
	assert.Equal(t, "alt", post.Embed.EmbedImages.Images[0].Alt)

	assert.Equal(t, "Tech Trends · March 1, 2026\n1. Compiler & Rust\n2. AI & Chips\n\n#tech #compiler #rust #ai #chips", post.Text)

	require.Len(t, post.Facets, 5)
	for _, facet := range post.Facets {
		require.NotNil(t, facet.Features[0].RichtextFacet_Tag)
		tag := facet.Features[0].RichtextFacet_Tag.Tag
		assert.Equal(t, "#"+tag, post.Text[facet.Index.ByteStart:facet.Index.ByteEnd])
	}
}

func TestPublishRejectsTooManyImages(t *testing.T) {
	platform := &fakePlatform{}
	_, err := newTarget(platform).Publish(context.Background(), slides(5), trends(), runDate)

	var publishErr *types.PublishError
	require.ErrorAs(t, err, &publishErr)
	assert.Equal(t, "validate", publishErr.Stage)
	assert.Empty(t, platform.uploads)
}

func TestPublishWrapsPlatformErrors(t *testing.T) {
	cause := errors.New("rate limited")

	_, err := newTarget(&fakePlatform{uploadErr: cause}).Publish(context.Background(), slides(2), trends(), runDate)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, types.ExitPublish, types.ExitCode(err))

	_, err = newTarget(&fakePlatform{postErr: cause}).Publish(context.Background(), slides(2), trends(), runDate)
	var publishErr *types.PublishError
	require.ErrorAs(t, err, &publishErr)
	assert.Equal(t, "post", publishErr.Stage)
	assert.ErrorIs(t, err, cause)
}

func TestCaptionTruncatesAndDropsTags(t *testing.T) {
	long := []types.Trend{
		{Label: strings.Repeat("Quantum ", 20), Keywords: []string{"quantum"}},
		{Label: strings.Repeat("Fusion ", 20), Keywords: []string{"fusion"}},
	}

	post := Caption("Tech Trends", "March 1, 2026", long, []string{"tech"})
	rt := post.Into()
	assert.LessOrEqual(t, utf8.RuneCountInString(rt.Text), MaxPostRunes)
	assert.True(t, strings.HasSuffix(rt.Text, "…"))
	assert.Empty(t, rt.Facets)
}

func TestCaptionWithoutTrends(t *testing.T) {
	rt := Caption("Tech Trends", "March 1, 2026", nil, nil).Into()
	assert.Equal(t, "Tech Trends · March 1, 2026\nNo trends today.", rt.Text)
}

func TestHashtags(t *testing.T) {
	tags := Hashtags([]types.Trend{
		{Keywords: []string{"ai", "gpu", "nvidia"}},
		{Keywords: []string{"AI", "5g"}},
		{Keywords: []string{"c++"}},
	}, []string{"#Tech", "tech", "  "})

	assert.Equal(t, []string{"Tech", "ai", "gpu", "5g", "c"}, tags)
}

func TestIntoLinkFacetUsesByteOffsets(t *testing.T) {
	post := Post{Segments: []Segment{
		{Text: "Café · "},
		{Text: "read", URI: "https://example.com"},
	}}

	rt := post.Into()
	require.Len(t, rt.Facets, 1)
	facet := rt.Facets[0]
	assert.Equal(t, "read", rt.Text[facet.Index.ByteStart:facet.Index.ByteEnd])
	assert.Equal(t, "https://example.com", facet.Features[0].RichtextFacet_Link.Uri)
}

func TestCaptionListsSources(t *testing.T) {
	withArticles := []types.Trend{
		{Label: "Compiler & Rust", Keywords: []string{"compiler", "rust"}, Articles: []types.Article{
			{Source: "The Verge"}, {Source: "Ars Technica"}, {Source: "The Verge"},
		}},
		{Label: "AI & Chips", Keywords: []string{"ai", "chips"}, Articles: []types.Article{
			{Source: "Ars Technica"}, {Source: "TechCrunch"},
		}},
	}

	cfg := Config{Brand: "Tech Trends", Hashtags: []string{"tech"}}
	post := cfg.Caption(withArticles, runDate)
	rt := post.Into()
	assert.Equal(t, "Tech Trends · March 1, 2026\n1. Compiler & Rust\n2. AI & Chips\n"+
		"Sources: The Verge, Ars Technica, TechCrunch\n\n#tech #compiler #rust #ai #chips", rt.Text)
}

func TestCaptionDropsSourcesOverLimit(t *testing.T) {
	many := make([]types.Article, 0, 40)
	for i := 0; i < 40; i++ {
		many = append(many, types.Article{Source: fmt.Sprintf("Source number %02d", i)})
	}
	trend := []types.Trend{{Label: "Big", Keywords: []string{"big"}, Articles: many}}

	rt := Caption("Tech Trends", "March 1, 2026", trend, nil).Into()
	assert.NotContains(t, rt.Text, "Sources:")
	assert.Equal(t, "Tech Trends · March 1, 2026\n1. Big\n\n#big", rt.Text)
}

func TestSources(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, Sources([]types.Trend{
		{Articles: []types.Article{{Source: "A"}, {Source: ""}, {Source: "B"}}},
		{Articles: []types.Article{{Source: "B"}, {Source: "C"}}},
	}))
	assert.Empty(t, Sources(nil))
}
