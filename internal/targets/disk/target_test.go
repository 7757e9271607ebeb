package disk

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"trendcast/internal/types"

	"github.com/gorilla/feeds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runDate = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func carousel() Carousel {
	return Carousel{
		Date: runDate,
		Slides: []types.Slide{
			{Index: 0, Name: "slide_00.png", Data: []byte("cover"), Alt: "cover alt"},
			{Index: 1, Name: "slide_01.png", Data: []byte("one"), Alt: "trend one"},
			{Index: 2, Name: "slide_02.png", Data: []byte("two"), Alt: "trend two"},
		},
		Trends: []types.Trend{
			{Label: "Rust & Compiler", Articles: []types.Article{{Title: "Rust <1.90>", Link: "https://a.example/rust", Source: "A"}}},
			{Label: "Solar & Panel", Articles: []types.Article{{Title: "Solar", Link: "https://b.example/solar", Source: "B"}}},
		},
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestWriteSlidesAndManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	target := New("disk", Config{Dir: dir, Title: "Tech Trends", Handle: "@trends.example"}, nil)

	written, err := target.Write(context.Background(), carousel())
	require.NoError(t, err)
	require.Len(t, written, 4)
	assert.Equal(t, filepath.Join(dir, ManifestName), written[3])

	assert.Equal(t, []string{ManifestName, "slide_00.png", "slide_01.png", "slide_02.png"}, listDir(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, "slide_01.png"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	raw, err := os.ReadFile(filepath.Join(dir, ManifestName))
	require.NoError(t, err)

	var manifest feeds.JSONFeed
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Equal(t, "Tech Trends for 2026-03-01", manifest.Title)
	require.Len(t, manifest.Items, 3)
	assert.Equal(t, "slide_00.png", manifest.Items[0].Id)
	assert.Equal(t, "Cover", manifest.Items[0].Title)
	assert.Equal(t, "Rust & Compiler", manifest.Items[1].Title)
	assert.Contains(t, manifest.Items[1].ContentHTML, "Rust &lt;1.90&gt;")
	assert.Equal(t, "trend two", manifest.Items[2].Summary)
}

func TestWriteFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	target := New("disk", Config{Dir: dir}, nil)

	calls := 0
	target.rename = func(oldpath, newpath string) error {
		calls++
		if calls == 2 {
			return errors.New("device full")
		}
		return os.Rename(oldpath, newpath)
	}

	_, err := target.Write(context.Background(), carousel())
	require.Error(t, err)

	var writeErr *types.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, types.ExitRender, types.ExitCode(err))
	assert.Empty(t, listDir(t, dir))
}

func TestWriteManifestFailureRollsBackSlides(t *testing.T) {
	dir := t.TempDir()
	target := New("disk", Config{Dir: dir}, nil)

	target.rename = func(oldpath, newpath string) error {
		if strings.HasSuffix(newpath, ManifestName) {
			return errors.New("read-only")
		}
		return os.Rename(oldpath, newpath)
	}

	_, err := target.Write(context.Background(), carousel())
	require.Error(t, err)
	assert.Empty(t, listDir(t, dir))
}

func TestWriteReplacesPreviousManifest(t *testing.T) {
	dir := t.TempDir()
	target := New("disk", Config{Dir: dir}, nil)

	_, err := target.Write(context.Background(), carousel())
	require.NoError(t, err)

	smaller := carousel()
	smaller.Slides = smaller.Slides[:1]
	smaller.Trends = nil
	_, err = target.Write(context.Background(), smaller)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, ManifestName))
	require.NoError(t, err)
	var manifest feeds.JSONFeed
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Len(t, manifest.Items, 1)
}

func TestWriteCaption(t *testing.T) {
	dir := t.TempDir()
	target := New("disk", Config{Dir: dir}, nil)

	c := carousel()
	c.Caption = "Tech Trends · March 1, 2026\n1. Rust & Compiler\n2. Solar & Panel"
	written, err := target.Write(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, written, 5)
	assert.Equal(t, filepath.Join(dir, CaptionName), written[3])
	assert.Equal(t, filepath.Join(dir, ManifestName), written[4])

	data, err := os.ReadFile(filepath.Join(dir, CaptionName))
	require.NoError(t, err)
	assert.Equal(t, c.Caption+"\n", string(data))

	// A later carousel without a caption must not inherit the old one.
	_, err = target.Write(context.Background(), carousel())
	require.NoError(t, err)
	assert.NotContains(t, listDir(t, dir), CaptionName)
}

func TestWriteCaptionFailureRollsBackSlides(t *testing.T) {
	dir := t.TempDir()
	target := New("disk", Config{Dir: dir}, nil)

	target.rename = func(oldpath, newpath string) error {
		if strings.HasSuffix(newpath, CaptionName) {
			return errors.New("read-only")
		}
		return os.Rename(oldpath, newpath)
	}

	c := carousel()
	c.Caption = "caption"
	_, err := target.Write(context.Background(), c)

	var writeErr *types.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, filepath.Join(dir, CaptionName), writeErr.Path)
	assert.Empty(t, listDir(t, dir))
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"slide_00.png", "slide_07.png", ManifestName, CaptionName, "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".staging-123", "nested"), 0o755))

	target := New("disk", Config{Dir: dir}, nil)
	require.NoError(t, target.Clean())
	assert.Equal(t, []string{"notes.txt"}, listDir(t, dir))
}

func TestCleanMissingDir(t *testing.T) {
	target := New("disk", Config{Dir: filepath.Join(t.TempDir(), "absent")}, nil)
	assert.NoError(t, target.Clean())
}

func TestWriteCanceled(t *testing.T) {
	dir := t.TempDir()
	target := New("disk", Config{Dir: dir}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := target.Write(ctx, carousel())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, listDir(t, dir))
}
