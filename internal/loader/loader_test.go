package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trendcast/internal/components"
	"trendcast/internal/config"
	"trendcast/internal/core"
	"trendcast/internal/storage"
	"trendcast/internal/targets/disk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()

	titles := map[string][]string{
		"/a.xml": {"Rust compiler release speeds builds", "Quantum computing lab opens"},
		"/b.xml": {"Rust compiler team ships new borrow checker", "Quantum computing startup raises money"},
		"/c.xml": {"New Rust compiler backend lands", "Gardening tips for autumn"},
	}

	mux := http.NewServeMux()
	for path, items := range titles {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>`+path+`</title>`)
			for i, title := range items {
				fmt.Fprintf(w, `<item><title>%s</title><link>https://news.example%s/%d</link><pubDate>Mon, 19 Oct 2026 10:00:00 +0000</pubDate></item>`,
					title, path, i)
			}
			fmt.Fprint(w, `</channel></rss>`)
		})
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, feedBase string, history bool) *config.Config {
	t.Helper()
	dir := t.TempDir()

	historyPath := ""
	if history {
		historyPath = filepath.Join(dir, "history.db")
	}

	doc := fmt.Sprintf(`
[bot]
brand = "Test Trends"
handle = "@trends.example"

[fetch]
max_age = "0s"

[[feeds]]
url = "%[1]s/a.xml"
name = "Alpha"

[[feeds]]
url = "%[1]s/b.xml"
name = "Beta"

[[feeds]]
url = "%[1]s/c.xml"
name = "Gamma"

[analyzer]
max_trends = 2

[slides]
width = 270
height = 270

[fonts]
cache_dir = %[2]q

[output]
dir = %[3]q

[publisher]
session_file = %[4]q

[history]
path = %[5]q
`, feedBase, filepath.Join(dir, "fonts"), filepath.Join(dir, "out"), filepath.Join(dir, "session.json"), historyPath)

	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	return cfg
}

func TestInitializeSelectsComponents(t *testing.T) {
	t.Setenv(config.EnvIdentifier, "bot.example")
	t.Setenv(config.EnvPassword, "hunter2")

	tests := []struct {
		name    string
		options core.Options
		history bool
		want    []string
	}{
		{name: "publish", options: core.Options{}, history: true, want: []string{"fonts", "platform", "storage"}},
		{name: "dry run", options: core.Options{DryRun: true}, want: []string{"fonts"}},
		{name: "no images", options: core.Options{NoImages: true}, history: true, want: []string{"storage"}},
		{name: "no images dry run", options: core.Options{NoImages: true, DryRun: true}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "https://feeds.example", tt.history)

			appState, err := NewLoader(cfg, tt.options, quietLogger).Initialize(context.Background())
			require.NoError(t, err)
			defer appState.Bot.Stop(context.Background())

			assert.Equal(t, tt.want, appState.Registry.Names())
			assert.Same(t, cfg, appState.Config)
		})
	}
}

func TestInitializeRequiresCredentialsOnlyWhenPublishing(t *testing.T) {
	t.Setenv(config.EnvIdentifier, "")
	t.Setenv(config.EnvPassword, "")

	// The configured session file does not exist yet, so nothing can log in.
	cfg := testConfig(t, "https://feeds.example", false)
	require.NoFileExists(t, cfg.Publisher.SessionFile)

	_, err := NewLoader(cfg, core.Options{}, quietLogger).Initialize(context.Background())
	assert.ErrorContains(t, err, config.EnvIdentifier)
	assert.ErrorContains(t, err, cfg.Publisher.SessionFile)

	appState, err := NewLoader(cfg, core.Options{DryRun: true}, quietLogger).Initialize(context.Background())
	require.NoError(t, err)
	assert.False(t, appState.Registry.Has(components.PlatformComponentName))
	require.NoError(t, appState.Bot.Stop(context.Background()))
}

func TestDryRunWritesCarousel(t *testing.T) {
	server := newFeedServer(t)
	cfg := testConfig(t, server.URL, true)

	appState, err := NewLoader(cfg, core.Options{DryRun: true}, quietLogger).Initialize(context.Background())
	require.NoError(t, err)

	result, err := appState.Bot.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, appState.Bot.Stop(context.Background()))

	assert.Equal(t, 3, result.FeedsTotal)
	assert.Zero(t, result.FeedsFailed)
	assert.Equal(t, 6, result.Articles)
	assert.Equal(t, 2, result.Trends)
	assert.Equal(t, 3, result.Slides)
	assert.False(t, result.Posted)

	for _, name := range []string{"slide_00.png", "slide_01.png", "slide_02.png", disk.ManifestName} {
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, name))
	}

	caption, err := os.ReadFile(filepath.Join(cfg.Output.Dir, disk.CaptionName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(caption), "Test Trends · "))
	assert.Contains(t, string(caption), "Sources: ")

	store, err := storage.New("sqlite", cfg.History.Path)
	require.NoError(t, err)
	defer store.Close(context.Background())

	runs, err := store.Runs().Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, 3, runs[0].Slides)
	assert.Zero(t, runs[0].ExitCode)
}

func TestLoadAndBuildMissingConfig(t *testing.T) {
	_, err := LoadAndBuild(context.Background(), filepath.Join(t.TempDir(), "nope.toml"), core.Options{}, quietLogger)
	assert.ErrorContains(t, err, "failed to load config")
}

func TestInitializeBadPalette(t *testing.T) {
	cfg := testConfig(t, "https://feeds.example", false)
	cfg.Slides.Palettes = []config.PaletteConfig{{Background: "#zzz", Foreground: "#fff", Accent: "#000"}}

	_, err := NewLoader(cfg, core.Options{DryRun: true}, quietLogger).Initialize(context.Background())
	assert.ErrorContains(t, err, "palette")
}
