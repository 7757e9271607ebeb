package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"trendcast/internal/types"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const maxFontBytes = 32 << 20

// FontSource locates one font. File is resolved against the cache dir when
// relative. With neither set the embedded Go font is used.
type FontSource struct {
	File string
	URL  string
}

type FontsConfig struct {
	CacheDir string
	Regular  FontSource
	Bold     FontSource
	Client   *http.Client
}

type Fonts struct {
	Regular *opentype.Font
	Bold    *opentype.Font
}

// DefaultFonts returns the embedded Go fonts.
func DefaultFonts() (Fonts, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return Fonts{}, fmt.Errorf("failed to parse embedded regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return Fonts{}, fmt.Errorf("failed to parse embedded bold font: %w", err)
	}
	return Fonts{Regular: regular, Bold: bold}, nil
}

// LoadFonts resolves both fonts, downloading into the cache dir when a font
// is missing locally and a URL is configured. Errors are RenderErrors.
func LoadFonts(ctx context.Context, config FontsConfig, logger *slog.Logger) (Fonts, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Client == nil {
		config.Client = &http.Client{Timeout: 60 * time.Second}
	}

	loader := &fontLoader{config: config, logger: logger}

	regular, err := loader.load(ctx, "regular", config.Regular, goregular.TTF)
	if err != nil {
		return Fonts{}, &types.RenderError{Slide: -1, Err: err}
	}
	bold, err := loader.load(ctx, "bold", config.Bold, gobold.TTF)
	if err != nil {
		return Fonts{}, &types.RenderError{Slide: -1, Err: err}
	}

	return Fonts{Regular: regular, Bold: bold}, nil
}

type fontLoader struct {
	config FontsConfig
	logger *slog.Logger
}

func (l *fontLoader) load(ctx context.Context, style string, src FontSource, embedded []byte) (*opentype.Font, error) {
	if src.File == "" && src.URL == "" {
		return parseFont(style, embedded)
	}

	fontPath, err := l.resolve(src)
	if err != nil {
		return nil, fmt.Errorf("%s font: %w", style, err)
	}

	data, err := os.ReadFile(fontPath)
	switch {
	case err == nil:
		l.logger.Debug("Using cached font", "style", style, "file", filepath.Base(fontPath))
		return parseFont(style, data)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read %s font: %w", style, err)
	}

	if src.URL == "" {
		l.logger.Warn("Font file not found, using embedded font", "style", style, "file", fontPath)
		return parseFont(style, embedded)
	}

	data, err = l.download(ctx, src.URL, fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s font: %w", style, err)
	}
	l.logger.Info("Downloaded font", "style", style, "url", src.URL)

	return parseFont(style, data)
}

func (l *fontLoader) resolve(src FontSource) (string, error) {
	name := src.File
	if name == "" {
		u, err := url.Parse(src.URL)
		if err != nil {
			return "", fmt.Errorf("invalid font url: %w", err)
		}
		name = path.Base(u.Path)
		if name == "" || name == "." || name == "/" {
			return "", fmt.Errorf("cannot derive a file name from %q", src.URL)
		}
	}

	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(l.config.CacheDir, name), nil
}

// download fetches a font and renames it into place so a partial file never
// appears at dest.
func (l *fontLoader) download(ctx context.Context, rawURL, dest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.config.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFontBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if _, err := opentype.Parse(data); err != nil {
		return nil, fmt.Errorf("downloaded file is not a font: %w", err)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create font cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".font-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write font: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write font: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return nil, fmt.Errorf("failed to move font into cache: %w", err)
	}

	return data, nil
}

func parseFont(style string, data []byte) (*opentype.Font, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s font: %w", style, err)
	}
	return f, nil
}
