package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"trendcast/internal/cache"
	"trendcast/internal/types"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	baseWidth    = 1080.0
	maxAltRunes  = 1000
	maxLabelRows   = 3
	maxInsightRows = 3
	maxHeadRows    = 3
)

type Options struct {
	Width      int
	Height     int
	Headlines  int
	Brand      string
	Tagline    string
	Handle     string
	DateFormat string
	Palettes   []Palette
}

type faceKey struct {
	style string
	size  float64
}

// Composer renders trends into carousel slides: a cover followed by one
// slide per trend.
type Composer struct {
	options Options
	fonts   Fonts
	faces   *cache.Cache[faceKey, font.Face]
	logger  *slog.Logger

	encode func(io.Writer, image.Image) error
}

func NewComposer(options Options, fonts Fonts, logger *slog.Logger) *Composer {
	if options.Width <= 0 {
		options.Width = 1080
	}
	if options.Height <= 0 {
		options.Height = 1350
	}
	if options.Headlines <= 0 {
		options.Headlines = 3
	}
	if options.DateFormat == "" {
		options.DateFormat = "January 2, 2006"
	}
	if len(options.Palettes) == 0 {
		options.Palettes = defaultPalettes
	}
	if logger == nil {
		logger = slog.Default()
	}

	faces := cache.NewCache[faceKey, font.Face](cache.CacheConfig{Logger: logger}, func(k faceKey) string {
		return fmt.Sprintf("%s:%.2f", k.style, k.size)
	})

	return &Composer{
		options: options,
		fonts:   fonts,
		faces:   faces,
		logger:  logger,
		encode:  png.Encode,
	}
}

// Compose returns exactly 1+len(trends) slides. If any slide fails, no
// slides are returned.
func (c *Composer) Compose(ctx context.Context, trends []types.Trend, date time.Time) ([]types.Slide, error) {
	slides := make([]types.Slide, 0, 1+len(trends))

	cover, err := c.renderSlide(0, func(cv *canvas) error {
		return c.drawCover(cv, trends, date)
	})
	if err != nil {
		return nil, err
	}
	cover.Alt = c.coverAlt(trends, date)
	slides = append(slides, cover)

	for i, trend := range trends {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		index := i + 1
		slide, err := c.renderSlide(index, func(cv *canvas) error {
			return c.drawTrend(cv, index, len(trends), trend)
		})
		if err != nil {
			return nil, err
		}
		slide.Alt = trendAlt(index, trend, c.options.Headlines)
		slides = append(slides, slide)
	}

	c.logger.Info("Slides composed", "count", len(slides), "width", c.options.Width, "height", c.options.Height)
	return slides, nil
}

func SlideName(index int) string {
	return fmt.Sprintf("slide_%02d.png", index)
}

func (c *Composer) renderSlide(index int, paint func(*canvas) error) (types.Slide, error) {
	cv := c.newCanvas(paletteFor(c.options.Palettes, index))
	if err := paint(cv); err != nil {
		return types.Slide{}, &types.RenderError{Slide: index, Err: err}
	}

	var buf bytes.Buffer
	if err := c.encode(&buf, cv.img); err != nil {
		return types.Slide{}, &types.RenderError{Slide: index, Err: fmt.Errorf("encode: %w", err)}
	}

	c.logger.Debug("Slide rendered", "index", index, "bytes", buf.Len())

	return types.Slide{
		Index:  index,
		Name:   SlideName(index),
		Data:   buf.Bytes(),
		Width:  c.options.Width,
		Height: c.options.Height,
	}, nil
}

func (c *Composer) drawCover(cv *canvas, trends []types.Trend, date time.Time) error {
	o := c.options
	margin := cv.px(90)
	width := o.Width - 2*margin

	cv.fill(image.Rect(0, 0, o.Width, cv.px(28)), cv.palette.Accent)

	y := cv.px(250)
	dateFace, err := c.face("regular", cv.scale(40))
	if err != nil {
		return err
	}
	y = cv.text(dateFace, cv.palette.Accent, margin, y, strings.ToUpper(date.Format(o.DateFormat)))

	brandFace, err := c.face("bold", cv.scale(104))
	if err != nil {
		return err
	}
	y += cv.px(20)
	for _, line := range wrapText(brandFace, o.Brand, width, 2) {
		y = cv.text(brandFace, cv.palette.Foreground, margin, y, line)
	}

	if o.Tagline != "" {
		taglineFace, err := c.face("regular", cv.scale(46))
		if err != nil {
			return err
		}
		y += cv.px(20)
		for _, line := range wrapText(taglineFace, o.Tagline, width, 3) {
			y = cv.text(taglineFace, cv.palette.Foreground, margin, y, line)
		}
	}

	countFace, err := c.face("bold", cv.scale(44))
	if err != nil {
		return err
	}
	y += cv.px(60)
	cv.fill(image.Rect(margin, y-cv.px(6), margin+cv.px(120), y), cv.palette.Accent)
	y += cv.px(30)
	y = cv.text(countFace, cv.palette.Foreground, margin, y, trendCount(len(trends)))

	labelFace, err := c.face("regular", cv.scale(38))
	if err != nil {
		return err
	}
	for i, trend := range trends {
		line := fmt.Sprintf("%d. %s", i+1, trend.Label)
		for _, row := range wrapText(labelFace, line, width, 1) {
			y = cv.text(labelFace, cv.palette.Foreground, margin, y+cv.px(8), row)
		}
	}

	return c.drawFooter(cv, o.Handle, "swipe →")
}

func (c *Composer) drawTrend(cv *canvas, index, total int, trend types.Trend) error {
	o := c.options
	margin := cv.px(80)
	width := o.Width - 2*margin

	badge := cv.px(110)
	cv.fill(image.Rect(margin, margin, margin+badge, margin+badge), cv.palette.Accent)

	badgeFace, err := c.face("bold", cv.scale(64))
	if err != nil {
		return err
	}
	number := fmt.Sprintf("%d", index)
	numberWidth := font.MeasureString(badgeFace, number).Ceil()
	ascent := badgeFace.Metrics().Ascent.Ceil()
	cv.draw(badgeFace, cv.palette.Background, margin+(badge-numberWidth)/2, margin+(badge+ascent)/2-cv.px(4), number)

	if trend.Category != "" {
		categoryFace, err := c.face("bold", cv.scale(34))
		if err != nil {
			return err
		}
		cv.draw(categoryFace, cv.palette.Accent, margin+badge+cv.px(30), margin+badge/2+cv.px(12), strings.ToUpper(trend.Category))
	}

	y := margin + badge + cv.px(60)
	labelFace, err := c.face("bold", cv.scale(76))
	if err != nil {
		return err
	}
	for _, line := range wrapText(labelFace, trend.Label, width, maxLabelRows) {
		y = cv.text(labelFace, cv.palette.Foreground, margin, y, line)
	}

	y += cv.px(30)
	cv.fill(image.Rect(margin, y, margin+width, y+cv.px(4)), cv.palette.Accent)
	y += cv.px(30)

	if text := insight(trend); text != "" {
		insightFace, err := c.face("regular", cv.scale(34))
		if err != nil {
			return err
		}
		for _, line := range wrapText(insightFace, text, width, maxInsightRows) {
			y = cv.text(insightFace, cv.palette.Foreground, margin, y, line)
		}
		y += cv.px(30)
	}

	headlineFace, err := c.face("regular", cv.scale(38))
	if err != nil {
		return err
	}
	bullet := "• "
	indent := font.MeasureString(headlineFace, bullet).Ceil()
	for i, article := range trend.Articles {
		if i >= o.Headlines {
			break
		}
		for j, line := range wrapText(headlineFace, article.Title, width-indent, maxHeadRows) {
			x := margin + indent
			if j == 0 {
				cv.draw(headlineFace, cv.palette.Accent, margin, y+headlineFace.Metrics().Ascent.Ceil(), bullet)
			}
			y = cv.text(headlineFace, cv.palette.Foreground, x, y, line)
		}
		y += cv.px(18)
	}

	if sources := trend.Sources(); len(sources) > 0 {
		viaFace, err := c.face("regular", cv.scale(30))
		if err != nil {
			return err
		}
		y += cv.px(10)
		for _, line := range wrapText(viaFace, "via "+strings.Join(sources, ", "), width, 2) {
			y = cv.text(viaFace, cv.palette.Accent, margin, y, line)
		}
	}

	return c.drawFooter(cv, o.Handle, fmt.Sprintf("%d/%d", index, total))
}

func (c *Composer) drawFooter(cv *canvas, left, right string) error {
	face, err := c.face("regular", cv.scale(30))
	if err != nil {
		return err
	}

	margin := cv.px(80)
	baseline := c.options.Height - margin
	if left != "" {
		cv.draw(face, cv.palette.Foreground, margin, baseline, left)
	}
	if right != "" {
		w := font.MeasureString(face, right).Ceil()
		cv.draw(face, cv.palette.Foreground, c.options.Width-margin-w, baseline, right)
	}
	return nil
}

func (c *Composer) face(style string, size float64) (font.Face, error) {
	return c.faces.GetOrCreate(faceKey{style: style, size: size}, func() (font.Face, error) {
		f := c.fonts.Regular
		if style == "bold" {
			f = c.fonts.Bold
		}
		if f == nil {
			return nil, fmt.Errorf("%s font not loaded", style)
		}

		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s face: %w", style, err)
		}
		return face, nil
	})
}

func (c *Composer) coverAlt(trends []types.Trend, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s. %s.", c.options.Brand, date.Format(c.options.DateFormat), trendCount(len(trends)))
	for i, trend := range trends {
		fmt.Fprintf(&b, " %d. %s.", i+1, trend.Label)
	}
	return truncateRunes(b.String(), maxAltRunes)
}

func trendAlt(index int, trend types.Trend, headlines int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trend %d: %s.", index, trend.Label)
	if trend.Category != "" {
		fmt.Fprintf(&b, " Category: %s.", trend.Category)
	}
	if text := insight(trend); text != "" {
		fmt.Fprintf(&b, " %s.", strings.TrimRight(text, "."))
	}
	for i, article := range trend.Articles {
		if i >= headlines {
			break
		}
		fmt.Fprintf(&b, " %s.", strings.TrimRight(article.Title, "."))
	}
	if sources := trend.Sources(); len(sources) > 0 {
		fmt.Fprintf(&b, " Via %s.", strings.Join(sources, ", "))
	}
	return truncateRunes(b.String(), maxAltRunes)
}

// insight is the summary of the most relevant article that has one.
func insight(trend types.Trend) string {
	for _, article := range trend.Articles {
		if s := strings.TrimSpace(article.Summary); s != "" {
			return s
		}
	}
	return ""
}

func trendCount(n int) string {
	switch n {
	case 0:
		return "No trends today"
	case 1:
		return "1 trend today"
	default:
		return fmt.Sprintf("%d trends today", n)
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + ellipsis
}

type canvas struct {
	img     *image.RGBA
	palette Palette
	factor  float64
}

func (c *Composer) newCanvas(p Palette) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, c.options.Width, c.options.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(p.Background), image.Point{}, draw.Src)
	return &canvas{
		img:     img,
		palette: p,
		factor:  float64(c.options.Width) / baseWidth,
	}
}

func (cv *canvas) scale(v float64) float64 {
	return v * cv.factor
}

func (cv *canvas) px(v float64) int {
	return int(v*cv.factor + 0.5)
}

func (cv *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(cv.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

// draw renders s with its baseline at y.
func (cv *canvas) draw(face font.Face, col color.Color, x, y int, s string) {
	d := &font.Drawer{
		Dst:  cv.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// text renders one line below y and returns the y of the line's bottom.
func (cv *canvas) text(face font.Face, col color.Color, x, y int, s string) int {
	metrics := face.Metrics()
	cv.draw(face, col, x, y+metrics.Ascent.Ceil(), s)
	return y + metrics.Height.Ceil()
}
