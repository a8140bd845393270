// Package render draws annotated correlation heatmaps as PNG images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/quantfold/sectorscope/internal/correlation"
	"github.com/quantfold/sectorscope/internal/domain"
)

const (
	cellSize     = 56
	colorbarGap  = 24
	colorbarW    = 18
	titleHeight  = 34
	xLabelHeight = 22
	rightPad     = 56
	bottomPad    = 12
)

// Heatmap renders correlation matrices with a blue-white-red colormap over
// [-1, 1], per-cell value annotations and a vertical colorbar. Row labels
// use the supplied display labels; column labels use the raw symbols, which
// fit the cell width.
type Heatmap struct {
	log zerolog.Logger
}

// NewHeatmap creates a heatmap renderer.
func NewHeatmap(log zerolog.Logger) *Heatmap {
	return &Heatmap{log: log.With().Str("component", "heatmap").Logger()}
}

// Render writes the heatmap PNG for a matrix to path. labels provides one
// display name per symbol, in matrix order; a mismatched length fails with
// *domain.ShapeMismatchError since the artifact and its labels disagree.
func (h *Heatmap) Render(m *correlation.Matrix, labels []string, title, path string) error {
	n := m.Size()
	if n == 0 {
		return fmt.Errorf("empty matrix")
	}
	if len(labels) != n {
		return &domain.ShapeMismatchError{Name: title, Rows: n, Cols: len(labels)}
	}
	for i := range m.Values {
		if len(m.Values[i]) != n {
			return &domain.ShapeMismatchError{Name: title, Rows: n, Cols: len(m.Values[i])}
		}
	}

	face := basicfont.Face7x13
	leftMargin := maxStringWidth(labels, face) + 16
	topMargin := titleHeight + xLabelHeight
	width := leftMargin + n*cellSize + colorbarGap + colorbarW + rightPad
	height := topMargin + n*cellSize + bottomPad

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	// Cells with annotations.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.Values[i][j]
			cell := image.Rect(
				leftMargin+j*cellSize,
				topMargin+i*cellSize,
				leftMargin+(j+1)*cellSize,
				topMargin+(i+1)*cellSize,
			)
			bg := valueColor(v)
			draw.Draw(img, cell, image.NewUniform(bg), image.Point{}, draw.Src)

			text := "n/a"
			if !math.IsNaN(v) {
				text = fmt.Sprintf("%.2f", v)
			}
			drawCentered(img, face, text, cell, annotationColor(bg))
		}
	}

	// Row labels (sector names) and column labels (tickers).
	for i, label := range labels {
		y := topMargin + i*cellSize + cellSize/2 + face.Height/2 - 2
		drawString(img, face, label, leftMargin-8-stringWidth(label, face), y, color.Black)
	}
	for j := 0; j < n; j++ {
		sym := m.Symbols[j]
		x := leftMargin + j*cellSize + (cellSize-stringWidth(sym, face))/2
		drawString(img, face, sym, x, topMargin-6, color.Black)
	}

	// Title and colorbar.
	drawString(img, face, title, leftMargin, titleHeight-12, color.Black)
	h.drawColorbar(img, face, leftMargin+n*cellSize+colorbarGap, topMargin, n*cellSize)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	h.log.Debug().Str("path", path).Int("size", n).Msg("Rendered heatmap")
	return nil
}

// drawColorbar paints the vertical [-1, 1] legend with endpoint ticks.
func (h *Heatmap) drawColorbar(img *image.RGBA, face *basicfont.Face, x, y, height int) {
	for dy := 0; dy < height; dy++ {
		// Top = +1, bottom = -1.
		v := 1 - 2*float64(dy)/float64(height-1)
		c := valueColor(v)
		for dx := 0; dx < colorbarW; dx++ {
			img.Set(x+dx, y+dy, c)
		}
	}
	drawString(img, face, "+1", x+colorbarW+4, y+face.Height, color.Black)
	drawString(img, face, "0", x+colorbarW+4, y+height/2+face.Height/2, color.Black)
	drawString(img, face, "-1", x+colorbarW+4, y+height-2, color.Black)
}

// valueColor maps a correlation in [-1, 1] onto the blue-white-red ramp.
// NaN renders as neutral gray.
func valueColor(v float64) color.RGBA {
	if math.IsNaN(v) {
		return color.RGBA{R: 200, G: 200, B: 200, A: 255}
	}
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	if v < 0 {
		// Blue toward white.
		t := uint8(math.Round(255 * (1 + v)))
		return color.RGBA{R: t, G: t, B: 255, A: 255}
	}
	// White toward red.
	t := uint8(math.Round(255 * (1 - v)))
	return color.RGBA{R: 255, G: t, B: t, A: 255}
}

// annotationColor keeps cell text readable on saturated backgrounds.
func annotationColor(bg color.RGBA) color.Color {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma < 128 {
		return color.White
	}
	return color.Black
}

func stringWidth(s string, face *basicfont.Face) int {
	return font.MeasureString(face, s).Ceil()
}

func maxStringWidth(labels []string, face *basicfont.Face) int {
	max := 0
	for _, l := range labels {
		if w := stringWidth(l, face); w > max {
			max = w
		}
	}
	return max
}

func drawString(img *image.RGBA, face *basicfont.Face, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func drawCentered(img *image.RGBA, face *basicfont.Face, s string, cell image.Rectangle, c color.Color) {
	w := stringWidth(s, face)
	x := cell.Min.X + (cell.Dx()-w)/2
	y := cell.Min.Y + cell.Dy()/2 + face.Height/2 - 2
	drawString(img, face, s, x, y, c)
}
