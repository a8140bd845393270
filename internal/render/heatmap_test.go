package render

import (
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/sectorscope/internal/correlation"
	"github.com/quantfold/sectorscope/internal/domain"
)

func testHeatmap() *Heatmap {
	return NewHeatmap(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestRender_WritesDecodablePNG(t *testing.T) {
	m := &correlation.Matrix{
		Symbols: []string{"XLK", "XLF", "XLE"},
		Values: [][]float64{
			{1.0, 0.7, math.NaN()},
			{0.7, 1.0, -0.4},
			{math.NaN(), -0.4, 1.0},
		},
	}
	path := filepath.Join(t.TempDir(), "correlation_daily.png")

	err := testHeatmap().Render(m, []string{"Technology", "Financials", "Energy"}, "Daily % Correlation", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Greater(t, bounds.Dx(), 3*56)
	assert.Greater(t, bounds.Dy(), 3*56)
}

func TestRender_LabelCountMismatch(t *testing.T) {
	m := &correlation.Matrix{
		Symbols: []string{"XLK", "XLF"},
		Values:  [][]float64{{1.0, 0.5}, {0.5, 1.0}},
	}
	path := filepath.Join(t.TempDir(), "out.png")

	err := testHeatmap().Render(m, []string{"Technology"}, "Daily % Correlation", path)
	var shapeErr *domain.ShapeMismatchError
	require.ErrorAs(t, err, &shapeErr)
	assert.NoFileExists(t, path)
}

func TestRender_RaggedMatrix(t *testing.T) {
	m := &correlation.Matrix{
		Symbols: []string{"XLK", "XLF"},
		Values:  [][]float64{{1.0, 0.5}, {0.5}},
	}
	path := filepath.Join(t.TempDir(), "out.png")

	err := testHeatmap().Render(m, []string{"Technology", "Financials"}, "Daily % Correlation", path)
	var shapeErr *domain.ShapeMismatchError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestRender_EmptyMatrix(t *testing.T) {
	m := &correlation.Matrix{}
	err := testHeatmap().Render(m, nil, "t", filepath.Join(t.TempDir(), "out.png"))
	assert.Error(t, err)
}

func TestValueColor_Ramp(t *testing.T) {
	// Endpoints and midpoint of the blue-white-red ramp.
	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 255, A: 255}, valueColor(-1))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, valueColor(0))
	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 0, A: 255}, valueColor(1))

	// Out-of-range values clamp instead of wrapping.
	assert.Equal(t, valueColor(1), valueColor(1.5))
	assert.Equal(t, valueColor(-1), valueColor(-2))

	// NaN is the neutral gray.
	assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, valueColor(math.NaN()))
}

func TestAnnotationColor_Contrast(t *testing.T) {
	assert.Equal(t, color.White, annotationColor(color.RGBA{R: 0, G: 0, B: 255, A: 255}))
	assert.Equal(t, color.Black, annotationColor(color.RGBA{R: 255, G: 255, B: 255, A: 255}))
}
