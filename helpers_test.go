package facecrop

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// detectorFunc adapts a function to the Detector interface.
type detectorFunc func(img image.Image) ([]Box, error)

func (f detectorFunc) Detect(img image.Image) ([]Box, error) { return f(img) }

// writeImage creates a uniformly colored image of the given size, encoded
// in the format implied by the file extension. Parent folders are created.
func writeImage(t *testing.T, path string, width, height int) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: 120, G: 90, B: 60, A: 255})
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		require.NoError(t, png.Encode(f, img))
	default:
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	}
}
