package facecrop

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/esimov/facecrop/utils"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_DecodeShouldKeepPixels(t *testing.T) {
	src := makeNRGBAImage(image.Rect(-1, -1, 15, 15), palette.Plan9)
	path := filepath.Join(t.TempDir(), "palette.png")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	img, err := decodeImg(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())

	r := src.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		got, want := readRow(img, y-r.Min.Y), readRow(src, y)
		assert.True(t, compareBytes(got, want, 0), "row %d: got %v want %v", y, got, want)
	}
}

func TestImage_DecodeShouldRejectNonImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.jpg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a picture"), 0644))

	_, err := decodeImg(path)
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = decodeImg(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestImage_Downscale(t *testing.T) {
	src := makeNRGBAImage(image.Rect(0, 0, 15, 15), palette.Plan9)

	for name, interp := range Interpolators {
		t.Run(name, func(t *testing.T) {
			dst := downscale(src, 0.5, interp)
			assert.Equal(t, image.Rect(0, 0, 7, 7), dst.Bounds())
		})
	}

	tiny := downscale(src, 0.01, nil)
	assert.Equal(t, image.Rect(0, 0, 1, 1), tiny.Bounds())
}

func TestImage_EncodeShouldCreateFolders(t *testing.T) {
	fs := memfs.New()
	img := makeNRGBAImage(image.Rect(0, 0, 10, 10), palette.Plan9)

	require.NoError(t, encodeImg(fs, filepath.Join("a", "b", "face.png"), img, DefaultJPEGQuality))
	require.NoError(t, encodeImg(fs, "face.JPG", img, DefaultJPEGQuality))

	f, err := fs.Open(filepath.Join("a", "b", "face.png"))
	require.NoError(t, err)
	defer f.Close()

	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	_, err = fs.Stat("face.JPG")
	assert.NoError(t, err)
}

func TestImage_EncodeUnsupportedFormat(t *testing.T) {
	fs := memfs.New()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	assert.Error(t, encodeImg(fs, "face.webp", img, DefaultJPEGQuality))
	_, err := fs.Stat("face.webp")
	assert.True(t, os.IsNotExist(err))
}

func makeNRGBAImage(rect image.Rectangle, colors []color.Color) *image.NRGBA {
	img := image.NewNRGBA(rect)
	fillDrawImage(img, colors)
	return img
}

func fillDrawImage(img draw.Image, colors []color.Color) {
	colorsNRGBA := make([]color.NRGBA, len(colors))
	for i, c := range colors {
		nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
		nrgba.A = uint8(i % 256)
		colorsNRGBA[i] = nrgba
	}
	rect := img.Bounds()
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.Set(x, y, colorsNRGBA[i%len(colorsNRGBA)])
			i++
		}
	}
}

func readRow(img image.Image, y int) []uint8 {
	row := make([]byte, img.Bounds().Dx()*4)
	i := 0
	for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		row[i+0] = c.R
		row[i+1] = c.G
		row[i+2] = c.B
		row[i+3] = c.A
		i += 4
	}
	return row
}

func compareBytes(a, b []uint8, delta int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if utils.Abs(int(a[i])-int(b[i])) > delta {
			return false
		}
	}
	return true
}
