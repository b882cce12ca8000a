package facecrop

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/esimov/facecrop/utils"
	"github.com/go-git/go-billy/v5"
	"golang.org/x/image/draw"
)

// ErrNotImage is returned when the content of a source file is not an image.
var ErrNotImage = errors.New("not an image file")

// Interpolators selectable for the detection downscale, keyed by their flag name.
var Interpolators = map[string]draw.Interpolator{
	"bilinear": draw.BiLinear,
	"nearest":  draw.NearestNeighbor,
}

// decodeImg decodes an image file to type *image.NRGBA with min-point at (0, 0).
// The EXIF orientation is applied, so the faces are detected on upright pixels.
func decodeImg(src string) (*image.NRGBA, error) {
	ctype, err := utils.DetectContentType(src)
	if err != nil {
		return nil, err
	}
	if !utils.IsImageType(ctype) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, ctype)
	}

	file, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("could not open the source file: %w", err)
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("could not decode the source file: %w", err)
	}
	return imaging.Clone(img), nil
}

// downscale resizes the image on both axes by the scale factor.
func downscale(src *image.NRGBA, scale float64, interp draw.Interpolator) *image.NRGBA {
	if interp == nil {
		interp = draw.BiLinear
	}
	b := src.Bounds()
	width := utils.Max(1, int(float64(b.Dx())*scale))
	height := utils.Max(1, int(float64(b.Dy())*scale))

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	interp.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	return dst
}

// encodeImg encodes the image into the destination file, using the format implied
// by the file extension. Missing parent directories are created.
// The partially written file is removed in case of an error.
func encodeImg(fs billy.Filesystem, dst string, img image.Image, quality int) (err error) {
	format, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return fmt.Errorf("unsupported output format for %s: %w", dst, err)
	}
	if dir := path.Dir(filepath.ToSlash(dst)); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("unable to create the destination folder: %w", err)
		}
	}

	f, err := fs.Create(dst)
	if err != nil {
		return fmt.Errorf("unable to create the destination file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("could not close the destination file: %w", cerr)
		}
		if err != nil {
			fs.Remove(dst)
		}
	}()

	if err = imaging.Encode(f, img, format, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("unable to encode %s: %w", dst, err)
	}
	return nil
}
