package facecrop

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/esimov/facecrop/utils"
)

// ExpandFactor is the ratio between the side of the saved square crop and the
// larger side of the detected face box. The face box covers roughly the eyes to
// the chin, doubling it brings the hair and the whole head into the crop.
const ExpandFactor = 2

// CropRect returns the head centered crop region of a face box, clamped on each
// edge independently to the image bounds. A face close to an edge produces a
// smaller, asymmetric crop.
func CropRect(box Box, bounds image.Rectangle) image.Rectangle {
	maxDim := utils.Max(box.Width(), box.Height())
	centerY, centerX := box.Center()
	half := maxDim * ExpandFactor / 2

	return image.Rectangle{
		Min: image.Point{
			X: utils.Clamp(centerX-half, bounds.Min.X, bounds.Max.X),
			Y: utils.Clamp(centerY-half, bounds.Min.Y, bounds.Max.Y),
		},
		Max: image.Point{
			X: utils.Clamp(centerX+half, bounds.Min.X, bounds.Max.X),
			Y: utils.Clamp(centerY+half, bounds.Min.Y, bounds.Max.Y),
		},
	}
}

// FaceOutputPath returns the file name of the index-th (0 based) face out of total.
// A single face keeps the mirrored name; multiple faces get a 1 based "_<n>" suffix
// inserted before the extension.
func FaceOutputPath(dst string, index, total int) string {
	if total <= 1 {
		return dst
	}
	ext := filepath.Ext(dst)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(dst, ext), index+1, ext)
}

// MirrorPath returns the location of src relative to srcRoot.
// Joined onto a destination root it gives the mirrored output path.
func MirrorPath(src, srcRoot string) (string, error) {
	rel, err := filepath.Rel(srcRoot, src)
	if err != nil {
		return "", fmt.Errorf("unable to resolve %s relative to %s: %w", src, srcRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside of the source directory %s", src, srcRoot)
	}
	return rel, nil
}
