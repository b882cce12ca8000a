package facecrop

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/esimov/facecrop/utils"
	pigo "github.com/esimov/pigo/core"
)

// Box is a detected face region in pixel coordinates.
type Box struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int { return b.Right - b.Left }

// Height returns the vertical extent of the box.
func (b Box) Height() int { return b.Bottom - b.Top }

// Center returns the box center as (y, x).
func (b Box) Center() (int, int) {
	return (b.Top + b.Bottom) / 2, (b.Left + b.Right) / 2
}

// Scale maps a box detected on an image resized by factor back to the
// original resolution. Coordinates are truncated towards zero.
func (b Box) Scale(factor float64) Box {
	if factor <= 0 || factor == 1 {
		return b
	}
	return Box{
		Top:    int(float64(b.Top) / factor),
		Right:  int(float64(b.Right) / factor),
		Bottom: int(float64(b.Bottom) / factor),
		Left:   int(float64(b.Left) / factor),
	}
}

// Detector finds faces in an image. The boxes are returned in the order the
// detector produced them. Implementations must be safe for concurrent use.
type Detector interface {
	Detect(img image.Image) ([]Box, error)
}

// PigoOptions holds the tuning parameters of the pigo cascade classifier.
type PigoOptions struct {
	MinSize      int     // minimum face size in pixels
	MaxSize      int     // maximum face size in pixels; 0 means the longest image side
	ShiftFactor  float64 // detection window shift relative to its size
	ScaleFactor  float64 // detection window growth between scales
	Angle        float64 // in-plane rotation, 0.0 to 1.0 of a full turn
	IoUThreshold float64
	MinQuality   float32 // detections scoring at or below this value are dropped
}

// DefaultPigoOptions returns the options used by the command line tool.
func DefaultPigoOptions() PigoOptions {
	return PigoOptions{
		MinSize:      20,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
	}
}

// PigoDetector runs the pigo pixel intensity comparison cascade over an image.
// The unpacked classifier is read only, so a single instance is shared by all workers.
type PigoDetector struct {
	classifier *pigo.Pigo
	opts       PigoOptions
}

var _ Detector = (*PigoDetector)(nil)

// NewPigoDetector unpacks the binary cascade file and returns a ready to use detector.
func NewPigoDetector(cascade []byte, opts PigoOptions) (*PigoDetector, error) {
	if len(cascade) == 0 {
		return nil, fmt.Errorf("empty cascade file")
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	return &PigoDetector{classifier: classifier, opts: opts}, nil
}

// LoadPigoDetector reads the cascade file from path and unpacks it.
func LoadPigoDetector(path string, opts PigoOptions) (*PigoDetector, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read the cascade file: %w", err)
	}
	return NewPigoDetector(cascade, opts)
}

// Detect implements the Detector interface.
func (d *PigoDetector) Detect(img image.Image) ([]Box, error) {
	src := imaging.Clone(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()
	if cols == 0 || rows == 0 {
		return nil, nil
	}

	maxSize := d.opts.MaxSize
	if maxSize <= 0 {
		maxSize = utils.Max(cols, rows)
	}

	cParams := pigo.CascadeParams{
		MinSize:     d.opts.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.opts.ShiftFactor,
		ScaleFactor: d.opts.ScaleFactor,

		ImageParams: pigo.ImageParams{
			Pixels: grayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.classifier.RunCascade(cParams, d.opts.Angle)
	dets = d.classifier.ClusterDetections(dets, d.opts.IoUThreshold)

	boxes := make([]Box, 0, len(dets))
	for _, det := range dets {
		if det.Q <= d.opts.MinQuality {
			continue
		}
		boxes = append(boxes, detectionToBox(det))
	}
	return boxes, nil
}

// detectionToBox converts the center based pigo detection into a box.
func detectionToBox(det pigo.Detection) Box {
	half := det.Scale / 2
	return Box{
		Top:    det.Row - half,
		Right:  det.Col + half,
		Bottom: det.Row + half,
		Left:   det.Col - half,
	}
}
