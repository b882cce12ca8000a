package facecrop

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
)

// ErrEmptyCrop is returned when a face box does not overlap the image.
var ErrEmptyCrop = errors.New("empty crop region")

// Job fully determines the processing of one image.
type Job struct {
	Src     string
	SrcRoot string
	DstRoot string
	Scale   float64 // downscale factor applied before detection; 0 or 1 disables it
}

// scaled reports whether the image is resized before running the detector.
func (j Job) scaled() bool {
	return j.Scale > 0 && j.Scale < 1
}

// process detects the faces of one image and writes a crop for each of them into dest,
// which is rooted at the job's destination directory.
func (p *Processor) process(dest billy.Filesystem, job Job) Result {
	start := time.Now()
	res := Result{Src: job.Src}
	log := p.logger().With(zap.String("image", job.Src))

	finish := func(status Status, err error) Result {
		res.Status = status
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}

	rel, err := MirrorPath(job.Src, job.SrcRoot)
	if err != nil {
		return finish(StatusFailed, &JobError{Src: job.Src, Stage: StageSave, Err: err})
	}

	log.Debug("detecting faces in the image")
	img, boxes, err := p.detect(job)
	if err != nil {
		return finish(StatusFailed, err)
	}
	res.Faces = len(boxes)
	if len(boxes) == 0 {
		return finish(StatusNoFace, nil)
	}

	log.Debug("saving the detected faces",
		zap.Int("faces", len(boxes)),
		zap.String("dst", filepath.Join(job.DstRoot, rel)),
	)
	outputs, err := p.save(dest, img, boxes, rel)
	for _, out := range outputs {
		res.Outputs = append(res.Outputs, filepath.Join(job.DstRoot, out))
	}
	if err != nil {
		return finish(StatusFailed, &JobError{Src: job.Src, Stage: StageSave, Err: err})
	}
	return finish(StatusSaved, nil)
}

// detect returns the full resolution image together with the face boxes found in it.
// With a scale factor set the detector runs on the downscaled copy, the boxes are
// mapped back to the original resolution and the original image is decoded again.
func (p *Processor) detect(job Job) (*image.NRGBA, []Box, error) {
	img, err := decodeImg(job.Src)
	if err != nil {
		return nil, nil, &JobError{Src: job.Src, Stage: StageDecode, Err: err}
	}

	if job.scaled() {
		// Drop the full resolution buffer while the detector runs.
		img = downscale(img, job.Scale, p.Interpolator)
	}

	boxes, err := p.Detector.Detect(img)
	if err != nil {
		return nil, nil, &JobError{Src: job.Src, Stage: StageDetect, Err: err}
	}
	if len(boxes) == 0 {
		return nil, nil, nil
	}

	if job.scaled() {
		for i := range boxes {
			boxes[i] = boxes[i].Scale(job.Scale)
		}
		if img, err = decodeImg(job.Src); err != nil {
			return nil, nil, &JobError{Src: job.Src, Stage: StageDecode, Err: err}
		}
	}
	return img, boxes, nil
}

// save crops every face box out of img and encodes it under the mirrored path rel.
// A failing face does not prevent the remaining ones from being written.
func (p *Processor) save(dest billy.Filesystem, img *image.NRGBA, boxes []Box, rel string) ([]string, error) {
	var (
		outputs = make([]string, 0, len(boxes))
		errs    []error
	)
	for i, box := range boxes {
		rect := CropRect(box, img.Bounds())
		if rect.Empty() {
			errs = append(errs, fmt.Errorf("face %d %+v: %w", i+1, box, ErrEmptyCrop))
			continue
		}

		out := FaceOutputPath(rel, i, len(boxes))
		if err := encodeImg(dest, out, imaging.Crop(img, rect), p.jpegQuality()); err != nil {
			errs = append(errs, err)
			continue
		}
		outputs = append(outputs, out)
	}
	return outputs, errors.Join(errs...)
}
