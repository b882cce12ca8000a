package facecrop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// DefaultJPEGQuality is the encoding quality of JPEG face crops.
const DefaultJPEGQuality = 95

// ErrInvalidScale is returned when the resize scale is outside of (0, 1].
var ErrInvalidScale = errors.New("resize scale must be in the (0, 1] range")

// Processor options
type Processor struct {
	Detector     Detector
	Interpolator draw.Interpolator // used for the detection downscale, BiLinear when nil
	Dest         billy.Filesystem  // rooted at the destination directory; the OS filesystem when nil
	Logger       *zap.Logger
	OnResult     func(Result) // called from the dispatching goroutine after each job
	Scale        float64      // 0 disables the detection downscale
	Workers      int          // defaults to the number of logical CPUs
	JPEGQuality  int
}

// Run walks the src directory tree and processes every supported image concurrently,
// writing the face crops into the mirrored location under dst.
// At most Workers images are processed at the same time.
//
// The returned error is reserved for failures affecting the whole batch
// (missing or unreadable source directory, cancellation). Per image failures
// and unreadable paths below the source directory are reported in the summary.
func (p *Processor) Run(ctx context.Context, src, dst string) (*Summary, error) {
	if p.Detector == nil {
		return nil, errors.New("no face detector configured")
	}
	if p.Scale < 0 || p.Scale > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidScale, p.Scale)
	}

	fs, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("failed to load the source directory: %w", err)
	}
	if !fs.IsDir() {
		return nil, fmt.Errorf("the source %s is not a directory", src)
	}

	dest := p.Dest
	if dest == nil {
		if err := os.MkdirAll(dst, 0755); err != nil {
			return nil, fmt.Errorf("unable to create the destination directory: %w", err)
		}
		dest = osfs.New(dst)
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	log := p.logger()
	log.Info("processing directory", zap.String("src", src), zap.String("dst", dst))
	log.Info("running with simultaneous workers", zap.Int("workers", workers))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	now := time.Now()
	summary := newSummary()

	// Process recursively the image files from the specified directory concurrently.
	ch := make(chan Result)
	// Written by the walking goroutine only, read back after the walk result arrives.
	skipped := func(path string, err error) {
		log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
		summary.Skipped[path] = err
	}
	paths, errc := Walk(ctx.Done(), src, SupportedExtensions, skipped)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			p.consumer(ctx, dest, Job{SrcRoot: src, DstRoot: dst, Scale: p.Scale}, paths, ch)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(ch)
		wg.Wait()
	}()

	// Consume the channel values.
	for res := range ch {
		summary.add(res)
		p.report(log, res)
		if p.OnResult != nil {
			p.OnResult(res)
		}
	}
	walkErr := <-errc
	summary.Elapsed = time.Since(now)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if walkErr != nil {
		return summary, fmt.Errorf("directory walk failed: %w", walkErr)
	}
	return summary, nil
}

// consumer reads the path names from the paths channel and runs a job for each of them.
// Every processed image produces exactly one result.
func (p *Processor) consumer(
	ctx context.Context,
	dest billy.Filesystem,
	tmpl Job,
	paths <-chan string,
	res chan<- Result,
) {
	for src := range paths {
		if ctx.Err() != nil {
			return
		}
		job := tmpl
		job.Src = src
		res <- p.process(dest, job)
	}
}

// report logs the outcome of a job.
func (p *Processor) report(log *zap.Logger, res Result) {
	log = log.With(zap.String("image", res.Src))

	switch res.Status {
	case StatusSaved:
		log.Info("image processed",
			zap.Int("faces", res.Faces),
			zap.Strings("outputs", res.Outputs),
			zap.Duration("elapsed", res.Elapsed),
		)
	case StatusNoFace:
		log.Info("no face detected", zap.Duration("elapsed", res.Elapsed))
	case StatusFailed:
		log.Warn("image processing failed",
			zap.Strings("outputs", res.Outputs),
			zap.Error(res.Err),
		)
	}
}

func (p *Processor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Processor) jpegQuality() int {
	if p.JPEGQuality <= 0 || p.JPEGQuality > 100 {
		return DefaultJPEGQuality
	}
	return p.JPEGQuality
}
