package facecrop

import (
	"fmt"
	"time"
)

// Status is the outcome of a single image job.
type Status int

const (
	// StatusSaved means at least one face was found and every crop was written.
	StatusSaved Status = iota
	// StatusNoFace means the image was decoded but the detector found nothing.
	StatusNoFace
	// StatusFailed means the job stopped on an error, see Result.Err.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSaved:
		return "saved"
	case StatusNoFace:
		return "no-face"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result holds the relevant information about the processing of one image.
type Result struct {
	Src     string
	Outputs []string // written face crops, in detector order
	Faces   int
	Status  Status
	Err     error
	Elapsed time.Duration
}

// JobError annotates a job failure with the image and the step it failed in.
type JobError struct {
	Src   string
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *JobError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Src, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *JobError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Job steps reported in JobError.Stage.
const (
	StageDecode = "decode"
	StageDetect = "detect"
	StageSave   = "save"
)

// Summary aggregates the job outcomes of a batch run.
type Summary struct {
	Total    int
	Saved    int
	NoFace   int
	Failed   int
	Faces    int // detected
	Crops    int // written
	Failures map[string]error // keyed by source path
	Skipped  map[string]error // unreadable paths left out of the walk
	Elapsed  time.Duration
}

func newSummary() *Summary {
	return &Summary{
		Failures: make(map[string]error),
		Skipped:  make(map[string]error),
	}
}

// add accounts one job outcome. Not safe for concurrent use,
// the dispatcher calls it from a single goroutine.
func (s *Summary) add(res Result) {
	s.Total++
	s.Faces += res.Faces
	s.Crops += len(res.Outputs)

	switch res.Status {
	case StatusSaved:
		s.Saved++
	case StatusNoFace:
		s.NoFace++
	case StatusFailed:
		s.Failed++
		s.Failures[res.Src] = res.Err
	}
}
