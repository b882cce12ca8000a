package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/esimov/facecrop"
	"github.com/esimov/facecrop/utils"
)

// Fixed directories used by the test mode, relative to the working directory.
const (
	testOrigin  = "test/origin"
	testDestiny = "test/destiny"
)

// Settings holds all runtime settings. It is populated by DefaultSettings,
// then by the command line flags and finally by the FACECROP_* environment
// variables for the flags left unset.
type Settings struct {
	// Paths.
	Src     string
	Dst     string
	Cascade string

	// Batch.
	Workers     int     // Default: 0, meaning the number of logical CPUs.
	Scale       float64 // Default: 0, detection runs on the full resolution image.
	Interp      string  // Default: "bilinear".
	JPEGQuality int     // Default: 95.
	Test        bool    // Use testOrigin and testDestiny as source and destination.
	Strict      bool    // Exit with an error status when any image failed.

	// Detector tuning.
	MinSize      int
	Angle        float64
	IoUThreshold float64
	MinQuality   float64

	// Display and logging.
	LogFormat  string // Default: "console".
	Verbose    bool
	NoProgress bool
}

// DefaultSettings returns the settings used when no flag is given.
func DefaultSettings() Settings {
	det := facecrop.DefaultPigoOptions()
	return Settings{
		Interp:       "bilinear",
		JPEGQuality:  facecrop.DefaultJPEGQuality,
		MinSize:      det.MinSize,
		Angle:        det.Angle,
		IoUThreshold: det.IoUThreshold,
		MinQuality:   float64(det.MinQuality),
		LogFormat:    utils.LogConsole,
	}
}

// envBindings maps flag names to the environment variables read as fallback.
var envBindings = map[string]string{
	"src":     "FACECROP_SRC",
	"dst":     "FACECROP_DST",
	"workers": "FACECROP_WORKERS",
	"scale":   "FACECROP_SCALE",
	"test":    "FACECROP_TEST",
	"cascade": "FACECROP_CASCADE",
}

// ApplyEnv fills in the settings whose flag was not set explicitly
// from the environment. changed reports whether a flag was set on the command line.
func (s *Settings) ApplyEnv(changed func(flag string) bool, getenv func(string) string) error {
	for flag, key := range envBindings {
		if changed(flag) {
			continue
		}
		val := strings.TrimSpace(getenv(key))
		if val == "" {
			continue
		}

		var err error
		switch flag {
		case "src":
			s.Src = val
		case "dst":
			s.Dst = val
		case "cascade":
			s.Cascade = val
		case "workers":
			s.Workers, err = strconv.Atoi(val)
		case "scale":
			s.Scale, err = strconv.ParseFloat(val, 64)
		case "test":
			s.Test, err = strconv.ParseBool(val)
		}
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", key, val, err)
		}
	}
	return nil
}

// Validate checks the settings for consistency. In test mode the
// source and destination directories are replaced by the fixed test ones.
func (s *Settings) Validate() error {
	if s.Test {
		s.Src, s.Dst = testOrigin, testDestiny
	}

	var errs []string
	if s.Src == "" {
		errs = append(errs, "a source directory is required (--src)")
	}
	if s.Dst == "" {
		errs = append(errs, "a destination directory is required (--dst)")
	}
	if s.Src != "" && s.Dst != "" && isSubPath(s.Src, s.Dst) {
		errs = append(errs, "the destination directory must not be inside the source directory")
	}
	if s.Cascade == "" {
		errs = append(errs, "a face classifier is required (--cascade)")
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Sprintf("invalid worker count %d", s.Workers))
	}
	if s.Scale < 0 || s.Scale > 1 {
		errs = append(errs, fmt.Sprintf("%v: got %v", facecrop.ErrInvalidScale, s.Scale))
	}
	if _, ok := facecrop.Interpolators[s.Interp]; !ok {
		errs = append(errs, fmt.Sprintf("unknown interpolator %q (bilinear, nearest)", s.Interp))
	}
	if s.JPEGQuality < 1 || s.JPEGQuality > 100 {
		errs = append(errs, fmt.Sprintf("jpeg quality must be between 1 and 100, got %d", s.JPEGQuality))
	}
	if s.MinSize <= 0 {
		errs = append(errs, fmt.Sprintf("invalid minimum face size %d", s.MinSize))
	}
	if s.Angle < 0 || s.Angle > 1 {
		errs = append(errs, fmt.Sprintf("the face angle must be between 0.0 and 1.0, got %v", s.Angle))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// PigoOptions returns the detector options derived from the settings.
func (s *Settings) PigoOptions() facecrop.PigoOptions {
	opts := facecrop.DefaultPigoOptions()
	opts.MinSize = s.MinSize
	opts.Angle = s.Angle
	opts.IoUThreshold = s.IoUThreshold
	opts.MinQuality = float32(s.MinQuality)
	return opts
}

// createDirectories creates the given directories in case they do not exist.
func createDirectories(paths ...string) error {
	for _, path := range paths {
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("unable to create %s: %w", path, err)
		}
	}
	return nil
}

// isSubPath reports whether path is located inside (or is) the root directory.
func isSubPath(root, path string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
