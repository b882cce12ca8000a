package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"

	"github.com/esimov/facecrop"
	"github.com/esimov/facecrop/utils"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐┌─┐┬─┐┌─┐┌─┐
├┤ ├─┤│  ├┤ │  ├┬┘│ │├─┘
└  ┴ ┴└─┘└─┘└─┘┴└─└─┘┴

Batch face detection and head centered cropping.
    Version: %s
`

// Version indicates the current build version.
var Version = "dev"

func main() {
	// Cancel the batch on CTRL-C or SIGTERM; running jobs are allowed to finish.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	s := DefaultSettings()

	cmd := &cobra.Command{
		Use:           "facecrop",
		Short:         "Detect the faces of a directory of images and save head centered crops",
		Long:          fmt.Sprintf(HelpBanner, Version),
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ApplyEnv(cmd.Flags().Changed, os.Getenv); err != nil {
				return err
			}
			return s.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), &s)
		},
	}
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := cmd.Flags()
	flags.StringVarP(&s.Src, "src", "s", s.Src, "Source directory")
	flags.StringVarP(&s.Dst, "dst", "d", s.Dst, "Destination directory")
	flags.StringVarP(&s.Cascade, "cascade", "c", s.Cascade, "Cascade classifier (pigo facefinder file)")
	flags.IntVarP(&s.Workers, "workers", "w", s.Workers, "Number of images processed concurrently (default: number of CPUs)")
	flags.Float64Var(&s.Scale, "scale", s.Scale, "Downscale factor in (0, 1] applied before detection, faster but small faces may be missed (default: disabled)")
	flags.StringVar(&s.Interp, "interp", s.Interp, "Downscale interpolation: bilinear or nearest")
	flags.IntVar(&s.JPEGQuality, "jpeg-quality", s.JPEGQuality, "JPEG quality of the saved faces")
	flags.BoolVar(&s.Test, "test", s.Test, fmt.Sprintf("Test mode: use %s as source and %s as destination", testOrigin, testDestiny))
	flags.BoolVar(&s.Strict, "strict", s.Strict, "Exit with an error status when any image failed")
	flags.IntVar(&s.MinSize, "min-size", s.MinSize, "Minimum face size in pixels")
	flags.Float64Var(&s.Angle, "angle", s.Angle, "Plane rotated faces angle (0.0 - 1.0)")
	flags.Float64Var(&s.IoUThreshold, "iou", s.IoUThreshold, "Intersection over union threshold of overlapping detections")
	flags.Float64Var(&s.MinQuality, "quality-threshold", s.MinQuality, "Minimum detection score")
	flags.StringVar(&s.LogFormat, "log-format", s.LogFormat, "Log format: console or json")
	flags.BoolVarP(&s.Verbose, "verbose", "v", s.Verbose, "Verbose logging")
	flags.BoolVar(&s.NoProgress, "no-progress", s.NoProgress, "Hide the progress bar")

	return cmd
}

// run executes the batch described by the validated settings.
func run(ctx context.Context, s *Settings) error {
	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	utils.SetColors(isTTY)

	logger, err := utils.NewLogger(s.LogFormat, s.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger = logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("facecrop started",
		zap.String("version", Version),
		zap.String("detector", "pigo"),
		zap.Int("cpus", runtime.NumCPU()),
	)

	if s.Test {
		if err := createDirectories(s.Src, s.Dst); err != nil {
			return err
		}
	}

	det, err := facecrop.LoadPigoDetector(s.Cascade, s.PigoOptions())
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("cropping faces"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetVisibility(isTTY && !s.NoProgress),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	proc := &facecrop.Processor{
		Detector:     det,
		Interpolator: facecrop.Interpolators[s.Interp],
		Logger:       logger,
		Scale:        s.Scale,
		Workers:      s.Workers,
		JPEGQuality:  s.JPEGQuality,
		OnResult: func(facecrop.Result) {
			_ = bar.Add(1)
		},
	}

	summary, err := proc.Run(ctx, s.Src, s.Dst)
	_ = bar.Finish()
	if summary != nil {
		printSummary(os.Stderr, summary)
	}
	if err != nil {
		return err
	}
	logger.Info("processing finished")

	if s.Strict && summary.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", summary.Failed, summary.Total)
	}
	return nil
}

// printSummary displays the relevant information about the batch run.
func printSummary(w io.Writer, s *facecrop.Summary) {
	fmt.Fprintf(w, "\nImages: %d, %s, %s, %s\n",
		s.Total,
		utils.DecorateText(fmt.Sprintf("%d with faces", s.Saved), utils.SuccessMessage),
		utils.DecorateText(fmt.Sprintf("%d without faces", s.NoFace), utils.StatusMessage),
		utils.DecorateText(fmt.Sprintf("%d failed", s.Failed), failedType(s.Failed)),
	)
	fmt.Fprintf(w, "Faces saved: %s of %d detected\n",
		utils.DecorateText(fmt.Sprint(s.Crops), utils.SuccessMessage), s.Faces,
	)

	for _, src := range sortedKeys(s.Failures) {
		fmt.Fprintf(w, "\t%s %s\n\t\tReason: %v\n",
			utils.DecorateText("✘", utils.ErrorMessage), src, s.Failures[src],
		)
	}

	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "%s\n", utils.DecorateText(fmt.Sprintf("Unreadable paths skipped: %d", len(s.Skipped)), utils.WarningMessage))
		for _, path := range sortedKeys(s.Skipped) {
			fmt.Fprintf(w, "\t%s %s\n\t\tReason: %v\n",
				utils.DecorateText("!", utils.WarningMessage), path, s.Skipped[path],
			)
		}
	}

	fmt.Fprintf(w, "Execution time: %s\n", utils.DecorateText(utils.FormatTime(s.Elapsed), utils.SuccessMessage))
}

func failedType(n int) utils.MessageType {
	if n > 0 {
		return utils.ErrorMessage
	}
	return utils.DefaultMessage
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
