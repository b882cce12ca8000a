/*
Package facecrop is a batch face cropping library, which walks a directory tree of images,
detects the faces on each of them and saves a head centered crop of every face
into a destination tree mirroring the source layout.

The package provides a command line interface, supporting various flags for tuning the detector
and the worker pool. To check the supported commands type:

	$ facecrop --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"

		"github.com/esimov/facecrop"
	)

	func main() {
		det, err := facecrop.LoadPigoDetector("cascade/facefinder", facecrop.DefaultPigoOptions())
		if err != nil {
			panic(err)
		}
		p := &facecrop.Processor{
			Detector: det,
			Workers:  4,
			Scale:    0.5,
		}

		summary, err := p.Run(context.Background(), "photos", "faces")
		if err != nil {
			fmt.Printf("Error cropping faces: %s", err.Error())
			return
		}
		fmt.Printf("%d faces saved from %d images\n", summary.Crops, summary.Total)
	}
*/
package facecrop
