// Command miststitch stitches a grid of overlapping microscope tile images
// into a single mosaic, inferring tile translations via phase correlation,
// refining them, and positioning every tile on a shared global coordinate
// frame.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/usnistgov-mist/miststitch/internal/config"
	"github.com/usnistgov-mist/miststitch/internal/pipeline"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var showVersion bool
	fs := flag.NewFlagSet("miststitch", flag.ExitOnError)
	fs.BoolVar(&showVersion, "version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: miststitch [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Stitch a grid of overlapping tile images into a positioned mosaic.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	// config.Parse registers the remaining domain flags on fs and parses
	// os.Args[1:], so --version must be checked against a pre-scan instead
	// of fs.Parse's own return, since Parse also runs Validate.
	for _, a := range os.Args[1:] {
		if a == "-version" || a == "--version" {
			fmt.Printf("miststitch %s (commit %s)\n", version, commit)
			os.Exit(0)
		}
	}

	cfg, err := config.Parse(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(1)
	}

	if err := pipeline.Run(cfg); err != nil {
		log.Fatalf("stitching failed: %v", err)
	}
}
