package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/segenergy/internal/testutil"
	"github.com/MeKo-Tech/segenergy/internal/volio"
	"github.com/MeKo-Tech/segenergy/internal/volume"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir         = flag.String("out", "testdata/labels", "output directory, relative to the project root")
		generateImages = flag.Bool("images", true, "Generate 2D label images")
		generateVolume = flag.Bool("volume", true, "Generate a 3D raw label volume")
		verbose        = flag.Bool("v", false, "Verbose output")
		help           = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic label maps for segenergy testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                 # Generate all test data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -volume=false   # Generate only images\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	dir := filepath.Join(root, *outDir)
	if err := testutil.EnsureDir(dir); err != nil {
		slog.Error("Failed to create output directory", "path", dir, "error", err)
		os.Exit(1)
	}
	if *verbose {
		slog.Info("Options", "dir", dir, "images", *generateImages, "volume", *generateVolume)
	}

	if *generateImages {
		if err := generateLabelImages(dir); err != nil {
			slog.Error("Failed to generate label images", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated label images", "dir", dir)
	}

	if *generateVolume {
		if err := generateLabelVolume(dir); err != nil {
			slog.Error("Failed to generate label volume", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated label volume", "dir", dir)
	}

	slog.Info("Test data generation completed successfully!")
}

// labelSamples returns the 2D layouts written as images.
func labelSamples() map[string]volume.Array[int64] {
	return map[string]volume.Array[int64]{
		// Separated rectangles.
		"rects": testutil.RectLabels(64, 96,
			testutil.Rect{Y0: 8, X0: 8, Y1: 40, X1: 30, ID: 1},
			testutil.Rect{Y0: 20, X0: 40, Y1: 56, X1: 60, ID: 2},
			testutil.Rect{Y0: 4, X0: 70, Y1: 24, X1: 90, ID: 3},
		),
		// Touching disks sharing a boundary.
		"touching_disks": testutil.DiskLabels(64, 64,
			testutil.Disk{CY: 32, CX: 20, R: 14, ID: 1},
			testutil.Disk{CY: 32, CX: 46, R: 14, ID: 2},
		),
		// Instances cut by the frame.
		"border": testutil.DiskLabels(48, 48,
			testutil.Disk{CY: 0, CX: 24, R: 12, ID: 7},
			testutil.Disk{CY: 30, CX: 47, R: 10, ID: 9},
		),
		// One id on two disconnected regions, split by relabeling.
		"split_label": testutil.RectLabels(32, 48,
			testutil.Rect{Y0: 4, X0: 4, Y1: 28, X1: 18, ID: 5},
			testutil.Rect{Y0: 4, X0: 30, Y1: 28, X1: 44, ID: 5},
		),
	}
}

func generateLabelImages(dir string) error {
	for name, labels := range labelSamples() {
		path := filepath.Join(dir, name+".png")
		if err := volio.SaveImage(testutil.LabelImage(labels), path); err != nil {
			return fmt.Errorf("failed to save %s: %w", name, err)
		}
		slog.Debug("Wrote label image", "path", path, "instances", volio.CountInstances(labels))
	}
	return nil
}

// generateLabelVolume writes growing disks over eight slices.
func generateLabelVolume(dir string) error {
	parts := make([]volume.Array[int64], 8)
	for z := range parts {
		parts[z] = testutil.DiskLabels(48, 48,
			testutil.Disk{CY: 16, CX: 16, R: 4 + z, ID: 1},
			testutil.Disk{CY: 34, CX: 32, R: 11 - z, ID: 2},
		)
	}
	labels, err := volume.Stack(parts)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "disks"+volio.RawExtension)
	if err := volio.SaveRaw(labels, path); err != nil {
		return fmt.Errorf("failed to save volume: %w", err)
	}
	return nil
}
