package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"runtime"
	"strings"

	"github.com/MeKo-Tech/segenergy/internal/common"
	"github.com/MeKo-Tech/segenergy/internal/energy"
	"github.com/MeKo-Tech/segenergy/internal/testutil"
	"github.com/MeKo-Tech/segenergy/internal/volume"
)

func main() {
	var (
		size       = flag.Int("size", 256, "height and width of the synthetic label map")
		depth      = flag.Int("depth", 0, "number of slices; 0 benchmarks a single 2D map")
		instances  = flag.Int("instances", 32, "number of disk instances per slice")
		iterations = flag.Int("iterations", 3, "number of iterations per benchmark")
		encoders   = flag.String("encoders", "instance,skeleton,semantic", "comma-separated encoders to benchmark")
		workers    = flag.Int("workers", runtime.NumCPU(), "instances encoded in parallel")
		seed       = flag.Uint64("seed", 1, "seed for the synthetic label layout")
		outputFile = flag.String("output", "", "write results as CSV to this file (optional)")
	)
	flag.Parse()

	fmt.Println("segenergy encoder benchmark")
	fmt.Println("===========================")

	labels, err := syntheticLabels(*size, *depth, *instances, *seed)
	if err != nil {
		log.Fatalf("Failed to build labels: %v", err)
	}
	fmt.Printf("Labels: shape %v, %d instances per slice, %d workers\n\n", labels.Shape, *instances, *workers)

	var results []common.BenchmarkResult
	for _, name := range strings.Split(*encoders, ",") {
		name = strings.TrimSpace(name)
		run, err := encoderFunc(name, labels, *workers)
		if err != nil {
			log.Fatalf("%v", err)
		}
		result := common.Measure(name, labels.Len(), *iterations, run)
		fmt.Println(result.String())
		results = append(results, result)
	}

	if *outputFile != "" {
		if err := saveResultsToFile(*outputFile, results); err != nil {
			log.Printf("Failed to save results to file: %v", err)
		} else {
			fmt.Printf("Results saved to: %s\n", *outputFile)
		}
	}
}

// syntheticLabels scatters disks of random radius over one slice and repeats
// it depth times. Later disks may cover earlier ones.
func syntheticLabels(size, depth, instances int, seed uint64) (volume.Array[int64], error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	maxR := max(size/8, 3)
	disks := make([]testutil.Disk, instances)
	for i := range disks {
		disks[i] = testutil.Disk{
			CY: rng.IntN(size),
			CX: rng.IntN(size),
			R:  2 + rng.IntN(maxR-1),
			ID: int64(i + 1),
		}
	}
	slice := testutil.DiskLabels(size, size, disks...)
	if depth <= 0 {
		return slice, nil
	}
	parts := make([]volume.Array[int64], depth)
	for z := range parts {
		parts[z] = slice
	}
	return volume.Stack(parts)
}

// encoderFunc returns one benchmark iteration of the named encoder. Volumes
// run the instance and semantic encoders in mode 3d and the skeleton
// encoder slice by slice.
func encoderFunc(name string, labels volume.Array[int64], workers int) (func() error, error) {
	mode := energy.Mode2D
	if labels.NDim() == 3 {
		mode = energy.Mode3D
	}
	opts := energy.DefaultEncodeOptions()
	opts.Quantize = false
	opts.Instance.Workers = workers
	opts.Skeleton.Workers = workers

	switch name {
	case "instance":
		opts.Mode = mode
		return func() error {
			_, err := energy.EDTInstance(labels, opts)
			return err
		}, nil
	case "skeleton":
		return func() error {
			_, err := energy.SDTInstance(labels, opts)
			return err
		}, nil
	case "semantic":
		sem := energy.DefaultSemanticOptions()
		sem.Mode = mode
		return func() error {
			_, err := energy.EDTSemantic(labels, sem)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unknown encoder %q (must be instance, skeleton or semantic)", name)
	}
}

func saveResultsToFile(filename string, results []common.BenchmarkResult) error {
	file, err := os.Create(filename) //nolint:gosec // G304: user-chosen output path
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	return common.WriteCSV(file, results)
}
