package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/segenergy/internal/config"
	"github.com/MeKo-Tech/segenergy/internal/energy"
	"github.com/MeKo-Tech/segenergy/internal/volio"
	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/spf13/cobra"
)

// encodeCmd converts label maps into energy maps.
var encodeCmd = &cobra.Command{
	Use:   "encode [files...]",
	Short: "Encode label maps into distance-transform energy maps",
	Long: `Encode instance or semantic label maps into energy maps.

Inputs are lossless label images (PNG, TIFF, BMP) or raw volumes (.sgev).
Every input is encoded on its own unless --stack joins the images into one
(Z, H, W) volume.

Encoders:
  instance  per-instance normalized distance transform (2d slices or 3d)
  skeleton  skeleton-aware distance transform (2d only)
  semantic  signed foreground/background distance, tanh-squashed

Examples:
  segenergy encode labels.png
  segenergy encode labels.png --encoder skeleton --alpha 1.0 --format tiff
  segenergy encode z*.png --stack --mode 3d --resolution 6,1,1 --format raw`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runEncodeCommand,
}

func init() {
	rootCmd.AddCommand(encodeCmd)

	f := encodeCmd.Flags()
	f.String("encoder", config.EncoderInstance, "encoder (instance, skeleton, semantic)")
	f.String("mode", string(energy.Mode2D), "processing mode (2d, 3d)")
	f.Float64("bg-value", -1, "energy written on background elements")
	f.Bool("relabel", true, "split disconnected regions of one label into separate instances")
	f.Bool("padding", false, "zero-pad every axis before the instance transform")
	f.Float64Slice("resolution", nil, "per-axis element spacing, e.g. 6,1,1")
	f.Int("erosion", 0, "erode every instance with a disk or ball of this radius")
	f.Int("workers", runtime.NumCPU(), "instances transformed in parallel within one map")
	f.Float64("alpha", 0.8, "skeleton energy exponent")
	f.Bool("smooth", true, "smooth instance contours before skeletonization")
	f.Bool("smooth-skeleton-only", true, "use the smoothed contour for the skeleton only")
	f.Float64("alpha-fore", 8, "semantic foreground distance scale")
	f.Float64("alpha-back", 50, "semantic background distance scale")
	f.Bool("quantize", true, "also write quantized class maps")
	f.Int("levels", energy.DefaultLevels, "number of quantization levels")
	f.Bool("stack", false, "treat all image inputs as the slices of one volume")
	addInputFlags(encodeCmd)
	addOutputFlags(encodeCmd)
}

// configToEncodeConfig applies changed encode flags on top of the loaded
// configuration. CLI flags override config file values.
func configToEncodeConfig(base *config.Config, cmd *cobra.Command) (*config.Config, error) {
	cfg := *base
	f := cmd.Flags()

	if f.Changed("encoder") {
		cfg.Encode.Encoder, _ = f.GetString("encoder")
	}
	if f.Changed("mode") {
		cfg.Encode.Mode, _ = f.GetString("mode")
	}
	if f.Changed("bg-value") {
		cfg.Encode.BgValue, _ = f.GetFloat64("bg-value")
	}
	if f.Changed("relabel") {
		cfg.Encode.Relabel, _ = f.GetBool("relabel")
	}
	if f.Changed("padding") {
		cfg.Encode.Padding, _ = f.GetBool("padding")
		cfg.Skeleton.Padding = cfg.Encode.Padding
	}
	if f.Changed("resolution") {
		cfg.Encode.Resolution, _ = f.GetFloat64Slice("resolution")
	}
	if f.Changed("erosion") {
		cfg.Encode.Erosion, _ = f.GetInt("erosion")
	}
	if f.Changed("workers") {
		cfg.Encode.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("alpha") {
		cfg.Skeleton.Alpha, _ = f.GetFloat64("alpha")
	}
	if f.Changed("smooth") {
		cfg.Skeleton.Smooth, _ = f.GetBool("smooth")
	}
	if f.Changed("smooth-skeleton-only") {
		cfg.Skeleton.SmoothSkeletonOnly, _ = f.GetBool("smooth-skeleton-only")
	}
	if f.Changed("alpha-fore") {
		cfg.Semantic.AlphaFore, _ = f.GetFloat64("alpha-fore")
	}
	if f.Changed("alpha-back") {
		cfg.Semantic.AlphaBack, _ = f.GetFloat64("alpha-back")
	}
	if f.Changed("quantize") {
		cfg.Quantize.Enabled, _ = f.GetBool("quantize")
	}
	if f.Changed("levels") {
		cfg.Quantize.Levels, _ = f.GetInt("levels")
	}
	applyOutputFlags(&cfg, cmd)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// encodeJob is one encoder invocation: a single input, or all inputs when
// stacking.
type encodeJob struct {
	name  string
	paths []string
}

func encodeJobs(paths []string, stack bool) ([]encodeJob, error) {
	if !stack {
		jobs := make([]encodeJob, len(paths))
		for i, p := range paths {
			jobs[i] = encodeJob{name: p, paths: []string{p}}
		}
		return jobs, nil
	}
	for _, p := range paths {
		if !volio.IsSupportedLabelImage(p) {
			return nil, fmt.Errorf("--stack needs label images, got %s", p)
		}
	}
	return []encodeJob{{name: paths[0], paths: paths}}, nil
}

func (j encodeJob) load() (volume.Array[int64], error) {
	if len(j.paths) > 1 {
		return volio.LoadLabelStack(j.paths)
	}
	if strings.EqualFold(filepath.Ext(j.paths[0]), volio.RawExtension) {
		return volio.LoadRaw[int64](j.paths[0])
	}
	return volio.LoadLabels(j.paths[0])
}

func (j encodeJob) stem() string {
	if len(j.paths) > 1 {
		return outputStem(j.name) + "_stack"
	}
	return outputStem(j.name)
}

// encodedMaps holds the maps produced for one job.
type encodedMaps struct {
	energy   volume.Array[float64]
	semantic volume.Array[uint8]
	classes  volume.Array[int64]
	// lo is the energy value rendered as black in image output.
	lo float64
}

// encodeLabels runs the configured encoder. Semantic maps are signed and
// are never quantized.
func encodeLabels(labels volume.Array[int64], cfg *config.Config) (encodedMaps, error) {
	switch cfg.Encode.Encoder {
	case config.EncoderSemantic:
		e, err := energy.EDTSemantic(labels, cfg.ToSemanticOptions())
		if err != nil {
			return encodedMaps{}, err
		}
		return encodedMaps{energy: e, lo: -1}, nil
	case config.EncoderSkeleton:
		enc, err := energy.SDTInstance(labels, cfg.ToEncodeOptions())
		if err != nil {
			return encodedMaps{}, err
		}
		return encodedMaps{energy: enc.Energy, semantic: enc.Semantic, classes: enc.Classes}, nil
	default:
		enc, err := energy.EDTInstance(labels, cfg.ToEncodeOptions())
		if err != nil {
			return encodedMaps{}, err
		}
		return encodedMaps{energy: enc.Energy, semantic: enc.Semantic, classes: enc.Classes}, nil
	}
}

// writeEncoded writes the maps of one job and returns the written paths.
func writeEncoded(maps encodedMaps, stem string, cfg *config.Config) ([]string, error) {
	dir, format := cfg.Output.Dir, cfg.Output.Format
	outputs, err := saveEnergy(maps.energy, maps.lo, dir, stem+"_energy", format)
	if err != nil {
		return outputs, err
	}
	if maps.classes.Len() > 0 {
		paths, err := saveClasses(maps.classes, dir, stem+"_classes", format)
		outputs = append(outputs, paths...)
		if err != nil {
			return outputs, err
		}
	}
	if maps.semantic.Len() > 0 && format == config.FormatRaw {
		path := filepath.Join(dir, stem+"_semantic"+volio.RawExtension)
		if err := volio.SaveRaw(maps.semantic, path); err != nil {
			return outputs, err
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

// encodeInputPatterns selects label images and raw label volumes inside
// directory inputs.
func encodeInputPatterns() []string {
	patterns := slices.Clone(rawInputPatterns)
	for _, ext := range volio.SupportedLabelExtensions {
		patterns = append(patterns, "*"+ext)
	}
	return patterns
}

func runEncodeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := configToEncodeConfig(GetConfig(), cmd)
	if err != nil {
		return err
	}
	inputs, err := expandInputs(cmd, args, encodeInputPatterns())
	if err != nil {
		return err
	}
	stack, _ := cmd.Flags().GetBool("stack")
	jobs, err := encodeJobs(inputs, stack)
	if err != nil {
		return err
	}
	if err := prepareOutputDir(cfg); err != nil {
		return err
	}

	m := newManifest("encode", cfg)
	m.Encoder = cfg.Encode.Encoder
	m.Mode = cfg.Encode.Mode
	if cfg.Quantize.Enabled && cfg.Encode.Encoder != config.EncoderSemantic {
		m.Levels = cfg.Quantize.Levels
	}

	for _, job := range jobs {
		entry, err := encodeOne(job, cfg)
		if err != nil {
			slog.Error("Failed to encode input", "input", job.name, "error", err)
			m.Failures = append(m.Failures, fmt.Sprintf("%s: %v", job.name, err))
			if errors.Is(err, energy.ErrInvalidOption) {
				break
			}
			continue
		}
		m.Entries = append(m.Entries, entry)
	}
	return finishRun(cmd.OutOrStdout(), cfg, m, "Encoded", len(jobs))
}

func encodeOne(job encodeJob, cfg *config.Config) (volio.Entry, error) {
	start := time.Now()
	labels, err := job.load()
	if err != nil {
		return volio.Entry{}, err
	}
	maps, err := encodeLabels(labels, cfg)
	if err != nil {
		return volio.Entry{}, err
	}
	outputs, err := writeEncoded(maps, job.stem(), cfg)
	if err != nil {
		return volio.Entry{}, err
	}

	entry := volio.Entry{
		Input:     job.name,
		Outputs:   outputs,
		Shape:     labels.Shape,
		Instances: volio.CountInstances(labels),
		Energy:    volio.Summarize(maps.energy, cfg.Encode.BgValue),
	}
	if maps.classes.Len() > 0 {
		entry.Classes = volio.ClassHistogram(maps.classes)
	}
	slog.Info("Encoded labels",
		"input", job.name,
		"shape", labels.Shape,
		"instances", entry.Instances,
		"outputs", len(outputs),
		"duration_ms", time.Since(start).Milliseconds())
	return entry, nil
}
