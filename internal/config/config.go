//nolint:lll
package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/segenergy/internal/energy"
)

// Encoder names accepted by Encode.Encoder.
const (
	EncoderInstance = "instance"
	EncoderSkeleton = "skeleton"
	EncoderSemantic = "semantic"
)

// Decode layouts accepted by Decode.Layout.
const (
	LayoutChannelFirst = "channel_first"
	LayoutBatched      = "batched"
)

// Output formats accepted by Output.Format.
const (
	FormatPNG  = "png"
	FormatTIFF = "tiff"
	FormatRaw  = "raw"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validEncoders  = []string{EncoderInstance, EncoderSkeleton, EncoderSemantic}
	validLayouts   = []string{LayoutChannelFirst, LayoutBatched}
	validFormats   = []string{FormatPNG, FormatTIFF, FormatRaw}
)

// Config represents the complete configuration for the segenergy tool.
// It is loaded from configuration files, environment variables and
// command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Encode   EncodeConfig   `mapstructure:"encode" yaml:"encode" json:"encode"`
	Semantic SemanticConfig `mapstructure:"semantic" yaml:"semantic" json:"semantic"`
	Skeleton SkeletonConfig `mapstructure:"skeleton" yaml:"skeleton" json:"skeleton"`
	Quantize QuantizeConfig `mapstructure:"quantize" yaml:"quantize" json:"quantize"`
	Decode   DecodeConfig   `mapstructure:"decode" yaml:"decode" json:"decode"`
	Tuning   TuningConfig   `mapstructure:"tuning" yaml:"tuning" json:"tuning"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// EncodeConfig contains the settings shared by the label encoders.
type EncodeConfig struct {
	Encoder    string    `mapstructure:"encoder" yaml:"encoder" json:"encoder"`
	Mode       string    `mapstructure:"mode" yaml:"mode" json:"mode"`
	BgValue    float64   `mapstructure:"bg_value" yaml:"bg_value" json:"bg_value"`
	Relabel    bool      `mapstructure:"relabel" yaml:"relabel" json:"relabel"`
	Padding    bool      `mapstructure:"padding" yaml:"padding" json:"padding"`
	Resolution []float64 `mapstructure:"resolution" yaml:"resolution" json:"resolution"`
	Erosion    int       `mapstructure:"erosion" yaml:"erosion" json:"erosion"`
	Workers    int       `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// SemanticConfig contains the binary-mask encoder settings.
type SemanticConfig struct {
	AlphaFore float64 `mapstructure:"alpha_fore" yaml:"alpha_fore" json:"alpha_fore"`
	AlphaBack float64 `mapstructure:"alpha_back" yaml:"alpha_back" json:"alpha_back"`
}

// SkeletonConfig contains the skeleton-aware encoder settings.
type SkeletonConfig struct {
	Alpha              float64 `mapstructure:"alpha" yaml:"alpha" json:"alpha"`
	Smooth             bool    `mapstructure:"smooth" yaml:"smooth" json:"smooth"`
	SmoothSkeletonOnly bool    `mapstructure:"smooth_skeleton_only" yaml:"smooth_skeleton_only" json:"smooth_skeleton_only"`
	Padding            bool    `mapstructure:"padding" yaml:"padding" json:"padding"`
}

// QuantizeConfig contains energy quantization settings.
type QuantizeConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Levels  int  `mapstructure:"levels" yaml:"levels" json:"levels"`
}

// DecodeConfig contains class-distribution decoding settings.
type DecodeConfig struct {
	Policy string `mapstructure:"policy" yaml:"policy" json:"policy"`
	Layout string `mapstructure:"layout" yaml:"layout" json:"layout"`
}

// TuningConfig mirrors energy.Tuning.
type TuningConfig struct {
	HoleArea        int     `mapstructure:"hole_area" yaml:"hole_area" json:"hole_area"`
	Epsilon         float64 `mapstructure:"epsilon" yaml:"epsilon" json:"epsilon"`
	PadMargin       int     `mapstructure:"pad_margin" yaml:"pad_margin" json:"pad_margin"`
	SaturationValue float64 `mapstructure:"saturation_value" yaml:"saturation_value" json:"saturation_value"`
	SmoothMinArea   int     `mapstructure:"smooth_min_area" yaml:"smooth_min_area" json:"smooth_min_area"`
	SmoothSigma     float64 `mapstructure:"smooth_sigma" yaml:"smooth_sigma" json:"smooth_sigma"`
	SmoothThreshold float64 `mapstructure:"smooth_threshold" yaml:"smooth_threshold" json:"smooth_threshold"`
	SmoothRounds    int     `mapstructure:"smooth_rounds" yaml:"smooth_rounds" json:"smooth_rounds"`
}

// OutputConfig contains output settings.
type OutputConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Format   string `mapstructure:"format" yaml:"format" json:"format"`
	Manifest bool   `mapstructure:"manifest" yaml:"manifest" json:"manifest"`
}

// MetricsConfig contains metrics export settings.
type MetricsConfig struct {
	// Textfile is a node-exporter textfile the run's metrics are written to.
	Textfile string `mapstructure:"textfile" yaml:"textfile" json:"textfile"`
}

// DefaultConfig returns a configuration with the reference encoder settings.
func DefaultConfig() Config {
	sem := energy.DefaultSemanticOptions()
	sk := energy.DefaultSkeletonOptions()
	in := energy.DefaultInstanceOptions()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Encode: EncodeConfig{
			Encoder: EncoderInstance,
			Mode:    string(energy.Mode2D),
			BgValue: in.BgValue,
			Relabel: in.Relabel,
			Padding: in.Padding,
			Erosion: in.Erosion,
			Workers: runtime.NumCPU(),
		},
		Semantic: SemanticConfig{
			AlphaFore: sem.AlphaFore,
			AlphaBack: sem.AlphaBack,
		},
		Skeleton: SkeletonConfig{
			Alpha:              sk.Alpha,
			Smooth:             sk.Smooth,
			SmoothSkeletonOnly: sk.SmoothSkeletonOnly,
			Padding:            true,
		},
		Quantize: QuantizeConfig{
			Enabled: true,
			Levels:  energy.DefaultLevels,
		},
		Decode: DecodeConfig{
			Policy: string(energy.PolicyMax),
			Layout: LayoutChannelFirst,
		},
		Tuning: fromTuning(energy.DefaultTuning()),
		Output: OutputConfig{
			Dir:      ".",
			Format:   FormatPNG,
			Manifest: true,
		},
	}
}

func fromTuning(t energy.Tuning) TuningConfig {
	return TuningConfig{
		HoleArea:        t.HoleArea,
		Epsilon:         t.Epsilon,
		PadMargin:       t.PadMargin,
		SaturationValue: t.SaturationValue,
		SmoothMinArea:   t.SmoothMinArea,
		SmoothSigma:     t.SmoothSigma,
		SmoothThreshold: t.SmoothThreshold,
		SmoothRounds:    t.SmoothRounds,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !slices.Contains(validEncoders, c.Encode.Encoder) {
		return fmt.Errorf("invalid encoder: %s (must be one of: %s)", c.Encode.Encoder, strings.Join(validEncoders, ", "))
	}
	if _, err := energy.ParseMode(c.Encode.Mode); err != nil {
		return fmt.Errorf("invalid encode mode: %w", err)
	}
	if c.Encode.Erosion < 0 {
		return fmt.Errorf("invalid erosion: %d (must be non-negative)", c.Encode.Erosion)
	}
	if c.Encode.Workers < 0 {
		return fmt.Errorf("invalid workers: %d (must be non-negative)", c.Encode.Workers)
	}
	for _, r := range c.Encode.Resolution {
		if r <= 0 {
			return fmt.Errorf("invalid resolution: %v (values must be positive)", c.Encode.Resolution)
		}
	}
	if c.Semantic.AlphaFore <= 0 || c.Semantic.AlphaBack <= 0 {
		return fmt.Errorf("invalid semantic alphas: %v/%v (must be positive)", c.Semantic.AlphaFore, c.Semantic.AlphaBack)
	}
	if c.Skeleton.Alpha <= 0 {
		return fmt.Errorf("invalid skeleton alpha: %v (must be positive)", c.Skeleton.Alpha)
	}
	if c.Quantize.Levels < 1 {
		return fmt.Errorf("invalid quantize levels: %d (must be at least 1)", c.Quantize.Levels)
	}
	if _, err := energy.ParsePolicy(c.Decode.Policy); err != nil {
		return fmt.Errorf("invalid decode policy: %w", err)
	}
	if !slices.Contains(validLayouts, c.Decode.Layout) {
		return fmt.Errorf("invalid decode layout: %s (must be one of: %s)", c.Decode.Layout, strings.Join(validLayouts, ", "))
	}
	if !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if err := c.ToTuning().Validate(); err != nil {
		return fmt.Errorf("invalid tuning: %w", err)
	}
	return nil
}

// ToTuning converts the tuning section to energy.Tuning.
func (c *Config) ToTuning() energy.Tuning {
	t := c.Tuning
	return energy.Tuning{
		HoleArea:        t.HoleArea,
		Epsilon:         t.Epsilon,
		PadMargin:       t.PadMargin,
		SaturationValue: t.SaturationValue,
		SmoothMinArea:   t.SmoothMinArea,
		SmoothSigma:     t.SmoothSigma,
		SmoothThreshold: t.SmoothThreshold,
		SmoothRounds:    t.SmoothRounds,
	}
}

// ToSemanticOptions converts the configuration to energy.SemanticOptions.
func (c *Config) ToSemanticOptions() energy.SemanticOptions {
	return energy.SemanticOptions{
		Mode:      energy.Mode(c.Encode.Mode),
		AlphaFore: c.Semantic.AlphaFore,
		AlphaBack: c.Semantic.AlphaBack,
		Tuning:    c.ToTuning(),
	}
}

// ToInstanceOptions converts the configuration to energy.InstanceOptions.
func (c *Config) ToInstanceOptions() energy.InstanceOptions {
	return energy.InstanceOptions{
		BgValue:    c.Encode.BgValue,
		Relabel:    c.Encode.Relabel,
		Padding:    c.Encode.Padding,
		Resolution: slices.Clone(c.Encode.Resolution),
		Erosion:    c.Encode.Erosion,
		Workers:    c.Encode.Workers,
		Tuning:     c.ToTuning(),
	}
}

// ToSkeletonOptions converts the configuration to energy.SkeletonOptions.
func (c *Config) ToSkeletonOptions() energy.SkeletonOptions {
	return energy.SkeletonOptions{
		BgValue:            c.Encode.BgValue,
		Relabel:            c.Encode.Relabel,
		Padding:            c.Skeleton.Padding,
		Resolution:         slices.Clone(c.Encode.Resolution),
		Workers:            c.Encode.Workers,
		Alpha:              c.Skeleton.Alpha,
		Smooth:             c.Skeleton.Smooth,
		SmoothSkeletonOnly: c.Skeleton.SmoothSkeletonOnly,
		Tuning:             c.ToTuning(),
	}
}

// ToEncodeOptions converts the configuration to energy.EncodeOptions.
func (c *Config) ToEncodeOptions() energy.EncodeOptions {
	return energy.EncodeOptions{
		Mode:     energy.Mode(c.Encode.Mode),
		Quantize: c.Quantize.Enabled,
		Levels:   c.Quantize.Levels,
		Instance: c.ToInstanceOptions(),
		Skeleton: c.ToSkeletonOptions(),
	}
}
