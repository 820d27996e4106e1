package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "segenergy"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "SEGENERGY"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so flag bindings
// made by the CLI are honored.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on a dedicated viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables and defaults,
// and validates the result.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithFile loads configuration from a specific file path. An empty path
// searches the standard locations, where a missing file is not an error.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithFileWithoutValidation is LoadWithFile without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults and environment only.
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// encode.bg_value -> SEGENERGY_ENCODE_BG_VALUE
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	// Global settings
	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	// Encoder defaults
	l.v.SetDefault("encode.encoder", defaults.Encode.Encoder)
	l.v.SetDefault("encode.mode", defaults.Encode.Mode)
	l.v.SetDefault("encode.bg_value", defaults.Encode.BgValue)
	l.v.SetDefault("encode.relabel", defaults.Encode.Relabel)
	l.v.SetDefault("encode.padding", defaults.Encode.Padding)
	l.v.SetDefault("encode.resolution", defaults.Encode.Resolution)
	l.v.SetDefault("encode.erosion", defaults.Encode.Erosion)
	l.v.SetDefault("encode.workers", defaults.Encode.Workers)

	l.v.SetDefault("semantic.alpha_fore", defaults.Semantic.AlphaFore)
	l.v.SetDefault("semantic.alpha_back", defaults.Semantic.AlphaBack)

	l.v.SetDefault("skeleton.alpha", defaults.Skeleton.Alpha)
	l.v.SetDefault("skeleton.smooth", defaults.Skeleton.Smooth)
	l.v.SetDefault("skeleton.smooth_skeleton_only", defaults.Skeleton.SmoothSkeletonOnly)
	l.v.SetDefault("skeleton.padding", defaults.Skeleton.Padding)

	// Quantize / decode defaults
	l.v.SetDefault("quantize.enabled", defaults.Quantize.Enabled)
	l.v.SetDefault("quantize.levels", defaults.Quantize.Levels)
	l.v.SetDefault("decode.policy", defaults.Decode.Policy)
	l.v.SetDefault("decode.layout", defaults.Decode.Layout)

	// Tuning defaults
	l.v.SetDefault("tuning.hole_area", defaults.Tuning.HoleArea)
	l.v.SetDefault("tuning.epsilon", defaults.Tuning.Epsilon)
	l.v.SetDefault("tuning.pad_margin", defaults.Tuning.PadMargin)
	l.v.SetDefault("tuning.saturation_value", defaults.Tuning.SaturationValue)
	l.v.SetDefault("tuning.smooth_min_area", defaults.Tuning.SmoothMinArea)
	l.v.SetDefault("tuning.smooth_sigma", defaults.Tuning.SmoothSigma)
	l.v.SetDefault("tuning.smooth_threshold", defaults.Tuning.SmoothThreshold)
	l.v.SetDefault("tuning.smooth_rounds", defaults.Tuning.SmoothRounds)

	// Output defaults
	l.v.SetDefault("output.dir", defaults.Output.Dir)
	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.manifest", defaults.Output.Manifest)
	l.v.SetDefault("metrics.textfile", defaults.Metrics.Textfile)
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes the default configuration to filename,
// or to segenergy.yaml when filename is empty.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "segenergy"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "segenergy"))
	}

	paths = append(paths, "/etc/segenergy")

	return paths
}
