package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// TestNewLoader tests loader creation.
func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if loader.GetViper() != viper.GetViper() {
		t.Error("NewLoader() should use the global viper instance")
	}
}

// TestLoadWithNoConfigFile tests loading with no config file present.
func TestLoadWithNoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Quantize.Levels != 10 {
		t.Errorf("Expected default levels 10, got %d", cfg.Quantize.Levels)
	}
}

// TestLoadWithValidYAMLFile tests loading from a valid YAML file.
func TestLoadWithValidYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "segenergy.yaml")

	yamlContent := `
log_level: debug
encode:
  encoder: skeleton
  mode: 2d
  resolution: [1, 1]
  workers: 3
skeleton:
  alpha: 1.5
tuning:
  hole_area: 8
output:
  format: tiff
`
	if err := os.WriteFile(configFile, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	loader := newTestLoader()
	cfg, err := loader.LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.Encode.Encoder != EncoderSkeleton {
		t.Errorf("Expected encoder skeleton, got %s", cfg.Encode.Encoder)
	}
	if len(cfg.Encode.Resolution) != 2 || cfg.Encode.Resolution[1] != 1 {
		t.Errorf("Expected resolution [1 1], got %v", cfg.Encode.Resolution)
	}
	if cfg.Encode.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Encode.Workers)
	}
	if cfg.Skeleton.Alpha != 1.5 {
		t.Errorf("Expected skeleton alpha 1.5, got %v", cfg.Skeleton.Alpha)
	}
	if cfg.ToTuning().HoleArea != 8 {
		t.Errorf("Expected hole area 8, got %d", cfg.Tuning.HoleArea)
	}
	// Unset keys keep their defaults.
	if cfg.Tuning.SmoothMinArea != 32 {
		t.Errorf("Expected default smooth min area 32, got %d", cfg.Tuning.SmoothMinArea)
	}
	if !cfg.Skeleton.Smooth {
		t.Error("Expected default smoothing to stay enabled")
	}
	if loader.GetConfigFileUsed() != configFile {
		t.Errorf("Expected config file %s, got %s", configFile, loader.GetConfigFileUsed())
	}
}

// TestLoadWithEnvironmentVariables tests environment variable overrides.
func TestLoadWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("SEGENERGY_ENCODE_MODE", "3d")
	t.Setenv("SEGENERGY_QUANTIZE_LEVELS", "20")
	t.Setenv("SEGENERGY_DECODE_POLICY", "mean")

	cfg, err := newTestLoader().Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Encode.Mode != "3d" {
		t.Errorf("Expected mode 3d from environment, got %s", cfg.Encode.Mode)
	}
	if cfg.Quantize.Levels != 20 {
		t.Errorf("Expected 20 levels from environment, got %d", cfg.Quantize.Levels)
	}
	if cfg.Decode.Policy != "mean" {
		t.Errorf("Expected policy mean from environment, got %s", cfg.Decode.Policy)
	}
}

// TestLoadWithInvalidConfig tests that invalid values fail validation.
func TestLoadWithInvalidConfig(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "segenergy.yaml")
	if err := os.WriteFile(configFile, []byte("encode:\n  mode: 4d\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := newTestLoader().LoadWithFile(configFile)
	if err == nil {
		t.Fatal("LoadWithFile() expected validation error")
	}
	if !strings.Contains(err.Error(), "configuration validation failed") {
		t.Errorf("Unexpected error: %v", err)
	}

	cfg, err := newTestLoader().LoadWithFileWithoutValidation(configFile)
	if err != nil {
		t.Fatalf("LoadWithFileWithoutValidation() unexpected error: %v", err)
	}
	if cfg.Encode.Mode != "4d" {
		t.Errorf("Expected unvalidated mode 4d, got %s", cfg.Encode.Mode)
	}
}

// TestLoadWithMissingFile tests that an explicit missing file is an error.
func TestLoadWithMissingFile(t *testing.T) {
	_, err := newTestLoader().LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected missing file error, got %v", err)
	}
}

// TestLoadWithMalformedFile tests that unparsable YAML is reported.
func TestLoadWithMalformedFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "segenergy.yaml")
	if err := os.WriteFile(configFile, []byte("encode: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	_, err := newTestLoader().LoadWithFile(configFile)
	if err == nil || !strings.Contains(err.Error(), "error reading config file") {
		t.Errorf("Expected read error, got %v", err)
	}
}

// TestGenerateDefaultConfigFile tests writing and re-reading the defaults.
func TestGenerateDefaultConfigFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "generated.yaml")
	if err := GenerateDefaultConfigFile(configFile); err != nil {
		t.Fatalf("GenerateDefaultConfigFile() unexpected error: %v", err)
	}

	cfg, err := newTestLoader().LoadWithFile(configFile)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	defaults := DefaultConfig()
	if cfg.Encode.Mode != defaults.Encode.Mode {
		t.Errorf("Expected mode %s, got %s", defaults.Encode.Mode, cfg.Encode.Mode)
	}
	if cfg.Tuning != defaults.Tuning {
		t.Errorf("Expected tuning %+v, got %+v", defaults.Tuning, cfg.Tuning)
	}
	if cfg.Skeleton != defaults.Skeleton {
		t.Errorf("Expected skeleton %+v, got %+v", defaults.Skeleton, cfg.Skeleton)
	}
}

// TestGetConfigSearchPaths tests the search path list.
func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	paths := GetConfigSearchPaths()
	if paths[0] != "." {
		t.Errorf("Expected current directory first, got %s", paths[0])
	}
	if paths[len(paths)-1] != "/etc/segenergy" {
		t.Errorf("Expected /etc/segenergy last, got %s", paths[len(paths)-1])
	}
	found := false
	for _, p := range paths {
		if p == filepath.Join("/tmp/xdg", "segenergy") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected XDG path in %v", paths)
	}
}
