package cmd

import (
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/segenergy/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segenergy.yaml")

	output, err := executeCommand(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Wrote default configuration")

	cfg, err := config.NewLoaderWithViper(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.EncoderInstance, cfg.Encode.Encoder)

	_, err = executeCommand(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeCommand(t, "config", "init", path, "--force")
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	output, err := executeCommand(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "encoder: instance")
	assert.Contains(t, output, "hole_area: 16")
}

func TestConfigToEncodeConfig_FlagOverrides(t *testing.T) {
	base := config.DefaultConfig()
	base.Quantize.Levels = 4
	resetFlags(rootCmd)
	cfg, err := configToEncodeConfig(&base, encodeCmd)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Quantize.Levels)

	require.NoError(t, encodeCmd.Flags().Set("levels", "7"))
	cfg, err = configToEncodeConfig(&base, encodeCmd)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Quantize.Levels, "flags override config values")
	assert.Equal(t, 4, base.Quantize.Levels, "the loaded config is not modified")
}
