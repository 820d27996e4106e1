package cmd

import (
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/segenergy/internal/energy"
	"github.com/MeKo-Tech/segenergy/internal/testutil"
	"github.com/MeKo-Tech/segenergy/internal/volio"
	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantizeCommand_Raw(t *testing.T) {
	e, err := volume.FromData([]float64{-1, 0, 0.05, 0.5, 0.95, 1}, 2, 3)
	require.NoError(t, err)
	in := filepath.Join(t.TempDir(), "map.sgev")
	require.NoError(t, volio.SaveRaw(e, in))
	out := t.TempDir()

	output, err := executeCommand(t, "quantize", in, "--levels", "20", "--format", "raw", "-o", out)
	require.NoError(t, err, output)
	assert.Contains(t, output, "Quantized 1 of 1 input(s)")

	classes, err := volio.LoadRaw[int64](filepath.Join(out, "map_classes.sgev"))
	require.NoError(t, err)
	want, err := energy.EnergyQuantize(e, 20)
	require.NoError(t, err)
	assert.Equal(t, want.Data, classes.Data)

	m, err := volio.ReadManifest(filepath.Join(out, manifestFileName))
	require.NoError(t, err)
	assert.Equal(t, 20, m.Levels)
	assert.Equal(t, 5, m.Entries[0].Energy.Foreground)
}

func TestQuantizeCommand_Image(t *testing.T) {
	in := filepath.Join(t.TempDir(), "map.sgev")
	require.NoError(t, volio.SaveRaw(volume.Full(1.0, 4, 4), in))
	out := t.TempDir()

	_, err := executeCommand(t, "quantize", in, "-o", out)
	require.NoError(t, err)
	img := testutil.LoadGrayImage(t, filepath.Join(out, "map_classes.png"))
	assert.Equal(t, uint16(10*0x101), img.Gray16At(2, 2).Y, "energy 1 is class 10")
}

func TestQuantizeCommand_WrongElementType(t *testing.T) {
	in := filepath.Join(t.TempDir(), "labels.sgev")
	require.NoError(t, volio.SaveRaw(volume.New[int64](2, 2), in))

	_, err := executeCommand(t, "quantize", in, "-o", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 input(s) failed")
}

func TestQuantizeCommand_InvalidLevels(t *testing.T) {
	_, err := executeCommand(t, "quantize", "map.sgev", "--levels", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid quantize levels")
}
