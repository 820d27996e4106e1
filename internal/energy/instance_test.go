package energy

import (
	"testing"

	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceTransform_Square(t *testing.T) {
	labels := volume.New[int64](9, 9)
	fillRect(labels, 1, 2, 2, 7, 7)

	res, err := DistanceTransform(labels, DefaultInstanceOptions())
	require.NoError(t, err)

	for y := range 9 {
		for x := range 9 {
			inside := y >= 2 && y < 7 && x >= 2 && x < 7
			if inside {
				assert.Equal(t, uint8(1), res.Semantic.At(y, x))
				assert.Positive(t, res.Distance.At(y, x))
			} else {
				assert.Equal(t, uint8(0), res.Semantic.At(y, x))
				assert.Equal(t, -1.0, res.Distance.At(y, x))
			}
		}
	}
	// Values decrease from the center toward the edge.
	assert.Greater(t, res.Distance.At(4, 4), res.Distance.At(3, 4))
	assert.Greater(t, res.Distance.At(3, 4), res.Distance.At(2, 4))
	assert.InDelta(t, 1.0, res.Distance.At(4, 4), 1e-5)
	assert.InDelta(t, 1.0/3, res.Distance.At(2, 2), 1e-5)
}

func TestDistanceTransform_AllBackground(t *testing.T) {
	before := testutil.ToFloat64(fallbacksTotal.WithLabelValues(fallbackAllBackground))

	res, err := DistanceTransform(volume.New[int64](4, 4), DefaultInstanceOptions())
	require.NoError(t, err)
	assert.Equal(t, volume.Full(-1.0, 4, 4).Data, res.Distance.Data)
	assert.Equal(t, make([]uint8, 16), res.Semantic.Data)
	assert.InDelta(t, before+1, testutil.ToFloat64(fallbacksTotal.WithLabelValues(fallbackAllBackground)), 0)
}

func TestDistanceTransform_ZeroBgValueKeepsZeros(t *testing.T) {
	opts := DefaultInstanceOptions()
	opts.BgValue = 0
	res, err := DistanceTransform(volume.New[int64](3, 5), opts)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 15), res.Distance.Data)
}

func TestDistanceTransform_Padding(t *testing.T) {
	labels := volume.New[int64](7, 12)
	fillRect(labels, 1, 0, 0, 7, 3)

	res, err := DistanceTransform(labels, DefaultInstanceOptions())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Distance.At(3, 0), 1e-5, "frame is not background without padding")

	opts := DefaultInstanceOptions()
	opts.Padding = true
	res, err = DistanceTransform(labels, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 12}, res.Distance.Shape)
	assert.Equal(t, []int{7, 12}, res.Semantic.Shape)
	assert.InDelta(t, 0.5, res.Distance.At(3, 0), 1e-5)
	assert.InDelta(t, 1.0, res.Distance.At(3, 1), 1e-5)
}

func TestDistanceTransform_Erosion(t *testing.T) {
	labels := volume.New[int64](9, 9)
	fillRect(labels, 1, 2, 2, 7, 7)

	opts := DefaultInstanceOptions()
	opts.Erosion = 1
	res, err := DistanceTransform(labels, opts)
	require.NoError(t, err)

	want := volume.New[uint8](9, 9)
	for y := 3; y < 6; y++ {
		for x := 3; x < 6; x++ {
			want.Set(1, y, x)
		}
	}
	assert.Equal(t, want.Data, res.Semantic.Data)
	assert.Equal(t, -1.0, res.Distance.At(2, 2))
	assert.InDelta(t, 1.0, res.Distance.At(4, 4), 1e-5)
}

func TestDistanceTransform_ErosionRemovesInstance(t *testing.T) {
	labels := volume.New[int64](9, 9)
	labels.Set(1, 4, 4)

	opts := DefaultInstanceOptions()
	opts.Erosion = 1
	before := testutil.ToFloat64(fallbacksTotal.WithLabelValues(fallbackEmptyErosion))
	res, err := DistanceTransform(labels, opts)
	require.NoError(t, err)
	assert.Equal(t, volume.Full(-1.0, 9, 9).Data, res.Distance.Data)
	assert.Equal(t, make([]uint8, 81), res.Semantic.Data)
	assert.InDelta(t, before+1, testutil.ToFloat64(fallbacksTotal.WithLabelValues(fallbackEmptyErosion)), 0)
}

func TestDistanceTransform_FillsSmallHoles(t *testing.T) {
	labels := volume.New[int64](11, 11)
	fillRect(labels, 1, 1, 1, 10, 10)
	labels.Set(0, 5, 5)

	res, err := DistanceTransform(labels, DefaultInstanceOptions())
	require.NoError(t, err)
	assert.Equal(t, uint8(1), res.Semantic.At(5, 5))
	assert.InDelta(t, 1.0, res.Distance.At(5, 5), 1e-5)
}

func TestDistanceTransform_Relabel(t *testing.T) {
	labels := volume.New[int64](9, 16)
	fillRect(labels, 1, 1, 1, 4, 4)  // 3x3, peak distance 2
	fillRect(labels, 1, 1, 8, 6, 13) // 5x5, peak distance 3

	res, err := DistanceTransform(labels, DefaultInstanceOptions())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Distance.At(2, 2), 1e-5, "each component is normalized on its own")

	opts := DefaultInstanceOptions()
	opts.Relabel = false
	res, err = DistanceTransform(labels, opts)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, res.Distance.At(2, 2), 1e-5, "one id shares one maximum")
}

func TestDistanceTransform_OverlapAddsSemantic(t *testing.T) {
	// The hole of instance 1 is instance 2, so hole filling makes them overlap.
	labels := labelsFromRows(t,
		".......",
		".11111.",
		".11111.",
		".11211.",
		".11111.",
		".11111.",
		".......",
	)
	opts := DefaultInstanceOptions()
	opts.Relabel = false
	res, err := DistanceTransform(labels, opts)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), res.Semantic.At(3, 3))
	assert.Equal(t, uint8(1), res.Semantic.At(1, 1))
}

func TestDistanceTransform_Anisotropic3D(t *testing.T) {
	labels := volume.New[int64](5, 5, 5)
	for z := 1; z < 4; z++ {
		for y := 1; y < 4; y++ {
			for x := 1; x < 4; x++ {
				labels.Set(7, z, y, x)
			}
		}
	}
	opts := DefaultInstanceOptions()
	opts.Resolution = []float64{4, 1, 1}
	res, err := DistanceTransform(labels, opts)
	require.NoError(t, err)
	// In-plane distances dominate: the center is 2 from the side, 8 from the top.
	assert.InDelta(t, 1.0, res.Distance.At(2, 2, 2), 1e-5)
	assert.InDelta(t, 0.5, res.Distance.At(2, 1, 2), 1e-5)
	assert.InDelta(t, 1.0, res.Distance.At(1, 2, 2), 1e-5)
}

func TestDistanceTransform_Errors(t *testing.T) {
	opts := DefaultInstanceOptions()
	opts.Resolution = []float64{1, 1, 1}
	_, err := DistanceTransform(volume.New[int64](3, 3), opts)
	require.ErrorIs(t, err, ErrResolutionRank)

	opts = DefaultInstanceOptions()
	opts.Erosion = -1
	_, err = DistanceTransform(volume.New[int64](3, 3), opts)
	require.ErrorIs(t, err, ErrInvalidOption)

	opts = DefaultInstanceOptions()
	opts.Resolution = []float64{1, 0}
	_, err = DistanceTransform(volume.New[int64](3, 3), opts)
	require.ErrorIs(t, err, ErrInvalidOption)
}

func TestDistanceTransform_ParallelMatchesSequential(t *testing.T) {
	labels := manyInstances()

	seq, err := DistanceTransform(labels, DefaultInstanceOptions())
	require.NoError(t, err)

	opts := DefaultInstanceOptions()
	opts.Workers = 8
	par, err := DistanceTransform(labels, opts)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestDistanceTransform_DoesNotModifyInput(t *testing.T) {
	labels := manyInstances()
	orig := labels.Clone()
	opts := DefaultInstanceOptions()
	opts.Padding = true
	_, err := DistanceTransform(labels, opts)
	require.NoError(t, err)
	assert.Equal(t, orig, labels)
}

func TestDistanceTransform_CountsInstances(t *testing.T) {
	before := testutil.ToFloat64(instancesEncoded.WithLabelValues("instance"))
	_, err := DistanceTransform(manyInstances(), DefaultInstanceOptions())
	require.NoError(t, err)
	assert.InDelta(t, before+20, testutil.ToFloat64(instancesEncoded.WithLabelValues("instance")), 0)
}

func TestEDTInstance_SliceWiseAndQuantized(t *testing.T) {
	slice := volume.New[int64](9, 9)
	fillRect(slice, 1, 2, 2, 7, 7)
	labels, err := volume.Stack([]volume.Array[int64]{slice, volume.New[int64](9, 9)})
	require.NoError(t, err)

	enc, err := EDTInstance(labels, DefaultEncodeOptions())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 9, 9}, enc.Energy.Shape)
	assert.Equal(t, []int{2, 9, 9}, enc.Classes.Shape)

	single, err := DistanceTransform(slice, DefaultInstanceOptions())
	require.NoError(t, err)
	assert.Equal(t, single.Distance.Data, volume.Slice(enc.Energy, 0).Data)
	assert.Equal(t, volume.Full(-1.0, 9, 9).Data, volume.Slice(enc.Energy, 1).Data)

	assert.Equal(t, int64(0), enc.Classes.At(0, 0, 0))
	assert.Equal(t, int64(10), enc.Classes.At(0, 4, 4))
	assert.Equal(t, int64(4), enc.Classes.At(0, 2, 2))
}

func TestEDTInstance_VolumeMode(t *testing.T) {
	labels := volume.New[int64](5, 5, 5)
	for z := 1; z < 4; z++ {
		for y := 1; y < 4; y++ {
			for x := 1; x < 4; x++ {
				labels.Set(2, z, y, x)
			}
		}
	}
	opts := DefaultEncodeOptions()
	opts.Mode = Mode3D
	opts.Quantize = false
	enc, err := EDTInstance(labels, opts)
	require.NoError(t, err)
	assert.Empty(t, enc.Classes.Data)
	assert.InDelta(t, 1.0, enc.Energy.At(2, 2, 2), 1e-5)
	assert.InDelta(t, 0.5, enc.Energy.At(1, 2, 2), 1e-5)
	assert.Equal(t, uint8(1), enc.Semantic.At(1, 1, 1))
}

func TestEDTInstance_Errors(t *testing.T) {
	opts := DefaultEncodeOptions()
	opts.Mode = "volume"
	_, err := EDTInstance(volume.New[int64](2, 2), opts)
	require.ErrorIs(t, err, ErrInvalidMode)

	opts = DefaultEncodeOptions()
	opts.Levels = 0
	_, err = EDTInstance(volume.New[int64](2, 2), opts)
	require.ErrorIs(t, err, ErrInvalidLevels)
}
