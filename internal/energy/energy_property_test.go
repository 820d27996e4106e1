package energy

import (
	"math"
	"slices"
	"testing"

	"github.com/MeKo-Tech/segenergy/internal/morph"
	"github.com/MeKo-Tech/segenergy/internal/volume"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gonum.org/v1/gonum/floats"
)

// TestQuantize_RangeAndMonotone verifies classes stay in [0, levels] and
// never decrease as energy increases.
func TestQuantize_RangeAndMonotone(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("quantization is bounded and non-decreasing", prop.ForAll(
		func(levels int, a, b float64) bool {
			q, err := NewQuantizer(levels)
			if err != nil {
				return false
			}
			lo, hi := min(a, b), max(a, b)
			qa, qb := q.Quantize(lo), q.Quantize(hi)
			if qa < 0 || qb > int64(levels) {
				return false
			}
			return qa <= qb
		},
		gen.IntRange(1, 64),
		gen.Float64Range(-2, 2),
		gen.Float64Range(-2, 2),
	))

	properties.TestingRun(t)
}

// TestQuantize_Endpoints verifies -1 maps to 0 and 1 maps to levels.
func TestQuantize_Endpoints(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("background is class 0, full energy is the top class", prop.ForAll(
		func(levels int) bool {
			q, err := NewQuantizer(levels)
			if err != nil {
				return false
			}
			return q.Quantize(-1) == 0 && q.Quantize(1) == int64(levels)
		},
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t)
}

// TestDecodeMax_OneHot verifies a one-hot column at k decodes to k/C.
func TestDecodeMax_OneHot(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("one-hot decodes to k / classes", prop.ForAll(
		func(classes, k int) bool {
			k %= classes
			values := volume.New[float64](classes)
			values.Data[k] = 1
			out, err := DecodeQuantize(ChannelFirstLogits{Values: values}, PolicyMax)
			if err != nil {
				return false
			}
			return out.Data[0] == float64(k)/float64(classes)
		},
		gen.IntRange(1, 64),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

// TestDecodeMean_WithinCenters verifies the mean policy stays inside the
// range of the bin centers.
func TestDecodeMean_WithinCenters(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("mean decode lies in [-0.1, 0.9]", prop.ForAll(
		func(logits []float64) bool {
			values, err := volume.FromData(logits, 11)
			if err != nil {
				return false
			}
			out, err := DecodeQuantize(ChannelFirstLogits{Values: values}, PolicyMean)
			if err != nil {
				return false
			}
			return out.Data[0] >= -0.1-1e-12 && out.Data[0] <= 0.9+1e-12
		},
		gen.SliceOfN(11, gen.Float64Range(-50, 50)),
	))

	properties.TestingRun(t)
}

// TestEDTSemantic_SaturatedIsConstant verifies a map without background
// encodes to tanh(5) everywhere.
func TestEDTSemantic_SaturatedIsConstant(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all-foreground maps saturate", prop.ForAll(
		func(h, w int, id int64) bool {
			out, err := EDTSemantic(volume.Full(id, h, w), DefaultSemanticOptions())
			if err != nil {
				return false
			}
			for _, v := range out.Data {
				if math.Abs(v-math.Tanh(5)) > 1e-12 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.IntRange(1, 12),
		gen.Int64Range(1, 1000),
	))

	properties.TestingRun(t)
}

// randomLabels turns noise into a sparse 2D label map with ids 1..3.
func randomLabels(h, w int, noise []int) volume.Array[int64] {
	labels := volume.New[int64](h, w)
	if len(noise) == 0 {
		return labels
	}
	for i := range labels.Data {
		if v := noise[i%len(noise)]; v <= 3 {
			labels.Data[i] = int64(v)
		}
	}
	return labels
}

// fullFrameDistance encodes every instance on the whole map, without
// cropping, for comparison with DistanceTransform.
func fullFrameDistance(labels volume.Array[int64], erosion int, tn Tuning) volume.Array[float64] {
	labels, _ = morph.LabelComponents(labels)
	ids, _ := instanceBoxes(labels)
	dist := volume.New[float64](labels.Shape...)
	for _, id := range ids {
		mask := volume.Map(labels, func(v int64) bool { return v == id })
		filled := morph.FillSmallHoles(mask, tn.HoleArea, 1)
		if erosion > 0 {
			filled = morph.Erode(filled, morph.Footprint(labels.NDim(), erosion))
		}
		d, _ := morph.EDT(filled, nil)
		peak := floats.Max(d.Data)
		for i, v := range d.Data {
			dist.Data[i] = max(dist.Data[i], v/(peak+tn.Epsilon))
		}
	}
	for i, v := range dist.Data {
		if v == 0 {
			dist.Data[i] = -1
		}
	}
	return dist
}

// TestDistanceTransform_CropMatchesFullFrame verifies that encoding each
// instance on its grown bounding box gives the same map as encoding it on
// the whole frame.
func TestDistanceTransform_CropMatchesFullFrame(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("cropped encoding equals full-frame encoding", prop.ForAll(
		func(noise []int, erosion, holeArea int) bool {
			labels := randomLabels(18, 22, noise)
			opts := DefaultInstanceOptions()
			opts.Erosion = erosion
			opts.Tuning.HoleArea = holeArea

			res, err := DistanceTransform(labels, opts)
			if err != nil {
				return false
			}
			return slices.Equal(fullFrameDistance(labels, erosion, opts.Tuning).Data, res.Distance.Data)
		},
		gen.SliceOfN(18*22, gen.IntRange(0, 9)),
		gen.IntRange(0, 2),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

// TestDistanceTransform_OrderIndependent verifies that renumbering ids does
// not change the result.
func TestDistanceTransform_OrderIndependent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("id order does not matter", prop.ForAll(
		func(noise []int) bool {
			labels := randomLabels(16, 16, noise)
			reversed := volume.Map(labels, func(v int64) int64 {
				if v == 0 {
					return 0
				}
				return 4 - v
			})
			opts := DefaultInstanceOptions()
			opts.Relabel = false
			a, errA := DistanceTransform(labels, opts)
			b, errB := DistanceTransform(reversed, opts)
			if errA != nil || errB != nil {
				return false
			}
			return slices.Equal(a.Distance.Data, b.Distance.Data) && slices.Equal(a.Semantic.Data, b.Semantic.Data)
		},
		gen.SliceOfN(16*16, gen.IntRange(0, 6)),
	))

	properties.TestingRun(t)
}

// TestDistanceTransform_EnergyBounds verifies energy stays in [-1, 1].
func TestDistanceTransform_EnergyBounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("energy is within [-1, 1]", prop.ForAll(
		func(noise []int, padding bool) bool {
			opts := DefaultInstanceOptions()
			opts.Padding = padding
			res, err := DistanceTransform(randomLabels(12, 12, noise), opts)
			if err != nil {
				return false
			}
			for _, v := range res.Distance.Data {
				if v < -1 || v > 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(144, gen.IntRange(0, 6)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
