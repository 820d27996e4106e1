package energy

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/segenergy/internal/morph"
	"github.com/MeKo-Tech/segenergy/internal/volume"
)

// SkeletonOptions configures SkeletonAwareDistanceTransform.
type SkeletonOptions struct {
	BgValue    float64
	Relabel    bool
	Padding    bool
	Resolution []float64
	Workers    int
	// Alpha is the exponent applied to the skeleton-relative energy. Larger
	// values concentrate high energy near the skeleton.
	Alpha float64
	// Smooth runs SmoothEdge on every instance before skeletonization.
	Smooth bool
	// SmoothSkeletonOnly restricts the smoothed contour to the skeleton
	// input; otherwise it also replaces the instance mask.
	SmoothSkeletonOnly bool
	Tuning             Tuning
}

// DefaultSkeletonOptions returns alpha 0.8 with skeleton-only smoothing.
func DefaultSkeletonOptions() SkeletonOptions {
	return SkeletonOptions{
		BgValue:            -1,
		Relabel:            true,
		Alpha:              0.8,
		Smooth:             true,
		SmoothSkeletonOnly: true,
		Tuning:             DefaultTuning(),
	}
}

// SmoothEdge smooths the contour of mask with t.SmoothRounds rounds of
// Gaussian blur (t.SmoothSigma) followed by re-thresholding at
// t.SmoothThreshold.
func SmoothEdge(mask volume.Array[bool], t Tuning) volume.Array[bool] {
	out := mask.Clone()
	for range t.SmoothRounds {
		out = morph.Threshold(morph.GaussianBlur(morph.ToField(out), t.SmoothSigma), t.SmoothThreshold)
	}
	return out
}

// SkeletonAwareDistanceTransform encodes every instance of a 2D label map
// relative to its skeleton:
//
//	energy = (b / (b + s + eps))^alpha
//
// where b is the distance to the instance boundary and s the distance to
// the instance skeleton. Instances are fused by element-wise max as in
// DistanceTransform.
//
// When smoothing collapses an instance to at most Tuning.SmoothMinArea
// elements the unsmoothed mask is used instead.
func SkeletonAwareDistanceTransform(labels volume.Array[int64], opts SkeletonOptions) (Result, error) {
	if labels.NDim() != 2 {
		return Result{}, fmt.Errorf("%w: skeleton-aware transform needs a 2D label map, got %d axes", ErrUnsupportedMode, labels.NDim())
	}
	opts.Tuning = opts.Tuning.orDefault()
	if err := opts.Tuning.Validate(); err != nil {
		return Result{}, err
	}
	if opts.Alpha <= 0 {
		return Result{}, fmt.Errorf("%w: alpha %v (must be > 0)", ErrInvalidOption, opts.Alpha)
	}
	spacing, err := resolveResolution(opts.Resolution, labels.NDim())
	if err != nil {
		return Result{}, err
	}

	r := encodeRun{
		encoder:  "skeleton",
		bgValue:  opts.BgValue,
		relabel:  opts.Relabel,
		padding:  opts.Padding,
		workers:  opts.Workers,
		margin:   max(1, opts.Tuning.HoleArea+1),
		tuning:   opts.Tuning,
		skeleton: true,
	}
	return r.run(labels, skeletonEnergy(spacing, opts))
}

// skeletonEnergy returns the per-instance step of SkeletonAwareDistanceTransform.
func skeletonEnergy(spacing []float64, opts SkeletonOptions) instanceFunc {
	t := opts.Tuning
	return func(id int64, box volume.Box, mask volume.Array[bool]) (instanceLocal, error) {
		filled := morph.FillSmallHoles(mask, t.HoleArea, 1)
		binary := filled

		if opts.Smooth {
			smoothed := SmoothEdge(filled, t)
			switch {
			case morph.Count(smoothed) <= t.SmoothMinArea:
				slog.Debug("Smoothing collapsed instance, using unsmoothed mask",
					"id", id, "area", morph.Count(filled), "min_area", t.SmoothMinArea)
				fallbacksTotal.WithLabelValues(fallbackSmoothCollapse).Inc()
			case opts.SmoothSkeletonOnly:
				binary = intersect(smoothed, filled)
			default:
				filled = smoothed
				binary = smoothed
			}
		}
		if morph.Count(binary) == 0 {
			slog.Debug("Skeleton input is empty, using instance mask", "id", id)
			fallbacksTotal.WithLabelValues(fallbackEmptySkeleton).Inc()
			binary = filled
		}

		skeleton, err := morph.Skeletonize(binary)
		if err != nil {
			return instanceLocal{}, err
		}
		boundary, err := morph.EDT(filled, spacing)
		if err != nil {
			return instanceLocal{}, err
		}
		toSkeleton, err := morph.EDT(volume.Map(skeleton, func(v bool) bool { return !v }), spacing)
		if err != nil {
			return instanceLocal{}, err
		}

		energy := volume.New[float64](mask.Shape...)
		for i, in := range filled.Data {
			if !in {
				continue
			}
			b := boundary.Data[i]
			energy.Data[i] = math.Pow(b/(b+toSkeleton.Data[i]+t.Epsilon), opts.Alpha)
		}
		return instanceLocal{box: box, energy: energy, semantic: filled, skeleton: skeleton}, nil
	}
}

func intersect(a, b volume.Array[bool]) volume.Array[bool] {
	out := a.Clone()
	for i, v := range b.Data {
		out.Data[i] = out.Data[i] && v
	}
	return out
}
