package energy

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/MeKo-Tech/segenergy/internal/morph"
	"github.com/MeKo-Tech/segenergy/internal/volume"
	"gonum.org/v1/gonum/floats"
)

// InstanceOptions configures DistanceTransform.
type InstanceOptions struct {
	// BgValue replaces every element left at zero energy. Zero disables the
	// substitution.
	BgValue float64
	// Relabel splits disconnected regions that share an id before encoding.
	Relabel bool
	// Padding surrounds the map with Tuning.PadMargin background elements so
	// objects touching the frame are bounded by background.
	Padding bool
	// Resolution is the per-axis spacing. Empty means unit spacing.
	Resolution []float64
	// Erosion is the radius of the disk (2D) or ball (3D) each instance is
	// eroded with. Zero disables erosion.
	Erosion int
	// Workers bounds the number of instances encoded concurrently. Values
	// below 2 encode sequentially.
	Workers int
	Tuning  Tuning
}

// DefaultInstanceOptions returns bg value -1 with relabeling on, no padding,
// unit spacing and no erosion.
func DefaultInstanceOptions() InstanceOptions {
	return InstanceOptions{
		BgValue: -1,
		Relabel: true,
		Tuning:  DefaultTuning(),
	}
}

// Result holds the fused maps of an instance encoder.
type Result struct {
	// Distance is the fused energy in [0, 1], with BgValue on background.
	Distance volume.Array[float64]
	// Semantic counts how many instance masks cover each element. Overlapping
	// masks add up; the count is not clamped to 1.
	Semantic volume.Array[uint8]
	// Skeleton counts instance skeletons per element. Only set by the
	// skeleton-aware encoder.
	Skeleton volume.Array[uint8]
}

// DistanceTransform encodes every instance of labels as its Euclidean
// distance transform normalized to its own maximum, and fuses the instances
// by element-wise max.
//
// Each instance has holes of at most Tuning.HoleArea elements (face
// connectivity) filled and is optionally eroded before its transform.
// Instances are independent, so they are encoded concurrently when
// opts.Workers > 1 with bit-identical results.
func DistanceTransform(labels volume.Array[int64], opts InstanceOptions) (Result, error) {
	opts.Tuning = opts.Tuning.orDefault()
	if err := opts.Tuning.Validate(); err != nil {
		return Result{}, err
	}
	if opts.Erosion < 0 {
		return Result{}, fmt.Errorf("%w: erosion %d (must be >= 0)", ErrInvalidOption, opts.Erosion)
	}
	spacing, err := resolveResolution(opts.Resolution, labels.NDim())
	if err != nil {
		return Result{}, err
	}

	r := encodeRun{
		encoder: "instance",
		bgValue: opts.BgValue,
		relabel: opts.Relabel,
		padding: opts.Padding,
		workers: opts.Workers,
		margin:  max(1, opts.Tuning.HoleArea+1, opts.Erosion),
		tuning:  opts.Tuning,
	}
	return r.run(labels, instanceEnergy(spacing, opts.Erosion, opts.Tuning))
}

// instanceEnergy returns the per-instance step of DistanceTransform.
func instanceEnergy(spacing []float64, erosion int, t Tuning) instanceFunc {
	var footprint volume.Array[bool]
	if erosion > 0 {
		footprint = morph.Footprint(len(spacing), erosion)
	}
	return func(id int64, box volume.Box, mask volume.Array[bool]) (instanceLocal, error) {
		filled := morph.FillSmallHoles(mask, t.HoleArea, 1)
		if erosion > 0 {
			filled = morph.Erode(filled, footprint)
			if morph.Count(filled) == 0 {
				slog.Debug("Instance vanished after erosion", "id", id, "erosion", erosion)
				fallbacksTotal.WithLabelValues(fallbackEmptyErosion).Inc()
			}
		}

		energy, err := morph.EDT(filled, spacing)
		if err != nil {
			return instanceLocal{}, err
		}
		peak := floats.Max(energy.Data)
		for i := range energy.Data {
			energy.Data[i] /= peak + t.Epsilon
		}
		return instanceLocal{box: box, energy: energy, semantic: filled}, nil
	}
}

// encodeRun holds the steps shared by the instance encoders around the
// per-instance map.
type encodeRun struct {
	encoder  string
	bgValue  float64
	relabel  bool
	padding  bool
	workers  int
	margin   int
	tuning   Tuning
	skeleton bool
}

func (r encodeRun) run(labels volume.Array[int64], fn instanceFunc) (Result, error) {
	start := time.Now()
	defer func() { encodeDuration.WithLabelValues(r.encoder).Observe(time.Since(start).Seconds()) }()

	if r.relabel {
		labels, _ = morph.LabelComponents(labels)
	}
	if r.padding {
		labels = volume.Pad(labels, r.tuning.PadMargin)
	}

	var res Result
	if !slices.ContainsFunc(labels.Data, func(v int64) bool { return v != 0 }) {
		slog.Debug("Label map is all background", "encoder", r.encoder, "shape", labels.Shape)
		fallbacksTotal.WithLabelValues(fallbackAllBackground).Inc()
		res = fuse(labels.Shape, nil, r.skeleton)
	} else {
		locals, err := mapInstances(labels, r.margin, r.workers, fn)
		if err != nil {
			return Result{}, err
		}
		instancesEncoded.WithLabelValues(r.encoder).Add(float64(len(locals)))
		res = fuse(labels.Shape, locals, r.skeleton)
	}

	if r.bgValue != 0 {
		for i, v := range res.Distance.Data {
			if v == 0 {
				res.Distance.Data[i] = r.bgValue
			}
		}
	}
	if r.padding {
		m := r.tuning.PadMargin
		res.Distance = volume.Unpad(res.Distance, m)
		res.Semantic = volume.Unpad(res.Semantic, m)
		if r.skeleton {
			res.Skeleton = volume.Unpad(res.Skeleton, m)
		}
	}
	return res, nil
}

// resolveResolution returns unit spacing for an empty resolution and
// rejects one whose length does not match ndim.
func resolveResolution(res []float64, ndim int) ([]float64, error) {
	if len(res) == 0 {
		return unitSpacing(ndim), nil
	}
	if len(res) != ndim {
		return nil, fmt.Errorf("%w: %d values for %d axes", ErrResolutionRank, len(res), ndim)
	}
	for _, s := range res {
		if s <= 0 {
			return nil, fmt.Errorf("%w: resolution %v (must be > 0)", ErrInvalidOption, res)
		}
	}
	return slices.Clone(res), nil
}
