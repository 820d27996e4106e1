package energy

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/segenergy/internal/morph"
	"github.com/MeKo-Tech/segenergy/internal/volume"
)

// anisotropicResolution is the voxel spacing assumed for 3D semantic volumes.
var anisotropicResolution = []float64{6, 1, 1}

// SemanticOptions configures EDTSemantic.
type SemanticOptions struct {
	Mode Mode
	// AlphaFore and AlphaBack divide the interior and exterior distances.
	AlphaFore float64
	AlphaBack float64
	Tuning    Tuning
}

// DefaultSemanticOptions returns mode 2d with decay divisors 8 and 50.
func DefaultSemanticOptions() SemanticOptions {
	return SemanticOptions{
		Mode:      Mode2D,
		AlphaFore: 8,
		AlphaBack: 50,
		Tuning:    DefaultTuning(),
	}
}

func (o SemanticOptions) validate() error {
	if err := o.Mode.validate(); err != nil {
		return err
	}
	if o.AlphaFore <= 0 {
		return fmt.Errorf("%w: alpha_fore %v (must be > 0)", ErrInvalidOption, o.AlphaFore)
	}
	if o.AlphaBack <= 0 {
		return fmt.Errorf("%w: alpha_back %v (must be > 0)", ErrInvalidOption, o.AlphaBack)
	}
	return o.Tuning.orDefault().Validate()
}

// EDTSemantic computes the asymmetric signed distance of a binary
// foreground/background split: tanh(edt(fore)/alphaFore - edt(back)/alphaBack).
//
// 3D input in mode 2d is processed slice by slice with unit spacing. 3D input
// in mode 3d uses the anisotropic (6, 1, 1) spacing; everything else uses
// unit spacing. A mask without background pixels contributes the constant
// Tuning.SaturationValue instead of a distance.
func EDTSemantic(labels volume.Array[int64], opts SemanticOptions) (volume.Array[float64], error) {
	if err := opts.validate(); err != nil {
		return volume.Array[float64]{}, err
	}
	opts.Tuning = opts.Tuning.orDefault()
	start := time.Now()
	defer func() { encodeDuration.WithLabelValues("semantic").Observe(time.Since(start).Seconds()) }()

	if opts.Mode == Mode2D && labels.NDim() == 3 {
		parts := make([]volume.Array[float64], labels.Shape[0])
		for i := range parts {
			out, err := semanticField(volume.Slice(labels, i), unitSpacing(2), opts)
			if err != nil {
				return volume.Array[float64]{}, fmt.Errorf("slice %d: %w", i, err)
			}
			parts[i] = out
		}
		if len(parts) == 0 {
			return volume.New[float64](labels.Shape...), nil
		}
		return volume.Stack(parts)
	}

	spacing := unitSpacing(labels.NDim())
	if opts.Mode == Mode3D && labels.NDim() == 3 {
		spacing = anisotropicResolution
	}
	return semanticField(labels, spacing, opts)
}

func semanticField(labels volume.Array[int64], spacing []float64, opts SemanticOptions) (volume.Array[float64], error) {
	fore := volume.Map(labels, func(v int64) bool { return v != 0 })
	back := volume.Map(labels, func(v int64) bool { return v == 0 })

	foreEDT, err := scaledEDT(fore, spacing, opts.AlphaFore, opts.Tuning)
	if err != nil {
		return volume.Array[float64]{}, err
	}
	backEDT, err := scaledEDT(back, spacing, opts.AlphaBack, opts.Tuning)
	if err != nil {
		return volume.Array[float64]{}, err
	}
	for i, b := range backEDT.Data {
		foreEDT.Data[i] = math.Tanh(foreEDT.Data[i] - b)
	}
	return foreEDT, nil
}

// scaledEDT returns edt(mask)/alpha, or the saturation constant when the
// mask has no background pixels.
func scaledEDT(mask volume.Array[bool], spacing []float64, alpha float64, t Tuning) (volume.Array[float64], error) {
	if mask.Len() > 0 && morph.Count(mask) == mask.Len() {
		slog.Debug("Mask has no background, saturating", "shape", mask.Shape, "value", t.SaturationValue)
		fallbacksTotal.WithLabelValues(fallbackSaturated).Inc()
		return volume.Full(t.SaturationValue, mask.Shape...), nil
	}
	d, err := morph.EDT(mask, spacing)
	if err != nil {
		return volume.Array[float64]{}, err
	}
	for i := range d.Data {
		d.Data[i] /= alpha
	}
	return d, nil
}

func unitSpacing(ndim int) []float64 {
	s := make([]float64, ndim)
	for i := range s {
		s[i] = 1
	}
	return s
}
