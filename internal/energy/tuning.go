package energy

import "fmt"

// Tuning holds the numeric constants of the encoders. The zero value is
// replaced by DefaultTuning wherever options carry one.
type Tuning struct {
	// HoleArea is the largest background region (face connectivity) filled
	// inside an instance before its distance transform.
	HoleArea int
	// Epsilon keeps normalizations away from division by zero.
	Epsilon float64
	// PadMargin is the zero border added on every axis when padding is enabled.
	PadMargin int
	// SaturationValue replaces the distance transform of a mask without
	// background pixels.
	SaturationValue float64
	// SmoothMinArea is the smoothed-mask size at or below which smoothing is
	// discarded.
	SmoothMinArea int
	// SmoothSigma and SmoothThreshold parameterize one blur/threshold round.
	SmoothSigma     float64
	SmoothThreshold float64
	// SmoothRounds is the number of blur/threshold rounds.
	SmoothRounds int
}

// DefaultTuning returns the reference constants.
func DefaultTuning() Tuning {
	return Tuning{
		HoleArea:        16,
		Epsilon:         1e-6,
		PadMargin:       2,
		SaturationValue: 5,
		SmoothMinArea:   32,
		SmoothSigma:     2,
		SmoothThreshold: 0.5,
		SmoothRounds:    2,
	}
}

func (t Tuning) orDefault() Tuning {
	if t == (Tuning{}) {
		return DefaultTuning()
	}
	return t
}

// Validate checks that every constant is in range.
func (t Tuning) Validate() error {
	switch {
	case t.HoleArea < 0:
		return fmt.Errorf("%w: hole_area %d (must be >= 0)", ErrInvalidOption, t.HoleArea)
	case t.Epsilon <= 0:
		return fmt.Errorf("%w: epsilon %v (must be > 0)", ErrInvalidOption, t.Epsilon)
	case t.PadMargin < 0:
		return fmt.Errorf("%w: pad_margin %d (must be >= 0)", ErrInvalidOption, t.PadMargin)
	case t.SmoothMinArea < 0:
		return fmt.Errorf("%w: smooth_min_area %d (must be >= 0)", ErrInvalidOption, t.SmoothMinArea)
	case t.SmoothSigma < 0:
		return fmt.Errorf("%w: smooth_sigma %v (must be >= 0)", ErrInvalidOption, t.SmoothSigma)
	case t.SmoothRounds < 0:
		return fmt.Errorf("%w: smooth_rounds %d (must be >= 0)", ErrInvalidOption, t.SmoothRounds)
	}
	return nil
}
