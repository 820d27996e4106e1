// Package energy converts instance and semantic label maps into
// distance-transform energy maps, quantizes them into ordinal classes and
// decodes predicted class distributions back into scalar energy.
//
// Every encoder is a pure function of its inputs: outputs are freshly
// allocated and the label map is never modified.
package energy

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMode is returned for a mode other than "2d" or "3d".
	ErrInvalidMode = errors.New("energy: invalid mode")
	// ErrUnsupportedMode is returned when an encoder does not implement a valid mode.
	ErrUnsupportedMode = errors.New("energy: unsupported mode")
	// ErrInvalidPolicy is returned for a decode policy other than "max" or "mean".
	ErrInvalidPolicy = errors.New("energy: invalid decode policy")
	// ErrUnsupportedContainer is returned when the decoder input is neither
	// BatchedLogits nor ChannelFirstLogits.
	ErrUnsupportedContainer = errors.New("energy: unsupported logits container")
	// ErrInvalidLevels is returned for a quantization level count below 1.
	ErrInvalidLevels = errors.New("energy: invalid quantization levels")
	// ErrClassCount is returned when the class axis does not match the mean-policy bin centers.
	ErrClassCount = errors.New("energy: class axis length mismatch")
	// ErrResolutionRank is returned when a resolution vector does not match the label rank.
	ErrResolutionRank = errors.New("energy: resolution length does not match label rank")
	// ErrInvalidOption is returned for out-of-range numeric options.
	ErrInvalidOption = errors.New("energy: invalid option")
)

// Mode selects between slice-wise and volumetric processing.
type Mode string

const (
	// Mode2D processes every leading-axis slice independently.
	Mode2D Mode = "2d"
	// Mode3D processes the whole volume at once.
	Mode3D Mode = "3d"
)

// ParseMode validates a mode literal.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if err := m.validate(); err != nil {
		return "", err
	}
	return m, nil
}

func (m Mode) validate() error {
	switch m {
	case Mode2D, Mode3D:
		return nil
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidMode, string(m), Mode2D, Mode3D)
	}
}

// Policy selects how class distributions are decoded into energy.
type Policy string

const (
	// PolicyMax decodes to argmax / number of classes.
	PolicyMax Policy = "max"
	// PolicyMean decodes to the softmax expectation over fixed bin centers.
	PolicyMean Policy = "mean"
)

// ParsePolicy validates a decode policy literal.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	if err := p.validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p Policy) validate() error {
	switch p {
	case PolicyMax, PolicyMean:
		return nil
	default:
		return fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidPolicy, string(p), PolicyMax, PolicyMean)
	}
}
