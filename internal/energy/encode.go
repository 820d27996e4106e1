package energy

import (
	"fmt"

	"github.com/MeKo-Tech/segenergy/internal/volume"
)

// EncodeOptions configures the stack encoders EDTInstance and SDTInstance.
type EncodeOptions struct {
	Mode Mode
	// Quantize adds Levels-level classes of the energy to the Encoding.
	Quantize bool
	Levels   int
	Instance InstanceOptions
	Skeleton SkeletonOptions
}

// DefaultEncodeOptions returns mode 2d with 10-level quantization. The
// skeleton encoder pads by default, the instance encoder does not.
func DefaultEncodeOptions() EncodeOptions {
	sk := DefaultSkeletonOptions()
	sk.Padding = true
	return EncodeOptions{
		Mode:     Mode2D,
		Quantize: true,
		Levels:   DefaultLevels,
		Instance: DefaultInstanceOptions(),
		Skeleton: sk,
	}
}

// Encoding is the output of a stack encoder.
type Encoding struct {
	Energy   volume.Array[float64]
	Semantic volume.Array[uint8]
	// Classes holds the quantized energy when quantization was requested.
	Classes volume.Array[int64]
}

// EDTInstance runs DistanceTransform over a label volume. In mode 3d the
// whole volume is transformed at once with opts.Instance.Resolution; in mode
// 2d every leading-axis slice is transformed independently with the in-plane
// part of the resolution. A 2D label map is a single slice.
func EDTInstance(labels volume.Array[int64], opts EncodeOptions) (Encoding, error) {
	if err := opts.Mode.validate(); err != nil {
		return Encoding{}, err
	}
	quantizer, err := opts.quantizer()
	if err != nil {
		return Encoding{}, err
	}

	if opts.Mode == Mode3D {
		res, err := DistanceTransform(labels, opts.Instance)
		if err != nil {
			return Encoding{}, err
		}
		return encoding(res, quantizer), nil
	}

	in := opts.Instance
	in.Resolution = inPlane(in.Resolution, labels.NDim())
	res, err := bySlice(labels, func(slice volume.Array[int64]) (Result, error) {
		return DistanceTransform(slice, in)
	})
	if err != nil {
		return Encoding{}, err
	}
	return encoding(res, quantizer), nil
}

// SDTInstance runs SkeletonAwareDistanceTransform over every leading-axis
// slice of a label volume. Only mode 2d is supported.
func SDTInstance(labels volume.Array[int64], opts EncodeOptions) (Encoding, error) {
	if err := opts.Mode.validate(); err != nil {
		return Encoding{}, err
	}
	if opts.Mode != Mode2D {
		return Encoding{}, fmt.Errorf("%w: skeleton-aware encoding supports only %q, got %q", ErrUnsupportedMode, Mode2D, opts.Mode)
	}
	quantizer, err := opts.quantizer()
	if err != nil {
		return Encoding{}, err
	}

	sk := opts.Skeleton
	sk.Resolution = inPlane(sk.Resolution, labels.NDim())
	res, err := bySlice(labels, func(slice volume.Array[int64]) (Result, error) {
		return SkeletonAwareDistanceTransform(slice, sk)
	})
	if err != nil {
		return Encoding{}, err
	}
	return encoding(res, quantizer), nil
}

func (o EncodeOptions) quantizer() (*Quantizer, error) {
	if !o.Quantize {
		return nil, nil
	}
	return NewQuantizer(o.Levels)
}

func encoding(res Result, q *Quantizer) Encoding {
	enc := Encoding{Energy: res.Distance, Semantic: res.Semantic}
	if q != nil {
		enc.Classes = q.QuantizeArray(res.Distance)
	}
	return enc
}

// bySlice applies fn to a 2D map directly, and to every leading-axis slice
// of a higher-rank map, restacking the results in order.
func bySlice(labels volume.Array[int64], fn func(volume.Array[int64]) (Result, error)) (Result, error) {
	if labels.NDim() <= 2 {
		return fn(labels)
	}
	n := labels.Shape[0]
	if n == 0 {
		return Result{
			Distance: volume.New[float64](labels.Shape...),
			Semantic: volume.New[uint8](labels.Shape...),
		}, nil
	}
	distances := make([]volume.Array[float64], n)
	semantics := make([]volume.Array[uint8], n)
	for i := range n {
		res, err := fn(volume.Slice(labels, i))
		if err != nil {
			return Result{}, fmt.Errorf("slice %d: %w", i, err)
		}
		distances[i], semantics[i] = res.Distance, res.Semantic
	}
	distance, err := volume.Stack(distances)
	if err != nil {
		return Result{}, err
	}
	semantic, err := volume.Stack(semantics)
	if err != nil {
		return Result{}, err
	}
	return Result{Distance: distance, Semantic: semantic}, nil
}

// inPlane drops the leading spacing of a full-rank resolution when the
// volume is processed slice by slice.
func inPlane(res []float64, ndim int) []float64 {
	if ndim > 2 && len(res) == ndim {
		return res[1:]
	}
	return res
}
