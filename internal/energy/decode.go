package energy

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/segenergy/internal/volume"
	"gonum.org/v1/gonum/floats"
)

// meanCenters are the energy values the mean policy assigns to the 11
// classes: 0.1*(k-1) for k = 0..10.
var meanCenters = func() []float64 {
	c := make([]float64, 11)
	for k := range c {
		c[k] = 0.1 * float64(k-1)
	}
	return c
}()

// Logits is a class-score volume accepted by DecodeQuantize. It is
// implemented only by BatchedLogits and ChannelFirstLogits.
type Logits interface {
	classAxis() int
}

// BatchedLogits holds scores shaped (B, C, ...): the class axis is second.
type BatchedLogits struct {
	Values volume.Array[float64]
}

func (BatchedLogits) classAxis() int { return 1 }

// ChannelFirstLogits holds scores shaped (C, ...): the class axis is first.
type ChannelFirstLogits struct {
	Values volume.Array[float64]
}

func (ChannelFirstLogits) classAxis() int { return 0 }

// DecodeQuantize maps class scores back to scalar energy, dropping the
// class axis.
//
// PolicyMax returns argmax/C, where C is the class-axis length; ties go to
// the lowest class. This divides by C rather than by the quantizer's level
// count, so a round trip through Quantize does not reproduce the energy
// scale. PolicyMean applies a softmax over the class axis and returns the
// expectation over the centers 0.1*(k-1); it requires exactly 11 classes.
func DecodeQuantize(logits Logits, policy Policy) (volume.Array[float64], error) {
	if err := policy.validate(); err != nil {
		return volume.Array[float64]{}, err
	}

	var values volume.Array[float64]
	switch l := logits.(type) {
	case BatchedLogits:
		values = l.Values
	case ChannelFirstLogits:
		values = l.Values
	default:
		return volume.Array[float64]{}, fmt.Errorf("%w: %T", ErrUnsupportedContainer, logits)
	}

	ax := logits.classAxis()
	if values.NDim() <= ax {
		return volume.Array[float64]{}, fmt.Errorf("%w: logits shape %v has no class axis %d", volume.ErrShapeMismatch, values.Shape, ax)
	}
	classes := values.Shape[ax]
	if classes == 0 {
		return volume.Array[float64]{}, fmt.Errorf("%w: empty class axis", ErrClassCount)
	}
	if policy == PolicyMean && classes != len(meanCenters) {
		return volume.Array[float64]{}, fmt.Errorf("%w: mean policy needs %d classes, got %d", ErrClassCount, len(meanCenters), classes)
	}

	outer := volume.Size(values.Shape[:ax])
	inner := volume.Size(values.Shape[ax+1:])
	outShape := append(append([]int{}, values.Shape[:ax]...), values.Shape[ax+1:]...)
	out := volume.New[float64](outShape...)
	if len(values.Data) != outer*classes*inner {
		return volume.Array[float64]{}, fmt.Errorf("%w: %d values for shape %v", volume.ErrShapeMismatch, len(values.Data), values.Shape)
	}

	column := make([]float64, classes)
	for o := range outer {
		for i := range inner {
			base := o*classes*inner + i
			for c := range classes {
				column[c] = values.Data[base+c*inner]
			}
			out.Data[o*inner+i] = decodeColumn(column, policy)
		}
	}
	valuesDecoded.WithLabelValues(string(policy)).Add(float64(out.Len()))
	return out, nil
}

func decodeColumn(column []float64, policy Policy) float64 {
	if policy == PolicyMax {
		return float64(floats.MaxIdx(column)) / float64(len(column))
	}
	lse := floats.LogSumExp(column)
	var e float64
	for k, v := range column {
		e += math.Exp(v-lse) * meanCenters[k]
	}
	return e
}
