package energy

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/MeKo-Tech/segenergy/internal/volume"
)

// DefaultLevels is the default number of quantization levels, giving
// classes 0..10.
const DefaultLevels = 10

// upperEdge closes the top bin above the maximum energy of 1.
const upperEdge = 1.1

// Quantizer bins continuous energy into the ordinal classes 0..Levels.
// The bin edges are [-1, 0/L, 1/L, ..., (L-1)/L, 1.1]; a value's class is the
// number of edges at or below it minus one, so a value equal to an edge falls
// into the bin starting there. Values below -1 and NaN map to 0, values at or
// above 1.1 map to L.
type Quantizer struct {
	levels int
	edges  []float64
}

// NewQuantizer builds a quantizer for levels >= 1.
func NewQuantizer(levels int) (*Quantizer, error) {
	if levels < 1 {
		return nil, fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidLevels, levels)
	}
	edges := make([]float64, 0, levels+2)
	edges = append(edges, -1)
	for i := range levels {
		edges = append(edges, float64(i)/float64(levels))
	}
	edges = append(edges, upperEdge)
	return &Quantizer{levels: levels, edges: edges}, nil
}

// Levels returns the top class.
func (q *Quantizer) Levels() int { return q.levels }

// Edges returns a copy of the bin edges.
func (q *Quantizer) Edges() []float64 { return slices.Clone(q.edges) }

// Quantize returns the class of a single energy value.
func (q *Quantizer) Quantize(x float64) int64 {
	if math.IsNaN(x) {
		return 0
	}
	k := sort.Search(len(q.edges), func(i int) bool { return q.edges[i] > x }) - 1
	return int64(min(max(k, 0), q.levels))
}

// QuantizeArray quantizes every element of energy.
func (q *Quantizer) QuantizeArray(energy volume.Array[float64]) volume.Array[int64] {
	valuesQuantized.Add(float64(energy.Len()))
	return volume.Map(energy, q.Quantize)
}

// EnergyQuantize quantizes energy into levels+1 classes.
func EnergyQuantize(energy volume.Array[float64], levels int) (volume.Array[int64], error) {
	q, err := NewQuantizer(levels)
	if err != nil {
		return volume.Array[int64]{}, err
	}
	return q.QuantizeArray(energy), nil
}
