package morph

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/segenergy/internal/mempool"
	"github.com/MeKo-Tech/segenergy/internal/volume"
)

// EDT computes the exact Euclidean distance transform of mask: every true
// element receives its distance to the nearest false element, measured with
// the per-axis spacing; false elements receive 0.
//
// The transform is separable (Felzenszwalb & Huttenlocher lower envelope of
// parabolas, one pass per axis). A nil or empty spacing means unit spacing.
// A mask without any false element is measured against the array frame, as
// if surrounded by one layer of background.
func EDT(mask volume.Array[bool], spacing []float64) (volume.Array[float64], error) {
	nd := mask.NDim()
	if len(spacing) == 0 {
		spacing = make([]float64, nd)
		for i := range spacing {
			spacing[i] = 1
		}
	}
	if len(spacing) != nd {
		return volume.Array[float64]{}, fmt.Errorf("%w: %d values for rank %d", ErrSpacingRank, len(spacing), nd)
	}
	if mask.Len() == 0 {
		return volume.New[float64](mask.Shape...), nil
	}

	if !hasFalse(mask.Data) {
		padded, err := EDT(volume.Pad(mask, 1), spacing)
		if err != nil {
			return volume.Array[float64]{}, err
		}
		return volume.Unpad(padded, 1), nil
	}

	inf := math.Inf(1)
	out := volume.New[float64](mask.Shape...)
	for i, fg := range mask.Data {
		if fg {
			out.Data[i] = inf
		}
	}
	for ax := range nd {
		transformAxis(out, ax, spacing[ax])
	}
	for i, v := range out.Data {
		out.Data[i] = math.Sqrt(v)
	}
	return out, nil
}

func hasFalse(data []bool) bool {
	for _, v := range data {
		if !v {
			return true
		}
	}
	return false
}

// transformAxis runs the 1D squared-distance transform over every line of
// a parallel to axis ax, in place.
func transformAxis(a volume.Array[float64], ax int, spacing float64) {
	n := a.Shape[ax]
	outer := volume.Size(a.Shape[:ax])
	inner := volume.Size(a.Shape[ax+1:])

	bufs := mempool.Float64.GetMultiple(n, n, n+1)
	defer mempool.Float64.PutMultiple(bufs...)
	line, res, z := bufs[0], bufs[1], bufs[2]
	v := mempool.Int.Get(n)
	defer mempool.Int.Put(v)

	for o := range outer {
		for i := range inner {
			start := o*n*inner + i
			for q := range n {
				line[q] = a.Data[start+q*inner]
			}
			squaredDistance1D(line, res, spacing, v, z)
			for q := range n {
				a.Data[start+q*inner] = res[q]
			}
		}
	}
}

// squaredDistance1D computes d(q) = min_p (s*(q-p))^2 + f(p). Sites with
// f(p) = +Inf do not contribute; a line with no finite site stays +Inf.
func squaredDistance1D(f, d []float64, s float64, v []int, z []float64) {
	n := len(f)
	s2 := s * s
	k := -1
	for q := range n {
		if math.IsInf(f[q], 1) {
			continue
		}
		if k < 0 {
			k = 0
			v[0] = q
			z[0] = math.Inf(-1)
			z[1] = math.Inf(1)
			continue
		}
		var x float64
		for {
			p := v[k]
			x = ((f[q] + s2*float64(q*q)) - (f[p] + s2*float64(p*p))) / (2 * s2 * float64(q-p))
			if x > z[k] {
				break
			}
			k--
		}
		k++
		v[k] = q
		z[k] = x
		z[k+1] = math.Inf(1)
	}

	if k < 0 {
		for q := range n {
			d[q] = math.Inf(1)
		}
		return
	}

	k = 0
	for q := range n {
		for z[k+1] < float64(q) {
			k++
		}
		dq := s * float64(q-v[k])
		d[q] = dq*dq + f[v[k]]
	}
}
