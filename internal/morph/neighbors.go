// Package morph implements the binary-morphology primitives the energy
// encoders depend on: Euclidean distance transform, connected-component
// labeling, small-hole filling, erosion, skeletonization and Gaussian
// smoothing. All functions work on N-dimensional volume.Array values unless
// documented otherwise, and never modify their inputs.
package morph

import (
	"errors"
)

var (
	// ErrSpacingRank is returned when a spacing vector does not match the mask rank.
	ErrSpacingRank = errors.New("morph: spacing length does not match array rank")
	// ErrRank is returned by operations restricted to a particular rank.
	ErrRank = errors.New("morph: unsupported array rank")
)

// neighborhood holds the relative coordinate offsets of a connectivity
// pattern. Connectivity c admits offsets with at most c non-zero components,
// so 1 means face neighbors and ndim means the full 3^n-1 neighborhood.
type neighborhood struct {
	offsets [][]int
}

func newNeighborhood(ndim, connectivity int) neighborhood {
	if connectivity < 1 {
		connectivity = 1
	}
	var nb neighborhood
	off := make([]int, ndim)
	var walk func(ax, nonZero int)
	walk = func(ax, nonZero int) {
		if ax == ndim {
			if nonZero > 0 && nonZero <= connectivity {
				o := make([]int, ndim)
				copy(o, off)
				nb.offsets = append(nb.offsets, o)
			}
			return
		}
		for _, d := range [3]int{-1, 0, 1} {
			off[ax] = d
			nz := nonZero
			if d != 0 {
				nz++
			}
			walk(ax+1, nz)
		}
		off[ax] = 0
	}
	walk(0, 0)
	return nb
}

// each calls fn with the flat index of every in-bounds neighbor of the
// element at coords.
func (nb neighborhood) each(shape, strides, coords []int, fn func(n int)) {
	for _, o := range nb.offsets {
		idx := 0
		ok := true
		for ax, d := range o {
			c := coords[ax] + d
			if c < 0 || c >= shape[ax] {
				ok = false
				break
			}
			idx += c * strides[ax]
		}
		if ok {
			fn(idx)
		}
	}
}
