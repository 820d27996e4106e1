package morph

import (
	"github.com/MeKo-Tech/segenergy/internal/volume"
)

// LabelComponents assigns a distinct positive id to every maximal connected
// region of equal non-zero value, using full connectivity (all 3^n-1
// neighbors). Ids are numbered from 1 in raster order of each region's first
// element; zero elements stay zero. It returns the relabeled array and the
// number of regions.
func LabelComponents(labels volume.Array[int64]) (volume.Array[int64], int) {
	out := volume.New[int64](labels.Shape...)
	nb := newNeighborhood(labels.NDim(), labels.NDim())
	strides := volume.Strides(labels.Shape)
	coords := make([]int, labels.NDim())

	var queue []int
	next := int64(1)
	for seed, v := range labels.Data {
		if v == 0 || out.Data[seed] != 0 {
			continue
		}
		id := next
		next++
		out.Data[seed] = id
		queue = append(queue[:0], seed)
		for len(queue) > 0 {
			cur := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			volume.Coords(labels.Shape, cur, coords)
			nb.each(labels.Shape, strides, coords, func(n int) {
				if out.Data[n] == 0 && labels.Data[n] == v {
					out.Data[n] = id
					queue = append(queue, n)
				}
			})
		}
	}
	return out, int(next - 1)
}

// componentsOf labels the connected regions of the true elements of mask
// under the given connectivity, returning per-element ids (0 for false) and
// the size of each region indexed by id-1.
func componentsOf(mask volume.Array[bool], connectivity int) ([]int, []int) {
	ids := make([]int, mask.Len())
	nb := newNeighborhood(mask.NDim(), connectivity)
	strides := volume.Strides(mask.Shape)
	coords := make([]int, mask.NDim())

	var sizes []int
	var queue []int
	for seed, fg := range mask.Data {
		if !fg || ids[seed] != 0 {
			continue
		}
		id := len(sizes) + 1
		size := 1
		ids[seed] = id
		queue = append(queue[:0], seed)
		for len(queue) > 0 {
			cur := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			volume.Coords(mask.Shape, cur, coords)
			nb.each(mask.Shape, strides, coords, func(n int) {
				if mask.Data[n] && ids[n] == 0 {
					ids[n] = id
					size++
					queue = append(queue, n)
				}
			})
		}
		sizes = append(sizes, size)
	}
	return ids, sizes
}

// FillSmallHoles returns a copy of mask in which every connected region of
// false elements with at most area elements is set to true. Regions of the
// complement are formed with the given connectivity (1 = face neighbors).
// Regions touching the frame are treated like any other region.
func FillSmallHoles(mask volume.Array[bool], area, connectivity int) volume.Array[bool] {
	out := mask.Clone()
	if area <= 0 {
		return out
	}
	holes := volume.Map(mask, func(v bool) bool { return !v })
	ids, sizes := componentsOf(holes, connectivity)
	for i, id := range ids {
		if id != 0 && sizes[id-1] <= area {
			out.Data[i] = true
		}
	}
	return out
}

// Count returns the number of true elements.
func Count(mask volume.Array[bool]) int {
	n := 0
	for _, v := range mask.Data {
		if v {
			n++
		}
	}
	return n
}

// BoundingBox returns the smallest box containing every true element. The
// box is empty when the mask has none.
func BoundingBox(mask volume.Array[bool]) volume.Box {
	nd := mask.NDim()
	box := volume.Box{Min: make([]int, nd), Max: make([]int, nd)}
	for ax := range nd {
		box.Min[ax] = mask.Shape[ax]
	}
	coords := make([]int, nd)
	found := false
	for i, v := range mask.Data {
		if !v {
			continue
		}
		found = true
		volume.Coords(mask.Shape, i, coords)
		for ax, c := range coords {
			box.Min[ax] = min(box.Min[ax], c)
			box.Max[ax] = max(box.Max[ax], c+1)
		}
	}
	if !found {
		return volume.Box{Min: make([]int, nd), Max: make([]int, nd)}
	}
	return box
}
