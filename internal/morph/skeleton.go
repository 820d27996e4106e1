package morph

import (
	"fmt"

	"github.com/MeKo-Tech/segenergy/internal/volume"
)

// Skeletonize thins a 2D mask to a one-element-wide skeleton that keeps the
// connectivity of every region (Zhang-Suen). Elements outside the frame
// count as background. A region that thinning would erase entirely, such as
// a 2x2 block, keeps the element nearest to its centroid.
func Skeletonize(mask volume.Array[bool]) (volume.Array[bool], error) {
	if mask.NDim() != 2 {
		return volume.Array[bool]{}, fmt.Errorf("%w: skeletonize needs 2 axes, got %d", ErrRank, mask.NDim())
	}
	h, w := mask.Shape[0], mask.Shape[1]
	out := mask.Clone()
	at := func(y, x int) int {
		if y < 0 || y >= h || x < 0 || x >= w || !out.Data[y*w+x] {
			return 0
		}
		return 1
	}

	var remove []int
	for changed := true; changed; {
		changed = false
		for step := range 2 {
			remove = remove[:0]
			for y := range h {
				for x := range w {
					if !out.Data[y*w+x] {
						continue
					}
					// P2..P9 clockwise starting north.
					p := [8]int{
						at(y-1, x), at(y-1, x+1), at(y, x+1), at(y+1, x+1),
						at(y+1, x), at(y+1, x-1), at(y, x-1), at(y-1, x-1),
					}
					if thinnable(p, step) {
						remove = append(remove, y*w+x)
					}
				}
			}
			for _, idx := range remove {
				out.Data[idx] = false
			}
			if len(remove) > 0 {
				changed = true
			}
		}
	}
	keepVanished(mask, out)
	return out, nil
}

// keepVanished restores one element of every full-connectivity region of
// mask that has no element left in skel.
func keepVanished(mask, skel volume.Array[bool]) {
	ids, sizes := componentsOf(mask, mask.NDim())
	alive := make([]bool, len(sizes))
	for i, id := range ids {
		if id != 0 && skel.Data[i] {
			alive[id-1] = true
		}
	}

	w := mask.Shape[1]
	sumY := make([]float64, len(sizes))
	sumX := make([]float64, len(sizes))
	for i, id := range ids {
		if id != 0 && !alive[id-1] {
			sumY[id-1] += float64(i / w)
			sumX[id-1] += float64(i % w)
		}
	}
	best := make([]int, len(sizes))
	bestD := make([]float64, len(sizes))
	for k := range best {
		best[k] = -1
	}
	for i, id := range ids {
		if id == 0 || alive[id-1] {
			continue
		}
		k := id - 1
		dy := float64(i/w) - sumY[k]/float64(sizes[k])
		dx := float64(i%w) - sumX[k]/float64(sizes[k])
		if d := dy*dy + dx*dx; best[k] < 0 || d < bestD[k] {
			best[k], bestD[k] = i, d
		}
	}
	for _, i := range best {
		if i >= 0 {
			skel.Data[i] = true
		}
	}
}

// thinnable applies the Zhang-Suen deletion test for one sub-iteration.
func thinnable(p [8]int, step int) bool {
	b := 0
	a := 0
	for i := range 8 {
		b += p[i]
		if p[i] == 0 && p[(i+1)%8] == 1 {
			a++
		}
	}
	if b < 2 || b > 6 || a != 1 {
		return false
	}
	p2, p4, p6, p8 := p[0], p[2], p[4], p[6]
	if step == 0 {
		return p2*p4*p6 == 0 && p4*p6*p8 == 0
	}
	return p2*p4*p8 == 0 && p2*p6*p8 == 0
}
