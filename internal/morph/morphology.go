package morph

import (
	"github.com/MeKo-Tech/segenergy/internal/volume"
)

// Disk returns a (2r+1)x(2r+1) structuring element with x^2 + y^2 <= r^2.
func Disk(radius int) volume.Array[bool] {
	return sphere(2, radius)
}

// Ball returns a (2r+1)^3 structuring element with x^2 + y^2 + z^2 <= r^2.
func Ball(radius int) volume.Array[bool] {
	return sphere(3, radius)
}

// Footprint returns the disk or ball matching ndim.
func Footprint(ndim, radius int) volume.Array[bool] {
	return sphere(ndim, radius)
}

func sphere(ndim, radius int) volume.Array[bool] {
	if radius < 0 {
		radius = 0
	}
	shape := make([]int, ndim)
	for i := range shape {
		shape[i] = 2*radius + 1
	}
	fp := volume.New[bool](shape...)
	coords := make([]int, ndim)
	r2 := radius * radius
	for i := range fp.Data {
		volume.Coords(shape, i, coords)
		d2 := 0
		for _, c := range coords {
			d := c - radius
			d2 += d * d
		}
		fp.Data[i] = d2 <= r2
	}
	return fp
}

// Erode performs binary erosion of mask with a centered structuring element.
// An element survives when every footprint position that falls inside the
// array is true; positions outside the frame count as true.
func Erode(mask, footprint volume.Array[bool]) volume.Array[bool] {
	nd := mask.NDim()
	out := volume.New[bool](mask.Shape...)
	if footprint.NDim() != nd {
		return out
	}

	var offsets [][]int
	fc := make([]int, nd)
	for i, on := range footprint.Data {
		if !on {
			continue
		}
		volume.Coords(footprint.Shape, i, fc)
		o := make([]int, nd)
		for ax, c := range fc {
			o[ax] = c - footprint.Shape[ax]/2
		}
		offsets = append(offsets, o)
	}

	strides := volume.Strides(mask.Shape)
	coords := make([]int, nd)
	for i, fg := range mask.Data {
		if !fg {
			continue
		}
		volume.Coords(mask.Shape, i, coords)
		keep := true
		for _, o := range offsets {
			idx := 0
			inside := true
			for ax, d := range o {
				c := coords[ax] + d
				if c < 0 || c >= mask.Shape[ax] {
					inside = false
					break
				}
				idx += c * strides[ax]
			}
			if inside && !mask.Data[idx] {
				keep = false
				break
			}
		}
		out.Data[i] = keep
	}
	return out
}
