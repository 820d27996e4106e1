package volume

import (
	"fmt"
	"slices"
)

// Box is an axis-aligned half-open region [Min, Max) of an array.
type Box struct {
	Min []int
	Max []int
}

// Shape returns the extent of the box along every axis.
func (b Box) Shape() []int {
	s := make([]int, len(b.Min))
	for i := range b.Min {
		s[i] = b.Max[i] - b.Min[i]
	}
	return s
}

// Empty reports whether the box covers no elements.
func (b Box) Empty() bool {
	if len(b.Min) == 0 {
		return true
	}
	for i := range b.Min {
		if b.Max[i] <= b.Min[i] {
			return true
		}
	}
	return false
}

// Grow expands the box by margin on every side, clamped to shape.
func (b Box) Grow(margin int, shape []int) Box {
	g := Box{Min: make([]int, len(b.Min)), Max: make([]int, len(b.Max))}
	for i := range b.Min {
		g.Min[i] = max(b.Min[i]-margin, 0)
		g.Max[i] = min(b.Max[i]+margin, shape[i])
	}
	return g
}

// Each calls fn for every element of the box with its flat offset in an
// array of the given shape and its flat offset within the box, both in
// row-major order.
func (b Box) Each(shape []int, fn func(outer, inner int)) {
	if b.Empty() {
		return
	}
	strides := Strides(shape)
	pos := slices.Clone(b.Min)
	n := Size(b.Shape())
	for inner := range n {
		outer := 0
		for ax, p := range pos {
			outer += p * strides[ax]
		}
		fn(outer, inner)
		for ax := len(pos) - 1; ax >= 0; ax-- {
			pos[ax]++
			if pos[ax] < b.Max[ax] {
				break
			}
			pos[ax] = b.Min[ax]
		}
	}
}

// Pad returns a copy of a with margin zero elements added on both sides of
// every axis.
func Pad[T any](a Array[T], margin int) Array[T] {
	if margin <= 0 {
		return a.Clone()
	}
	shape := make([]int, len(a.Shape))
	offset := make([]int, len(a.Shape))
	for i, d := range a.Shape {
		shape[i] = d + 2*margin
		offset[i] = margin
	}
	out := New[T](shape...)
	copyRegion(out, offset, a, make([]int, len(a.Shape)), a.Shape)
	return out
}

// Unpad strips margin elements from both sides of every axis. It is the
// exact inverse of Pad for the same margin.
func Unpad[T any](a Array[T], margin int) Array[T] {
	if margin <= 0 {
		return a.Clone()
	}
	shape := make([]int, len(a.Shape))
	offset := make([]int, len(a.Shape))
	for i, d := range a.Shape {
		shape[i] = max(d-2*margin, 0)
		offset[i] = margin
	}
	out := New[T](shape...)
	copyRegion(out, make([]int, len(shape)), a, offset, shape)
	return out
}

// Crop returns a copy of the region of a covered by box.
func Crop[T any](a Array[T], box Box) Array[T] {
	shape := box.Shape()
	out := New[T](shape...)
	copyRegion(out, make([]int, len(shape)), a, box.Min, shape)
	return out
}

// Slice returns a copy of the i-th sub-array along the leading axis.
func Slice[T any](a Array[T], i int) Array[T] {
	inner := a.Shape[1:]
	n := Size(inner)
	return Array[T]{Shape: slices.Clone(inner), Data: slices.Clone(a.Data[i*n : (i+1)*n])}
}

// Stack joins equally shaped arrays along a new leading axis.
func Stack[T any](parts []Array[T]) (Array[T], error) {
	if len(parts) == 0 {
		return Array[T]{}, fmt.Errorf("%w: nothing to stack", ErrShapeMismatch)
	}
	inner := parts[0].Shape
	n := Size(inner)
	out := New[T](append([]int{len(parts)}, inner...)...)
	for i, p := range parts {
		if !slices.Equal(p.Shape, inner) {
			return Array[T]{}, fmt.Errorf("%w: slice %d has shape %v, want %v", ErrShapeMismatch, i, p.Shape, inner)
		}
		copy(out.Data[i*n:(i+1)*n], p.Data)
	}
	return out, nil
}

// copyRegion copies a region of the given shape from src (starting at
// srcOff) into dst (starting at dstOff), one contiguous last-axis run at a
// time.
func copyRegion[T any](dst Array[T], dstOff []int, src Array[T], srcOff []int, region []int) {
	if Size(region) == 0 {
		return
	}
	nd := len(region)
	if nd == 0 {
		dst.Data[0] = src.Data[0]
		return
	}
	dstStrides := Strides(dst.Shape)
	srcStrides := Strides(src.Shape)
	run := region[nd-1]
	outer := region[:nd-1]
	pos := make([]int, nd-1)
	for n := Size(outer); n > 0; n-- {
		di, si := dstOff[nd-1], srcOff[nd-1]
		for ax, p := range pos {
			di += (dstOff[ax] + p) * dstStrides[ax]
			si += (srcOff[ax] + p) * srcStrides[ax]
		}
		copy(dst.Data[di:di+run], src.Data[si:si+run])
		for ax := len(pos) - 1; ax >= 0; ax-- {
			pos[ax]++
			if pos[ax] < outer[ax] {
				break
			}
			pos[ax] = 0
		}
	}
}
