// Package volume provides a small row-major N-dimensional array used for
// label maps, energy maps and masks, together with the zero-padding,
// slicing and stacking helpers the encoders build on.
package volume

import (
	"errors"
	"fmt"
	"slices"
)

// ErrShapeMismatch is returned when data length or shapes do not agree.
var ErrShapeMismatch = errors.New("volume: shape mismatch")

// Array is a dense N-dimensional array. Data layout is row-major: the last
// axis varies fastest, the same as an NCHW tensor.
type Array[T any] struct {
	Shape []int
	Data  []T
}

// New allocates a zero-filled array with the given shape.
func New[T any](shape ...int) Array[T] {
	return Array[T]{Shape: slices.Clone(shape), Data: make([]T, Size(shape))}
}

// FromData wraps data in an array, checking that its length matches shape.
// The data slice is not copied.
func FromData[T any](data []T, shape ...int) (Array[T], error) {
	if len(data) != Size(shape) {
		return Array[T]{}, fmt.Errorf("%w: data length %d, shape %v", ErrShapeMismatch, len(data), shape)
	}
	return Array[T]{Shape: slices.Clone(shape), Data: data}, nil
}

// Full allocates an array with every element set to v.
func Full[T any](v T, shape ...int) Array[T] {
	a := New[T](shape...)
	for i := range a.Data {
		a.Data[i] = v
	}
	return a
}

// Size returns the number of elements of an array with the given shape.
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Strides returns the row-major element strides for shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// NDim returns the number of axes.
func (a Array[T]) NDim() int { return len(a.Shape) }

// Len returns the number of elements.
func (a Array[T]) Len() int { return len(a.Data) }

// Index converts coordinates into a flat offset. It panics on rank mismatch.
func (a Array[T]) Index(coords ...int) int {
	if len(coords) != len(a.Shape) {
		panic(fmt.Sprintf("volume: %d coordinates for rank %d array", len(coords), len(a.Shape)))
	}
	idx := 0
	for i, c := range coords {
		idx = idx*a.Shape[i] + c
	}
	return idx
}

// At returns the element at coords.
func (a Array[T]) At(coords ...int) T { return a.Data[a.Index(coords...)] }

// Set stores v at coords.
func (a Array[T]) Set(v T, coords ...int) { a.Data[a.Index(coords...)] = v }

// Clone returns a deep copy.
func (a Array[T]) Clone() Array[T] {
	return Array[T]{Shape: slices.Clone(a.Shape), Data: slices.Clone(a.Data)}
}

// SameShape reports whether a and b have identical shapes.
func SameShape[T, U any](a Array[T], b Array[U]) bool {
	return slices.Equal(a.Shape, b.Shape)
}

// Map applies fn element-wise and returns a new array of the same shape.
func Map[T, U any](a Array[T], fn func(T) U) Array[U] {
	out := Array[U]{Shape: slices.Clone(a.Shape), Data: make([]U, len(a.Data))}
	for i, v := range a.Data {
		out.Data[i] = fn(v)
	}
	return out
}

// Coords converts a flat offset back to coordinates, writing into dst.
func Coords(shape []int, idx int, dst []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		dst[i] = idx % shape[i]
		idx /= shape[i]
	}
}
