// Package mempool keeps size-classed scratch buffers for the per-line loops
// of the distance and blur transforms.
package mempool

import (
	"sync"
)

// Pool hands out []T buffers bucketed by capacity. The zero value is ready
// to use and safe for concurrent use.
type Pool[T any] struct {
	pools sync.Map // key: size class (int), value: *sync.Pool
}

// Shared pools for the element types the transforms work on.
var (
	Float64 Pool[float64]
	Int     Pool[int]
)

// sizeClass rounds n up to a multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	const step = 1024
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func (p *Pool[T]) pool(cls int) *sync.Pool {
	if v, ok := p.pools.Load(cls); ok {
		return v.(*sync.Pool)
	}
	v, _ := p.pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return v.(*sync.Pool)
}

// Get returns a buffer of length n. Its contents are unspecified; callers
// overwrite every element they read. Return it with Put.
func (p *Pool[T]) Get(n int) []T {
	cls := sizeClass(n)
	bp := p.pool(cls).Get().(*[]T)
	buf := *bp
	if cap(buf) < cls {
		buf = make([]T, cls)
	}
	return buf[:n]
}

// Put returns buf to its pool. Nil is ignored, as is a buffer whose
// capacity is not a size class, such as one from plain make.
func (p *Pool[T]) Put(buf []T) {
	if buf == nil || sizeClass(cap(buf)) != cap(buf) {
		return
	}
	buf = buf[:cap(buf)]
	p.pool(cap(buf)).Put(&buf)
}

// GetMultiple returns one buffer per requested length.
func (p *Pool[T]) GetMultiple(sizes ...int) [][]T {
	if len(sizes) == 0 {
		return nil
	}
	bufs := make([][]T, len(sizes))
	for i, n := range sizes {
		bufs[i] = p.Get(n)
	}
	return bufs
}

// PutMultiple returns every buffer of bufs.
func (p *Pool[T]) PutMultiple(bufs ...[]T) {
	for _, buf := range bufs {
		p.Put(buf)
	}
}
