package energy

import (
	"fmt"
	"slices"

	"github.com/MeKo-Tech/segenergy/internal/volume"
	"golang.org/x/sync/errgroup"
)

// instanceLocal is the contribution of one instance, restricted to a box of
// the full label map.
type instanceLocal struct {
	box      volume.Box
	energy   volume.Array[float64]
	semantic volume.Array[bool]
	skeleton volume.Array[bool]
}

// instanceFunc computes the local contribution of instance id from its mask
// inside box.
type instanceFunc func(id int64, box volume.Box, mask volume.Array[bool]) (instanceLocal, error)

// instanceBoxes returns the nonzero ids of labels in ascending order and the
// bounding box of each.
func instanceBoxes(labels volume.Array[int64]) ([]int64, map[int64]volume.Box) {
	nd := labels.NDim()
	boxes := make(map[int64]volume.Box)
	coords := make([]int, nd)
	for i, v := range labels.Data {
		if v == 0 {
			continue
		}
		volume.Coords(labels.Shape, i, coords)
		b, ok := boxes[v]
		if !ok {
			b = volume.Box{Min: slices.Clone(coords), Max: make([]int, nd)}
			for ax, c := range coords {
				b.Max[ax] = c + 1
			}
			boxes[v] = b
			continue
		}
		for ax, c := range coords {
			b.Min[ax] = min(b.Min[ax], c)
			b.Max[ax] = max(b.Max[ax], c+1)
		}
	}
	ids := make([]int64, 0, len(boxes))
	for id := range boxes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, boxes
}

// mapInstances runs fn for every instance on its bounding box grown by
// margin. With workers > 1 instances are processed concurrently; the result
// order always follows ids.
func mapInstances(labels volume.Array[int64], margin, workers int, fn instanceFunc) ([]instanceLocal, error) {
	ids, boxes := instanceBoxes(labels)
	locals := make([]instanceLocal, len(ids))

	one := func(k int) error {
		id := ids[k]
		box := boxes[id].Grow(margin, labels.Shape)
		mask := volume.Map(volume.Crop(labels, box), func(v int64) bool { return v == id })
		local, err := fn(id, box, mask)
		if err != nil {
			return fmt.Errorf("instance %d: %w", id, err)
		}
		locals[k] = local
		return nil
	}

	if workers <= 1 {
		for k := range ids {
			if err := one(k); err != nil {
				return nil, err
			}
		}
		return locals, nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for k := range ids {
		g.Go(func() error { return one(k) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return locals, nil
}

// fuse reduces instance contributions into full-size maps: element-wise
// max for energy, sum for semantic and skeleton. Both reductions are
// commutative, so the result does not depend on the order of locals.
func fuse(shape []int, locals []instanceLocal, withSkeleton bool) Result {
	res := Result{
		Distance: volume.New[float64](shape...),
		Semantic: volume.New[uint8](shape...),
	}
	if withSkeleton {
		res.Skeleton = volume.New[uint8](shape...)
	}
	for _, l := range locals {
		l.box.Each(shape, func(outer, inner int) {
			if e := l.energy.Data[inner]; e > res.Distance.Data[outer] {
				res.Distance.Data[outer] = e
			}
			if l.semantic.Data[inner] {
				res.Semantic.Data[outer]++
			}
			if withSkeleton && l.skeleton.Data[inner] {
				res.Skeleton.Data[outer]++
			}
		})
	}
	return res
}
