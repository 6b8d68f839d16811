package planitosm

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// spatialIndex is a thin wrapper around an R-tree keeping track of the
// envelope each item was inserted with, so items can be removed without the
// caller re-supplying the envelope. Query results are coarse candidates;
// callers re-check against exact geometry.
type spatialIndex[T comparable] struct {
	tr     rtree.RTreeG[T]
	bounds map[T]orb.Bound
}

func newSpatialIndex[T comparable]() *spatialIndex[T] {
	return &spatialIndex[T]{
		bounds: make(map[T]orb.Bound),
	}
}

func (index *spatialIndex[T]) insert(bound orb.Bound, item T) {
	if previous, ok := index.bounds[item]; ok {
		index.tr.Delete(previous.Min, previous.Max, item)
	}
	index.tr.Insert(bound.Min, bound.Max, item)
	index.bounds[item] = bound
}

func (index *spatialIndex[T]) remove(item T) bool {
	bound, ok := index.bounds[item]
	if !ok {
		return false
	}
	index.tr.Delete(bound.Min, bound.Max, item)
	delete(index.bounds, item)
	return true
}

func (index *spatialIndex[T]) query(bound orb.Bound) []T {
	results := make([]T, 0, 8)
	index.tr.Search(bound.Min, bound.Max, func(_, _ [2]float64, item T) bool {
		results = append(results, item)
		return true
	})
	return results
}

func (index *spatialIndex[T]) size() int {
	return len(index.bounds)
}

func (index *spatialIndex[T]) reset() {
	var empty rtree.RTreeG[T]
	index.tr = empty
	index.bounds = make(map[T]orb.Bound)
}
