// Package topk implements the bounded top-K aggregation used to merge
// per-partition search results.
//
// An Agg never holds more than K items, so combining arbitrarily many
// partition results stays O(K) in memory and the combine operation is
// associative and commutative under a strict total order. That is what makes
// tree-shaped and out-of-order reduction across partitions safe.
package topk

import "slices"

// Agg is a bounded accumulator of the best K items under an ordering.
//
// less reports whether a ranks strictly below b. It must be a strict total
// order for deterministic results; ties in the primary criterion need a
// tie-break inside less.
//
// The zero capacity accumulator ignores all input, which keeps degenerate
// K values legal everywhere.
type Agg[T any] struct {
	k     int
	less  func(a, b T) bool
	items []T // min-heap, items[0] is the weakest retained item
}

// New creates an empty accumulator with capacity k. A non-positive k yields
// an accumulator that stays empty.
func New[T any](k int, less func(a, b T) bool) *Agg[T] {
	if k < 0 {
		k = 0
	}
	return &Agg[T]{k: k, less: less}
}

// K returns the capacity.
func (a *Agg[T]) K() int {
	return a.k
}

// Len returns the number of retained items, at most K.
func (a *Agg[T]) Len() int {
	return len(a.items)
}

// Add offers one item. It is kept if the accumulator has room or the item
// outranks the weakest retained one. O(log K).
func (a *Agg[T]) Add(item T) {
	if a.k <= 0 {
		return
	}
	if len(a.items) < a.k {
		a.items = append(a.items, item)
		a.siftUp(len(a.items) - 1)
		return
	}
	if a.less(a.items[0], item) {
		a.items[0] = item
		a.siftDown(0)
	}
}

// Merge offers every item retained by other. other is read, not modified.
// O(min(K, other.Len()) log K).
func (a *Agg[T]) Merge(other *Agg[T]) {
	if other == nil {
		return
	}
	for _, item := range other.items {
		a.Add(item)
	}
}

// Items returns the retained items ordered best first. The accumulator is
// not modified.
func (a *Agg[T]) Items() []T {
	out := make([]T, len(a.items))
	copy(out, a.items)
	slices.SortFunc(out, func(x, y T) int {
		switch {
		case a.less(x, y):
			return 1
		case a.less(y, x):
			return -1
		default:
			return 0
		}
	})
	return out
}

func (a *Agg[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !a.less(a.items[i], a.items[parent]) {
			return
		}
		a.items[i], a.items[parent] = a.items[parent], a.items[i]
		i = parent
	}
}

func (a *Agg[T]) siftDown(i int) {
	n := len(a.items)
	for {
		left, right := 2*i+1, 2*i+2
		weakest := i
		if left < n && a.less(a.items[left], a.items[weakest]) {
			weakest = left
		}
		if right < n && a.less(a.items[right], a.items[weakest]) {
			weakest = right
		}
		if weakest == i {
			return
		}
		a.items[i], a.items[weakest] = a.items[weakest], a.items[i]
		i = weakest
	}
}
