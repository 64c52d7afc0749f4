package topk

// Monoid packages the identity and combine operations over accumulators of a
// fixed capacity and ordering. Plus never mutates its inputs, so reductions
// may reuse partial results freely; use Agg.Merge directly when in-place
// combining is wanted.
type Monoid[T any] struct {
	k    int
	less func(a, b T) bool
}

// NewMonoid returns a monoid producing accumulators of capacity k.
func NewMonoid[T any](k int, less func(a, b T) bool) Monoid[T] {
	if k < 0 {
		k = 0
	}
	return Monoid[T]{k: k, less: less}
}

// K returns the capacity of produced accumulators.
func (m Monoid[T]) K() int {
	return m.k
}

// Zero returns the identity element: an empty accumulator.
func (m Monoid[T]) Zero() *Agg[T] {
	return New(m.k, m.less)
}

// Build returns an accumulator holding the best K of the given items.
func (m Monoid[T]) Build(items ...T) *Agg[T] {
	agg := m.Zero()
	for _, item := range items {
		agg.Add(item)
	}
	return agg
}

// Plus combines two accumulators into a fresh one holding the best K items
// of their union. Nil inputs count as Zero, which keeps reductions over an
// empty partition set total.
func (m Monoid[T]) Plus(a, b *Agg[T]) *Agg[T] {
	out := m.Zero()
	out.Merge(a)
	out.Merge(b)
	return out
}

// Reduce folds any number of accumulators. An empty or all-nil input yields
// Zero rather than an error.
func (m Monoid[T]) Reduce(aggs ...*Agg[T]) *Agg[T] {
	out := m.Zero()
	for _, agg := range aggs {
		out.Merge(agg)
	}
	return out
}
