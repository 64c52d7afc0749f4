package metadata

import "fmt"

// Operator identifies a filter comparison.
type Operator string

const (
	// OpEqual matches values equal to the filter value.
	OpEqual Operator = "eq"
	// OpNotEqual matches values not equal to the filter value.
	OpNotEqual Operator = "ne"
	// OpGreaterThan matches values greater than the filter value.
	OpGreaterThan Operator = "gt"
	// OpGreaterThanOrEqual matches values greater than or equal to the filter value.
	OpGreaterThanOrEqual Operator = "gte"
	// OpLessThan matches values less than the filter value.
	OpLessThan Operator = "lt"
	// OpLessThanOrEqual matches values less than or equal to the filter value.
	OpLessThanOrEqual Operator = "lte"
	// OpIn matches values contained in the filter's array value.
	OpIn Operator = "in"
	// OpContains matches array values containing the filter value.
	OpContains Operator = "contains"
)

// Filter is a single condition on one document field.
type Filter struct {
	Key      string   `json:"key"`
	Operator Operator `json:"op"`
	Value    Value    `json:"value"`
}

// String implements fmt.Stringer.
func (f Filter) String() string {
	return fmt.Sprintf("%s %s %s", f.Key, f.Operator, f.Value.Key())
}

// Matches reports whether the document satisfies the condition. A missing
// field matches nothing, including ne.
func (f Filter) Matches(doc Document) bool {
	v, ok := doc[f.Key]
	if !ok {
		return false
	}

	switch f.Operator {
	case OpEqual:
		return compareEqual(v, f.Value)
	case OpNotEqual:
		return !compareEqual(v, f.Value)
	case OpGreaterThan:
		return compareGreater(v, f.Value)
	case OpGreaterThanOrEqual:
		return compareGreater(v, f.Value) || compareEqual(v, f.Value)
	case OpLessThan:
		return compareLess(v, f.Value)
	case OpLessThanOrEqual:
		return compareLess(v, f.Value) || compareEqual(v, f.Value)
	case OpIn:
		return compareIn(v, f.Value)
	case OpContains:
		return compareContains(v, f.Value)
	default:
		return false
	}
}

// FilterSet is a conjunction of filters. An empty set matches everything.
type FilterSet []Filter

// Matches reports whether the document satisfies every filter in the set.
func (fs FilterSet) Matches(doc Document) bool {
	for _, f := range fs {
		if !f.Matches(doc) {
			return false
		}
	}
	return true
}

// compareEqual treats ints and floats as one numeric domain, so a filter
// written with Float(3) matches a document field Int(3).
func compareEqual(a, b Value) bool {
	if isNumber(a) && isNumber(b) {
		return asFloat64(a) == asFloat64(b)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindString:
		return a.s == b.s
	case KindBool:
		return a.B == b.B
	case KindArray:
		if len(a.A) != len(b.A) {
			return false
		}
		for i := range a.A {
			if !compareEqual(a.A[i], b.A[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func compareGreater(a, b Value) bool {
	if isNumber(a) && isNumber(b) {
		return asFloat64(a) > asFloat64(b)
	}
	if a.Kind == KindString && b.Kind == KindString {
		return a.s.Value() > b.s.Value()
	}
	return false
}

func compareLess(a, b Value) bool {
	if isNumber(a) && isNumber(b) {
		return asFloat64(a) < asFloat64(b)
	}
	if a.Kind == KindString && b.Kind == KindString {
		return a.s.Value() < b.s.Value()
	}
	return false
}

func compareIn(v, set Value) bool {
	arr, ok := set.AsArray()
	if !ok {
		return false
	}
	for _, member := range arr {
		if compareEqual(v, member) {
			return true
		}
	}
	return false
}

func compareContains(arr, v Value) bool {
	members, ok := arr.AsArray()
	if !ok {
		return false
	}
	for _, member := range members {
		if compareEqual(member, v) {
			return true
		}
	}
	return false
}

func isNumber(v Value) bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

func asFloat64(v Value) float64 {
	if v.Kind == KindInt {
		return float64(v.I64)
	}
	return v.F64
}
