// Package query builds and evaluates structured queries over documents:
// an ordered conjunction of field predicates plus optional sort, offset,
// limit and projection. Queries are immutable once built and evaluation
// never mutates the documents it reads.
package query

import (
	"strings"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// Op identifies a filter predicate variant.
type Op int

const (
	OpEquals Op = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpStartsWith
	OpEndsWith
	OpIn
	OpExists
)

// String returns the operator name used in error messages.
func (op Op) String() string {
	switch op {
	case OpEquals:
		return "equals"
	case OpNotEquals:
		return "not_equals"
	case OpGreaterThan:
		return "greater_than"
	case OpGreaterOrEqual:
		return "greater_or_equal"
	case OpLessThan:
		return "less_than"
	case OpLessOrEqual:
		return "less_or_equal"
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "starts_with"
	case OpEndsWith:
		return "ends_with"
	case OpIn:
		return "in"
	case OpExists:
		return "exists"
	}
	return "unknown"
}

// Filter is one predicate over a single top-level document field. Operand
// holds the comparison value for scalar operators, Operands the value list
// for OpIn, Presence the expectation for OpExists.
type Filter struct {
	Op       Op
	Field    string
	Operand  interface{}
	Operands []interface{}
	Presence bool
}

// Matches evaluates the predicate against a document. A missing field is a
// non-match for every operator except OpExists, never an evaluation error.
func (f Filter) Matches(doc *types.Document) bool {
	value, present := doc.Field(f.Field)

	if f.Op == OpExists {
		return present == f.Presence
	}
	if !present {
		return false
	}

	switch f.Op {
	case OpEquals:
		return types.Equal(value, f.Operand)
	case OpNotEquals:
		return !types.Equal(value, f.Operand)
	case OpGreaterThan:
		cmp, ok := relate(value, f.Operand)
		return ok && cmp > 0
	case OpGreaterOrEqual:
		cmp, ok := relate(value, f.Operand)
		return ok && cmp >= 0
	case OpLessThan:
		cmp, ok := relate(value, f.Operand)
		return ok && cmp < 0
	case OpLessOrEqual:
		cmp, ok := relate(value, f.Operand)
		return ok && cmp <= 0
	case OpContains:
		return containsMatch(value, f.Operand.(string))
	case OpStartsWith:
		s, ok := value.(string)
		return ok && strings.HasPrefix(s, f.Operand.(string))
	case OpEndsWith:
		s, ok := value.(string)
		return ok && strings.HasSuffix(s, f.Operand.(string))
	case OpIn:
		for _, candidate := range f.Operands {
			if types.Equal(value, candidate) {
				return true
			}
		}
		return false
	}
	return false
}

// relate orders a field value against an operand for relational operators:
// numerically when both are numbers, lexicographically when both are
// strings. Any other pairing does not relate and the document cannot match.
func relate(value, operand interface{}) (int, bool) {
	if nv, ok := types.AsNumber(value); ok {
		no, ok := types.AsNumber(operand)
		if !ok {
			return 0, false
		}
		switch {
		case nv < no:
			return -1, true
		case nv > no:
			return 1, true
		}
		return 0, true
	}
	if sv, ok := value.(string); ok {
		so, ok := operand.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sv, so), true
	}
	return 0, false
}

// containsMatch tests substring containment on a string field, or on any
// string element of an array field.
func containsMatch(value interface{}, substr string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(v, substr)
	case []interface{}:
		for _, elem := range v {
			if s, ok := elem.(string); ok && strings.Contains(s, substr) {
				return true
			}
		}
	}
	return false
}
