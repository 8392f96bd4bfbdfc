package query

import (
	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// Builder accumulates filters, sort, pagination and projection into a Query.
// Methods chain; the first malformed operand is recorded and reported by
// Build, so bad filters fail at build time rather than at execution.
type Builder struct {
	filters    []Filter
	sort       *SortSpec
	limit      int
	offset     int
	projection []string
	err        error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// setErr keeps the first error; later calls still chain but are inert.
func (b *Builder) setErr(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) push(f Filter) *Builder {
	if b.err == nil {
		b.filters = append(b.filters, f)
	}
	return b
}

// validOperand reports whether v is a representable JSON value.
func validOperand(v interface{}) bool {
	switch v.(type) {
	case nil, bool, string, float64, int, int64, []interface{}, map[string]interface{}:
		return true
	}
	return false
}

func (b *Builder) scalarFilter(op Op, field string, operand interface{}) *Builder {
	if field == "" {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "%s filter: field name cannot be empty", op))
	}
	if !validOperand(operand) {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "%s filter on %q: operand %T is not a JSON value", op, field, operand))
	}
	return b.push(Filter{Op: op, Field: field, Operand: operand})
}

func (b *Builder) relationalFilter(op Op, field string, operand interface{}) *Builder {
	if field == "" {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "%s filter: field name cannot be empty", op))
	}
	if _, isNum := types.AsNumber(operand); !isNum {
		if _, isStr := operand.(string); !isStr {
			return b.setErr(types.Errorf(types.CodeInvalidArgument, "%s filter on %q: operand must be a number or string, got %T", op, field, operand))
		}
	}
	return b.push(Filter{Op: op, Field: field, Operand: operand})
}

func (b *Builder) stringFilter(op Op, field string, operand interface{}) *Builder {
	if field == "" {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "%s filter: field name cannot be empty", op))
	}
	s, ok := operand.(string)
	if !ok {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "%s filter on %q: operand must be a string, got %T", op, field, operand))
	}
	return b.push(Filter{Op: op, Field: field, Operand: s})
}

// Equals matches documents whose field structurally equals operand.
func (b *Builder) Equals(field string, operand interface{}) *Builder {
	return b.scalarFilter(OpEquals, field, operand)
}

// NotEquals matches documents whose field is present and differs from operand.
func (b *Builder) NotEquals(field string, operand interface{}) *Builder {
	return b.scalarFilter(OpNotEquals, field, operand)
}

// GreaterThan matches field > operand under relational ordering.
func (b *Builder) GreaterThan(field string, operand interface{}) *Builder {
	return b.relationalFilter(OpGreaterThan, field, operand)
}

// GreaterOrEqual matches field >= operand under relational ordering.
func (b *Builder) GreaterOrEqual(field string, operand interface{}) *Builder {
	return b.relationalFilter(OpGreaterOrEqual, field, operand)
}

// LessThan matches field < operand under relational ordering.
func (b *Builder) LessThan(field string, operand interface{}) *Builder {
	return b.relationalFilter(OpLessThan, field, operand)
}

// LessOrEqual matches field <= operand under relational ordering.
func (b *Builder) LessOrEqual(field string, operand interface{}) *Builder {
	return b.relationalFilter(OpLessOrEqual, field, operand)
}

// Contains matches string fields containing the substring, or array fields
// with any string element containing it.
func (b *Builder) Contains(field string, substr interface{}) *Builder {
	return b.stringFilter(OpContains, field, substr)
}

// StartsWith matches string fields with the given prefix.
func (b *Builder) StartsWith(field string, prefix interface{}) *Builder {
	return b.stringFilter(OpStartsWith, field, prefix)
}

// EndsWith matches string fields with the given suffix.
func (b *Builder) EndsWith(field string, suffix interface{}) *Builder {
	return b.stringFilter(OpEndsWith, field, suffix)
}

// In matches documents whose field equals one of the supplied values.
func (b *Builder) In(field string, values []interface{}) *Builder {
	if field == "" {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "in filter: field name cannot be empty"))
	}
	if values == nil {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "in filter on %q: value list cannot be nil", field))
	}
	for _, v := range values {
		if !validOperand(v) {
			return b.setErr(types.Errorf(types.CodeInvalidArgument, "in filter on %q: list element %T is not a JSON value", field, v))
		}
	}
	list := make([]interface{}, len(values))
	copy(list, values)
	return b.push(Filter{Op: OpIn, Field: field, Operands: list})
}

// Exists matches documents where the field key is present (or absent when
// want is false). An explicit null value still counts as present.
func (b *Builder) Exists(field string, want bool) *Builder {
	if field == "" {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "exists filter: field name cannot be empty"))
	}
	return b.push(Filter{Op: OpExists, Field: field, Presence: want})
}

// Sort sets the single sort key. Direction 0 sorts ascending, 1 descending.
func (b *Builder) Sort(field string, dir Direction) *Builder {
	if field == "" {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "sort field cannot be empty"))
	}
	if dir != Ascending && dir != Descending {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "sort direction must be 0 (ascending) or 1 (descending), got %d", dir))
	}
	if b.err == nil {
		b.sort = &SortSpec{Field: field, Dir: dir}
	}
	return b
}

// Limit caps the result count. Zero means no limit.
func (b *Builder) Limit(n int) *Builder {
	if n < 0 {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "limit cannot be negative: %d", n))
	}
	if b.err == nil {
		b.limit = n
	}
	return b
}

// Offset skips the first n matches after filtering and sorting. Zero means
// no offset.
func (b *Builder) Offset(n int) *Builder {
	if n < 0 {
		return b.setErr(types.Errorf(types.CodeInvalidArgument, "offset cannot be negative: %d", n))
	}
	if b.err == nil {
		b.offset = n
	}
	return b
}

// Project restricts returned document bodies to the named top-level fields.
// No projection returns bodies in full.
func (b *Builder) Project(fields ...string) *Builder {
	for _, f := range fields {
		if f == "" {
			return b.setErr(types.Errorf(types.CodeInvalidArgument, "projection field cannot be empty"))
		}
	}
	if b.err == nil {
		b.projection = append([]string(nil), fields...)
	}
	return b
}

// Build returns the immutable query, or the first error recorded while the
// builder accumulated filters.
func (b *Builder) Build() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	filters := make([]Filter, len(b.filters))
	copy(filters, b.filters)
	q := Query{
		filters: filters,
		limit:   b.limit,
		offset:  b.offset,
	}
	if b.sort != nil {
		s := *b.sort
		q.sort = &s
	}
	if b.projection != nil {
		q.projection = append([]string(nil), b.projection...)
	}
	return q, nil
}
