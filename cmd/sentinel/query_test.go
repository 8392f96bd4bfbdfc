package main

import (
	"testing"

	"github.com/cyberpath-HQ/sentinel/sentinel/query"
)

func TestApplyWhere(t *testing.T) {
	tests := []struct {
		expr    string
		op      query.Op
		field   string
		operand interface{}
	}{
		{"age>25", query.OpGreaterThan, "age", float64(25)},
		{"age>=25", query.OpGreaterOrEqual, "age", float64(25)},
		{"age<100", query.OpLessThan, "age", float64(100)},
		{"age<=100", query.OpLessOrEqual, "age", float64(100)},
		{"name=alice", query.OpEquals, "name", "alice"},
		{`name="alice"`, query.OpEquals, "name", "alice"},
		{"active=true", query.OpEquals, "active", true},
		{"city!=boston", query.OpNotEquals, "city", "boston"},
		{"name~li", query.OpContains, "name", "li"},
		{"name^al", query.OpStartsWith, "name", "al"},
		{"name$ce", query.OpEndsWith, "name", "ce"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			b := query.NewBuilder()
			if err := applyWhere(b, tt.expr); err != nil {
				t.Fatalf("applyWhere: %v", err)
			}
			q, err := b.Build()
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			filters := q.Filters()
			if len(filters) != 1 {
				t.Fatalf("got %d filters, want 1", len(filters))
			}
			f := filters[0]
			if f.Op != tt.op || f.Field != tt.field || f.Operand != tt.operand {
				t.Errorf("filter = {%v %q %v}, want {%v %q %v}",
					f.Op, f.Field, f.Operand, tt.op, tt.field, tt.operand)
			}
		})
	}

	b := query.NewBuilder()
	if err := applyWhere(b, "no operator here"); err == nil {
		t.Error("expression without operator was accepted")
	}
	if err := applyWhere(b, "age~5"); err == nil {
		t.Error("numeric contains operand was accepted")
	}
}
