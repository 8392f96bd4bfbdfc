package types

import "testing"

func TestEqualIsTypeSensitive(t *testing.T) {
	if Equal(float64(30), "30") {
		t.Error("number 30 should not equal string \"30\"")
	}
	if Equal("30", float64(30)) {
		t.Error("string \"30\" should not equal number 30")
	}
	if !Equal(float64(30), 30) {
		t.Error("int operand should match decoded float64")
	}
	if !Equal(nil, nil) {
		t.Error("null should equal null")
	}
	if Equal(nil, false) {
		t.Error("null should not equal false")
	}
	if !Equal("abc", "abc") {
		t.Error("equal strings should match")
	}
}

func TestEqualStructural(t *testing.T) {
	a := map[string]interface{}{"tags": []interface{}{"a", "b"}, "n": float64(1)}
	b := map[string]interface{}{"n": float64(1), "tags": []interface{}{"a", "b"}}
	if !Equal(a, b) {
		t.Error("structurally identical objects should be equal")
	}
	c := map[string]interface{}{"n": float64(2), "tags": []interface{}{"a", "b"}}
	if Equal(a, c) {
		t.Error("objects differing in one value should not be equal")
	}
}

func TestCompareWithinKind(t *testing.T) {
	cases := []struct {
		name string
		a, b interface{}
		want int
	}{
		{"numbers", float64(1), float64(2), -1},
		{"numbers equal", float64(2), float64(2), 0},
		{"strings", "alice", "bob", -1},
		{"bools", false, true, -1},
		{"nulls", nil, nil, 0},
		{"arrays by length", []interface{}{1}, []interface{}{1, 2}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Compare(tc.a, tc.b); got != tc.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCompareAcrossKinds(t *testing.T) {
	// null < bool < number < string < array < object
	ordered := []interface{}{
		nil,
		true,
		float64(9),
		"a",
		[]interface{}{},
		map[string]interface{}{},
	}
	for i := 0; i < len(ordered)-1; i++ {
		if Compare(ordered[i], ordered[i+1]) >= 0 {
			t.Errorf("kind %d should order before kind %d", i, i+1)
		}
	}
}
