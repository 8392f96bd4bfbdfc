package types

import "reflect"

// valueRank orders JSON kinds for cross-kind comparison:
// null < bool < number < string < array < object.
func valueRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64, int, int64:
		return 2
	case string:
		return 3
	case []interface{}:
		return 4
	case map[string]interface{}:
		return 5
	}
	return 6
}

// AsNumber normalizes a JSON number to float64. Decoded JSON always yields
// float64 but operands supplied directly by callers may be Go ints.
func AsNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Equal reports structural, type-sensitive equality of two JSON values.
// A number never equals a string holding the same digits. Numeric values
// are compared after normalization so int operands match decoded float64s.
func Equal(a, b interface{}) bool {
	if na, ok := AsNumber(a); ok {
		nb, ok := AsNumber(b)
		return ok && na == nb
	}
	if _, ok := AsNumber(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two JSON values for sorting. Different kinds order by kind
// rank. Within a kind: booleans false<true, numbers numerically, strings
// lexicographically, arrays and objects by length.
func Compare(a, b interface{}) int {
	ra, rb := valueRank(a), valueRank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch va := a.(type) {
	case nil:
		return 0
	case bool:
		vb := b.(bool)
		switch {
		case va == vb:
			return 0
		case !va:
			return -1
		}
		return 1
	case string:
		vb := b.(string)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
		return 0
	case []interface{}:
		return cmpInt(len(va), len(b.([]interface{})))
	case map[string]interface{}:
		return cmpInt(len(va), len(b.(map[string]interface{})))
	}
	na, _ := AsNumber(a)
	nb, _ := AsNumber(b)
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
