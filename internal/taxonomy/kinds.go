package taxonomy

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Kind is the value type the service expects for a field.
type Kind int

const (
	String Kind = iota
	Int
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Accepts reports whether v is a value of kind k after [Normalize].
func (k Kind) Accepts(v any) bool {
	switch Normalize(v).(type) {
	case string:
		return k == String
	case int64:
		return k == Int
	case bool:
		return k == Bool
	default:
		return false
	}
}

// Normalize folds the numeric representations produced by JSON decoding and Go literals into int64
// where the value is integral, so that values read from the wire compare equal to values written by callers.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	default:
		return v
	}
}

// NormalizeRecord applies [Normalize] to each value of rec in place and returns it.
func NormalizeRecord(rec map[string]any) map[string]any {
	for k, v := range rec {
		rec[k] = Normalize(v)
	}
	return rec
}

// Equal compares two field values after normalization.
func Equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Identity is a [DeriveFunc] that copies the master value.
func Identity(master any) (any, error) {
	return master, nil
}

// Lowercase is a [DeriveFunc] that lowercases a string master value.
func Lowercase(master any) (any, error) {
	s, ok := master.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", master)
	}
	return strings.ToLower(s), nil
}
