package conversion

import (
	"encoding/json"
	"fmt"
	"math"
)

// Number converts a loosely-typed value to a finite float64.
// Strings, booleans, nil and non-finite numbers fail with ErrInvalidArgument;
// numeric strings are not coerced.
func Number(v any) (float64, error) {
	f, ok := numeric(v)
	if !ok {
		return 0, fmt.Errorf("%w: value must be a finite number, got %s", ErrInvalidArgument, describe(v))
	}
	if !isFinite(f) {
		return 0, fmt.Errorf("%w: value must be a finite number, got %v", ErrInvalidArgument, f)
	}
	return f, nil
}

// Series converts a loosely-typed value to a series of finite numbers.
// Anything that is not a slice, or a slice holding a non-number or a
// non-finite number, fails with ErrInvalidArgument.
func Series(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		for i, f := range s {
			if !isFinite(f) {
				return nil, fmt.Errorf("%w: series[%d] is not a finite number", ErrInvalidArgument, i)
			}
		}
		return s, nil
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := numeric(e)
			if !ok || !isFinite(f) {
				return nil, fmt.Errorf("%w: series[%d] is not a finite number", ErrInvalidArgument, i)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: series must be a sequence, got %s", ErrInvalidArgument, describe(v))
	}
}

// Window converts a loosely-typed value to a window size. Values that are
// not integral numbers fail with ErrOutOfRange; the bounds themselves are
// checked by MovingAverages.
func Window(v any) (int, error) {
	f, ok := numeric(v)
	if !ok || !isFinite(f) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: window must be an integer, got %s", ErrOutOfRange, describe(v))
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: window %v exceeds any series length", ErrOutOfRange, f)
	}
	return int(f), nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("string %q", t)
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%v", t)
	}
}
