package customelements

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/agentflare-ai/go-xmldom"
)

// ToCallback converts a property value to a Callback.
func ToCallback(v any) (Callback, error) {
	switch cb := v.(type) {
	case Callback:
		return cb, nil
	case func(context.Context, xmldom.Element, ...any) error:
		return CallbackFunc(cb), nil
	}
	return nil, newError(CallbackNotCallable, "", "%s is not a function", describe(v))
}

// ToStringSequence converts a property value to an ordered sequence of strings.
// Errors raised by the host while iterating are returned unchanged.
func ToStringSequence(v any) ([]string, error) {
	switch seq := v.(type) {
	case []string:
		return slices.Clone(seq), nil
	case []any:
		out := make([]string, 0, len(seq))
		for _, item := range seq {
			s, err := ToString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case Iterable:
		var out []string
		for item, err := range seq.All() {
			if err != nil {
				return nil, err
			}
			s, err := ToString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, newError(NotIterable, "", "%s is not iterable", describe(v))
}

// ToString converts a scalar host value to a string.
func ToString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "undefined", nil
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	case bool:
		return strconv.FormatBool(s), nil
	case int:
		return strconv.Itoa(s), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", s), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", s), nil
	case float32:
		return formatNumber(float64(s)), nil
	case float64:
		return formatNumber(s), nil
	}
	return "", newError(ConversionFailed, "", "cannot convert %s to a string", describe(v))
}

// ToBoolean converts a host value using truthiness: absent, false, "", 0 and NaN are
// false, everything else is true.
func ToBoolean(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	case int:
		return b != 0
	case int8:
		return b != 0
	case int16:
		return b != 0
	case int32:
		return b != 0
	case int64:
		return b != 0
	case uint:
		return b != 0
	case uint8:
		return b != 0
	case uint16:
		return b != 0
	case uint32:
		return b != 0
	case uint64:
		return b != 0
	case uintptr:
		return b != 0
	case float32:
		return b != 0 && !math.IsNaN(float64(b))
	case float64:
		return b != 0 && !math.IsNaN(b)
	}
	return true
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func describe(v any) string {
	if v == nil {
		return "undefined"
	}
	return fmt.Sprintf("%T", v)
}
