// Package ruleeval implements the declarative rule evaluation engine:
// a path resolver over nested JSON-like data, a small row-filter
// expression language, a fixed library of comparison/aggregation
// operators, and the orchestrating evaluator that turns a rule pack
// plus collected module payloads into a findings report.
//
// The engine is a pure function of its inputs. Every malformed input,
// missing key, or type mismatch inside the resolver, filter language
// and operators fails closed (absent value / false) rather than
// returning an error; only the rule-pack loader is fail-loud.
package ruleeval

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// PayloadRoot is the merged namespace rule paths resolve against:
// module name -> that module's payload.
type PayloadRoot = map[string]any

// AsNumber coerces a dynamic value to a float64.
// Booleans coerce to 0/1, numeric strings parse, nil never coerces.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// numeric is like AsNumber but only admits genuinely numeric types.
// Used by equality, where "1" must not equal 1 and true must not equal 1.
func numeric(v any) (float64, bool) {
	switch v.(type) {
	case bool, string, nil:
		return 0, false
	default:
		return AsNumber(v)
	}
}

// equalValues compares two dynamic values. Numbers of different widths
// compare numerically (an int payload value equals a float64 rule
// target); everything else is strict deep equality, so "1" != 1.
func equalValues(a, b any) bool {
	if na, ok := numeric(a); ok {
		nb, ok := numeric(b)
		return ok && na == nb
	}
	if _, ok := numeric(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// truthy reports the boolean weight of a dynamic value: nil, false,
// zero, the empty string and empty collections are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		if f, ok := AsNumber(v); ok {
			return f != 0
		}
		return true
	}
}

// asList normalizes the two slice shapes that appear in payloads.
// Module code builds []map[string]any; JSON decoding yields []any.
func asList(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i, r := range s {
			out[i] = r
		}
		return out, true
	default:
		return nil, false
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
