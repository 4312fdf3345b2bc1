package ruleeval

import "entrascan/internal/rulepack"

// Every operator consumes already-resolved values and returns
// (passed, diagnostic). Diagnostics are attached to findings for human
// context; their shape is operator-specific and not a machine contract.
// Operators never return errors: malformed input means the check fails.

func opEquals(actual, target any) (bool, any) {
	return equalValues(actual, target), actual
}

func opLTE(actual, target any) (bool, any) {
	a, okA := AsNumber(actual)
	b, okB := AsNumber(target)
	return okA && okB && a <= b, actual
}

func opGTE(actual, target any) (bool, any) {
	a, okA := AsNumber(actual)
	b, okB := AsNumber(target)
	return okA && okB && a >= b, actual
}

func dispatchSimple(op string, actual, target any) (bool, any) {
	switch op {
	case "equals":
		return opEquals(actual, target)
	case "lte":
		return opLTE(actual, target)
	case "gte":
		return opGTE(actual, target)
	default:
		return false, actual
	}
}

// opAll resolves each sub-check path against the FULL payload root (not
// the rule's own source) and short-circuits on the first failure, whose
// resolved value becomes the diagnostic.
func opAll(root PayloadRoot, checks []rulepack.SubCheck) (bool, any) {
	for _, chk := range checks {
		val := Resolve(root, chk.Path)
		ok, _ := dispatchSimple(chk.Op, val, chk.Value)
		if !ok {
			return false, val
		}
	}
	return true, nil
}

// opRatioGTE fails closed on a non-numeric numerator or a non-numeric
// or zero denominator; it never divides by zero.
func opRatioGTE(root PayloadRoot, numPath, denPath string, threshold float64) (bool, any) {
	num := Resolve(root, numPath)
	den := Resolve(root, denPath)
	a, okA := AsNumber(num)
	b, okB := AsNumber(den)
	if !okA || !okB || b == 0 {
		return false, map[string]any{"numerator": num, "denominator": den}
	}
	ratio := a / b
	return ratio >= threshold, map[string]any{"ratio": ratio, "numerator": a, "denominator": b}
}

// opCountWhere counts the rows of subject matching the filter expression
// and compares the count against cmp. A non-list subject and an
// unrecognized compare op both fail closed.
func opCountWhere(subject any, expr string, cmp *rulepack.Compare) (bool, any) {
	rows, ok := asList(subject)
	if !ok {
		return false, map[string]any{"error": "not_a_list"}
	}
	n := 0
	for _, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if EvalFilter(row, expr) {
			n++
		}
	}
	op, target := "eq", 0.0
	if cmp != nil {
		op, target = cmp.Op, cmp.Value
		if op == "" {
			op = "eq"
		}
	}
	var passed bool
	switch op {
	case "eq":
		passed = float64(n) == target
	case "lte":
		passed = float64(n) <= target
	case "gte":
		passed = float64(n) >= target
	default:
		passed = false
	}
	return passed, map[string]any{"matched": n, "target": target, "op": op}
}

// opNoneMatch is count_where sugar: passes iff zero rows match.
func opNoneMatch(subject any, expr string) (bool, any) {
	return opCountWhere(subject, expr, &rulepack.Compare{Op: "eq", Value: 0})
}
