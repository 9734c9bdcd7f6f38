// Package assertion evaluates the typed comparison operators of §4.2
// against values extracted by internal/fieldpath. A comparison that
// itself raises (e.g. ordering across incompatible types) degrades the
// single assertion to failed with a message instead of aborting the
// step — the AssertionEvalError case of spec.md §7.
package assertion

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/Amr-9/saylrun/internal/fieldpath"
	"github.com/Amr-9/saylrun/pkg/models"
)

// Detail is one assertion's evaluation result.
type Detail = models.AssertionDetail

// EvaluateAll evaluates every assertion against root (the {status,body}
// tree) and returns the passed/failed counts plus a per-assertion
// breakdown, in order, matching spec.md's batch contract exactly.
func EvaluateAll(root any, assertions []models.Assertion) (passed, failed int, details []Detail) {
	details = make([]Detail, 0, len(assertions))
	for _, a := range assertions {
		d := evaluateOne(root, a)
		details = append(details, d)
		if d.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed, details
}

func evaluateOne(root any, a models.Assertion) (detail Detail) {
	detail = Detail{
		Field:    a.Field,
		Operator: a.Operator,
		Expected: a.Value,
	}

	defer func() {
		if r := recover(); r != nil {
			detail.Passed = false
			detail.Message = formatMessage(a, fmt.Sprintf("assertion evaluation error: %v", r))
		}
	}()

	actual, exists := fieldpath.Resolve(root, a.Field)
	detail.Actual = actual

	passed, err := compare(actual, exists, a.Operator, a.Value)
	detail.Passed = passed
	if err != nil {
		detail.Passed = false
		detail.Message = formatMessage(a, err.Error())
		return detail
	}
	if passed {
		detail.Message = fmt.Sprintf("%s %s %v", a.Field, a.Operator, a.Value)
	} else {
		detail.Message = formatMessage(a, fmt.Sprintf("expected %s %v, got %v", a.Operator, a.Value, actual))
	}
	return detail
}

func formatMessage(a models.Assertion, fallback string) string {
	if a.Message != "" {
		return a.Message
	}
	return fallback
}

// compare performs the operator-table comparison. Ordering incompatible
// types or an unknown operator returns an error, and any panic inside is
// caught by evaluateOne's recover; both become a failed assertion, never
// a step abort.
func compare(actual any, exists bool, op models.AssertionOperator, expected any) (bool, error) {
	switch op {
	case models.OpEQ:
		return structuralEqual(actual, expected), nil
	case models.OpNE:
		return !structuralEqual(actual, expected), nil
	case models.OpGT, models.OpLT, models.OpGTE, models.OpLTE:
		return compareOrdered(actual, op, expected)
	case models.OpContains:
		return containsValue(actual, expected), nil
	case models.OpNotContains:
		return !containsValue(actual, expected), nil
	case models.OpIn:
		return containsValue(expected, actual), nil
	case models.OpNotIn:
		return !containsValue(expected, actual), nil
	case models.OpRegex:
		return matchRegex(actual, expected), nil
	case models.OpExists:
		return exists, nil
	default:
		return false, fmt.Errorf("unknown assertion operator %q", op)
	}
}

func structuralEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func compareOrdered(actual any, op models.AssertionOperator, expected any) (bool, error) {
	if af, aok := toFloat(actual); aok {
		if bf, bok := toFloat(expected); bok {
			return applyOrder(op, numCompare(af, bf)), nil
		}
	}
	as, aok := actual.(string)
	bs, bok := expected.(string)
	if aok && bok {
		return applyOrder(op, strings.Compare(as, bs)), nil
	}
	return false, fmt.Errorf("operands are not ordered-comparable: %v (%T) vs %v (%T)", actual, actual, expected, expected)
}

func numCompare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func applyOrder(op models.AssertionOperator, cmp int) bool {
	switch op {
	case models.OpGT:
		return cmp > 0
	case models.OpLT:
		return cmp < 0
	case models.OpGTE:
		return cmp >= 0
	case models.OpLTE:
		return cmp <= 0
	}
	return false
}

func containsValue(actual, needle any) bool {
	switch v := actual.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			return false
		}
		return strings.Contains(v, s)
	case []any:
		for _, item := range v {
			if structuralEqual(item, needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchRegex(actual, pattern any) bool {
	s, ok := actual.(string)
	if !ok {
		return false
	}
	p, ok := pattern.(string)
	if !ok {
		return false
	}
	if !strings.HasPrefix(p, "^") {
		p = "^(?:" + p + ")"
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
