package automation

import (
	"fmt"
	"strconv"
	"strings"
)

// EvaluateConditions reports whether every condition holds against vars.
// An empty list always matches.
func EvaluateConditions(conditions []Condition, vars map[string]interface{}) bool {
	for _, cond := range conditions {
		if !evaluateCondition(cond, vars) {
			return false
		}
	}
	return true
}

func evaluateCondition(cond Condition, vars map[string]interface{}) bool {
	val, exists := vars[cond.Field]

	if cond.Operator == OperatorExists {
		return exists && val != nil && fmt.Sprint(val) != ""
	}
	if !exists || val == nil {
		return false
	}

	switch cond.Operator {
	case OperatorEquals:
		if l, lok := toFloat(val); lok {
			if r, rok := toFloat(cond.Value); rok {
				return l == r
			}
		}
		return fmt.Sprint(val) == fmt.Sprint(cond.Value)
	case OperatorContains:
		return strings.Contains(fmt.Sprint(val), fmt.Sprint(cond.Value))
	case OperatorGreaterThan:
		return compare(val, cond.Value) > 0
	case OperatorLessThan:
		return compare(val, cond.Value) < 0
	default:
		return false
	}
}

// compare orders numerically when both sides are numbers, lexically otherwise.
func compare(left, right interface{}) int {
	l, lok := toFloat(left)
	r, rok := toFloat(right)
	if lok && rok {
		switch {
		case l > r:
			return 1
		case l < r:
			return -1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(left), fmt.Sprint(right))
}

func toFloat(v interface{}) (float64, bool) {
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
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
