package store

import (
	"fmt"
)

// validateWhere checks that a metadata filter only uses supported operators.
func validateWhere(where map[string]any) error {
	for key, cond := range where {
		ops, ok := cond.(map[string]any)
		if !ok {
			if !isScalar(cond) {
				return fmt.Errorf("%w: where value for %q must be a scalar", ErrInvalidArgument, key)
			}
			continue
		}
		for op, v := range ops {
			switch op {
			case "$eq", "$ne":
				if !isScalar(v) {
					return fmt.Errorf("%w: %s operand for %q must be a scalar", ErrInvalidArgument, op, key)
				}
			case "$in":
				if _, ok := v.([]any); !ok {
					return fmt.Errorf("%w: $in operand for %q must be a list", ErrInvalidArgument, key)
				}
			default:
				return fmt.Errorf("%w: unsupported where operator %q", ErrInvalidArgument, op)
			}
		}
	}
	return nil
}

// matchWhere reports whether metadata satisfies every condition in where.
// A bare value means equality.
func matchWhere(metadata, where map[string]any) bool {
	for key, cond := range where {
		got, present := metadata[key]

		ops, ok := cond.(map[string]any)
		if !ok {
			if !present || !equalValue(got, cond) {
				return false
			}
			continue
		}

		for op, v := range ops {
			switch op {
			case "$eq":
				if !present || !equalValue(got, v) {
					return false
				}
			case "$ne":
				if present && equalValue(got, v) {
					return false
				}
			case "$in":
				if !present {
					return false
				}
				list, _ := v.([]any)
				found := false
				for _, item := range list {
					if equalValue(got, item) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
		}
	}
	return true
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int32, int64, uint, uint32, uint64:
		return true
	}
	return false
}

// equalValue compares metadata scalars, treating all numeric kinds alike so
// values decoded from JSON compare equal to Go literals.
func equalValue(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
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
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
