package taskconfig

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/n0roo/aces/internal/windowtree"
)

// parseHasConstraint parses the `(min, max)` syntax of §6: either
// component may be blank or "None", meaning unbounded on that side. Both
// bounds are inclusive, non-negative integers.
func parseHasConstraint(raw string) (windowtree.HasConstraint, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return windowtree.HasConstraint{}, fmt.Errorf("taskconfig: has constraint %q must be of the form \"(min?, max?)\"", raw)
	}
	inner := s[1 : len(s)-1]
	parts := strings.SplitN(inner, ",", 2)
	if len(parts) != 2 {
		return windowtree.HasConstraint{}, fmt.Errorf("taskconfig: has constraint %q must have exactly two comma-separated bounds", raw)
	}

	min, err := parseHasBound(parts[0])
	if err != nil {
		return windowtree.HasConstraint{}, fmt.Errorf("taskconfig: has constraint %q: min bound: %w", raw, err)
	}
	max, err := parseHasBound(parts[1])
	if err != nil {
		return windowtree.HasConstraint{}, fmt.Errorf("taskconfig: has constraint %q: max bound: %w", raw, err)
	}
	if min != nil && max != nil && *max < *min {
		return windowtree.HasConstraint{}, fmt.Errorf("taskconfig: has constraint %q: max is less than min", raw)
	}
	return windowtree.HasConstraint{Min: min, Max: max}, nil
}

func parseHasBound(raw string) (*int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "None" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	if n < 0 {
		return nil, fmt.Errorf("bound must be non-negative: %d", n)
	}
	return &n, nil
}
