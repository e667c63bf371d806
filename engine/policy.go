package engine

import (
	"fmt"
	"strings"
)

// Policy decides how often the index is queried per recommendation.
type Policy uint8

const (
	// PolicySingleShot queries the index once.
	PolicySingleShot Policy = iota
	// PolicyAdaptive doubles k until the result is full or the index is exhausted.
	PolicyAdaptive
)

// DefaultMargin is the number of extra candidates requested beyond
// count + |exclude|.
const DefaultMargin = 40

func (p Policy) String() string {
	switch p {
	case PolicySingleShot:
		return "single-shot"
	case PolicyAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// ParsePolicy parses "single-shot" or "adaptive".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single-shot", "singleshot", "single":
		return PolicySingleShot, nil
	case "adaptive":
		return PolicyAdaptive, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", s)
	}
}
