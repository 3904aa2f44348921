package event

import (
	"fmt"
	"strings"
)

// Priority determines listener execution order.
// Lower values execute first.
type Priority int8

const (
	// PriorityLowest runs before every other priority.
	PriorityLowest Priority = -1

	// PriorityLow runs after PriorityLowest.
	PriorityLow Priority = 0

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 1

	// PriorityHigh runs after PriorityNormal.
	PriorityHigh Priority = 2

	// PriorityHighest runs last.
	PriorityHighest Priority = 3
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLowest:
		return "lowest"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityHighest:
		return "highest"
	default:
		return fmt.Sprintf("priority(%d)", int8(p))
	}
}

// Valid reports whether p is one of the declared priorities.
func (p Priority) Valid() bool {
	return p >= PriorityLowest && p <= PriorityHighest
}

// ParsePriority converts a priority name (case-insensitive) to a Priority.
// An empty name yields PriorityNormal.
func ParsePriority(name string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lowest":
		return PriorityLowest, nil
	case "low":
		return PriorityLow, nil
	case "", "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "highest":
		return PriorityHighest, nil
	default:
		return PriorityNormal, fmt.Errorf("%w: unknown priority %q", ErrInvalidArgument, name)
	}
}

// Priorities returns every declared priority in execution order.
func Priorities() []Priority {
	return []Priority{PriorityLowest, PriorityLow, PriorityNormal, PriorityHigh, PriorityHighest}
}
