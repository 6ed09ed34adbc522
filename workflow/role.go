package workflow

import (
	"fmt"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Role is the structural role of a plugin occurrence within a stage.
type Role int

const (
	// RoleInput acquires data for a connector stage.
	RoleInput Role = iota
	// RoleFilter produces the value list for one connector variable.
	RoleFilter
	// RoleProcessor transforms the outputs of earlier stages.
	RoleProcessor
)

// String returns the document spelling of the role.
func (r Role) String() string {
	switch r {
	case RoleInput:
		return "Input"
	case RoleFilter:
		return "Filter"
	case RoleProcessor:
		return "Processor"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Connector reports whether the role belongs to a connector stage.
func (r Role) Connector() bool {
	return r == RoleInput || r == RoleFilter
}

// ParseRole converts a document spelling back into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "Input":
		return RoleInput, nil
	case "Filter":
		return RoleFilter, nil
	case "Processor":
		return RoleProcessor, nil
	default:
		return 0, apperrors.Validation(fmt.Sprintf("unknown plugin role %q", s))
	}
}
