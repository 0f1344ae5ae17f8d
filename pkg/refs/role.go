package refs

import "fmt"

//go:generate go tool stringer -type=Role -linecomment -output=role_string.go

// Role names one of the four reference slots.
type Role int

const (
	Target1 Role = iota // target1
	Target2             // target2
	Source1             // source1
	Source2             // source2
)

// Roles lists every role in panel order.
var Roles = [...]Role{Target1, Target2, Source1, Source2}

// Label is the human-readable slot name, e.g. "Target 1".
func (r Role) Label() string {
	switch r {
	case Target1:
		return "Target 1"
	case Target2:
		return "Target 2"
	case Source1:
		return "Source 1"
	case Source2:
		return "Source 2"
	default:
		return r.String()
	}
}

// ParseRole accepts a role name ("target1") or its short key ("t1").
func ParseRole(s string) (Role, error) {
	switch s {
	case "target1", "t1":
		return Target1, nil
	case "target2", "t2":
		return Target2, nil
	case "source1", "s1":
		return Source1, nil
	case "source2", "s2":
		return Source2, nil
	}
	return 0, fmt.Errorf("refs: unknown role %q, expected target1, target2, source1 or source2", s)
}
