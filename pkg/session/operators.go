package session

import (
	"fmt"

	"github.com/chazu/alignverts/pkg/align"
	"github.com/chazu/alignverts/pkg/refs"
)

// Operator IDs.
const (
	OpTarget1Select        = "object.target1_select"
	OpTarget2Select        = "object.target2_select"
	OpSource1Select        = "object.source1_select"
	OpSource2Select        = "object.source2_select"
	OpAlignOnePoint        = "object.align_one_point"
	OpAlignTwoPoint        = "object.align_two_point"
	OpAlignTwoPointNoScale = "object.align_two_point_no_scale"
)

// Operator describes one runnable action.
type Operator struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	run   func(s *Session) Result
}

func pickOperator(id string, role refs.Role) Operator {
	return Operator{
		ID:    id,
		Label: "Select " + role.Label(),
		run:   func(s *Session) Result { return s.Pick(role) },
	}
}

var operators = []Operator{
	pickOperator(OpTarget1Select, refs.Target1),
	pickOperator(OpTarget2Select, refs.Target2),
	pickOperator(OpSource1Select, refs.Source1),
	pickOperator(OpSource2Select, refs.Source2),
	{
		ID:    OpAlignOnePoint,
		Label: "Align by 1 Point",
		run:   func(s *Session) Result { return s.AlignOnePoint() },
	},
	{
		ID:    OpAlignTwoPoint,
		Label: "Align by 2 Points with Scale",
		run:   func(s *Session) Result { return s.AlignTwoPoint(align.WithScale) },
	},
	{
		ID:    OpAlignTwoPointNoScale,
		Label: "Align by 2 Points no Scale",
		run:   func(s *Session) Result { return s.AlignTwoPoint(align.WithoutScale) },
	},
}

// Operators lists every operator in panel order.
func Operators() []Operator {
	out := make([]Operator, len(operators))
	copy(out, operators)
	return out
}

// PickOperatorID returns the select operator for role.
func PickOperatorID(role refs.Role) string {
	return fmt.Sprintf("object.%s_select", role)
}

// Run executes the operator with the given ID.
func (s *Session) Run(id string) (Result, error) {
	for _, op := range operators {
		if op.ID == id {
			return op.run(s), nil
		}
	}
	return Result{}, fmt.Errorf("session: unknown operator %q", id)
}

// Panel returns the panel rows: one label per reference slot showing its
// index (-1 when unset), then the three alignment operators.
func (s *Session) Panel() []string {
	snap := s.store.Snapshot()
	rows := make([]string, 0, len(refs.Roles)+3)
	for _, role := range refs.Roles {
		rows = append(rows, fmt.Sprintf("%s id: %d", role.Label(), snap.Get(role).Label()))
	}
	for _, op := range operators[len(refs.Roles):] {
		rows = append(rows, op.Label)
	}
	return rows
}
