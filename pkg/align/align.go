package align

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/alignverts/pkg/editmesh"
	"github.com/chazu/alignverts/pkg/refs"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrMissingReference means a required reference slot is unset.
	ErrMissingReference = errors.New("align: missing reference")

	// ErrStaleReference means a reference no longer addresses the vertex it
	// was picked from: the index is out of range, or (with
	// Options.RejectStale) vertices were renumbered since the pick.
	ErrStaleReference = errors.New("align: stale reference")
)

// Options tunes reference validation.
type Options struct {
	// RejectStale cancels when a reference was picked at a different mesh
	// generation. Out-of-range indices are always rejected.
	RejectStale bool
}

// DefaultOptions rejects stale references.
func DefaultOptions() Options {
	return Options{RejectStale: true}
}

// OnePoint translates every vertex in selected by pos(target1) − pos(source1).
// Unselected vertices are untouched; the reference vertices move too when
// they are in selected. On error nothing is mutated.
func OnePoint(m *editmesh.Mesh, selected []*editmesh.Vertex, r refs.Refs, opts Options) error {
	pos, err := resolve(m, r, opts, refs.Target1, refs.Source1)
	if err != nil {
		return err
	}

	delta := Translation(pos[0], pos[1])
	for _, v := range selected {
		v.Co = v.Co.Add(delta)
	}
	return nil
}

// TwoPoint applies the similarity transform mapping segment source1→source2
// onto target1→target2 to every vertex in selected. All reference positions
// are read before any vertex moves. On error nothing is mutated.
func TwoPoint(m *editmesh.Mesh, selected []*editmesh.Vertex, r refs.Refs, mode ScaleMode, opts Options) error {
	pos, err := resolve(m, r, opts, refs.Target1, refs.Target2, refs.Source1, refs.Source2)
	if err != nil {
		return err
	}

	t := Similarity(pos[0], pos[1], pos[2], pos[3], mode)
	for _, v := range selected {
		v.Co = t.Apply(v.Co)
	}
	return nil
}

// TwoPointTransform returns the transform TwoPoint would apply, without
// touching the mesh.
func TwoPointTransform(m *editmesh.Mesh, r refs.Refs, mode ScaleMode, opts Options) (Transform, error) {
	pos, err := resolve(m, r, opts, refs.Target1, refs.Target2, refs.Source1, refs.Source2)
	if err != nil {
		return Identity(), err
	}
	return Similarity(pos[0], pos[1], pos[2], pos[3], mode), nil
}

// resolve checks that every role in want is set and valid for m, and
// returns their positions in the same order.
func resolve(m *editmesh.Mesh, r refs.Refs, opts Options, want ...refs.Role) ([]mgl64.Vec3, error) {
	if missing := r.Missing(want...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingReference, roleList(missing))
	}

	pos := make([]mgl64.Vec3, len(want))
	for i, role := range want {
		ref := r.Get(role)
		idx, _ := ref.Index()
		if opts.RejectStale && ref.Generation() != m.Generation() {
			return nil, fmt.Errorf("%w: %s %s was picked before vertices were renumbered", ErrStaleReference, role, ref)
		}
		v, err := m.Vertex(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrStaleReference, role, err)
		}
		pos[i] = v.Co
	}
	return pos, nil
}

func roleList(roles []refs.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}
