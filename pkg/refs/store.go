// Package refs holds the four vertex references (target1, target2, source1,
// source2) that the alignment operators read.
package refs

import (
	"fmt"
	"sync"

	"github.com/chazu/alignverts/pkg/editmesh"
)

// UnsetLabel is the panel value shown for a slot with no reference.
const UnsetLabel = -1

// VertexRef is either unset (the zero value) or an index into the edit
// mesh's vertex list. Generation records the mesh topology generation the
// index was taken at.
type VertexRef struct {
	index      int
	generation uint64
	set        bool
}

// Unset is the empty reference.
var Unset VertexRef

// Index returns a reference to vertex i taken at the given mesh generation.
func Index(i int, generation uint64) VertexRef {
	return VertexRef{index: i, generation: generation, set: true}
}

// IsSet reports whether the reference holds an index.
func (r VertexRef) IsSet() bool {
	return r.set
}

// Index returns the referenced vertex index and whether the reference is set.
func (r VertexRef) Index() (int, bool) {
	return r.index, r.set
}

// Generation returns the mesh generation recorded at pick time.
func (r VertexRef) Generation() uint64 {
	return r.generation
}

// Label returns the index, or UnsetLabel when unset.
func (r VertexRef) Label() int {
	if !r.set {
		return UnsetLabel
	}
	return r.index
}

func (r VertexRef) String() string {
	if !r.set {
		return "unset"
	}
	return fmt.Sprintf("#%d", r.index)
}

// Refs is a point-in-time copy of all four slots.
type Refs struct {
	Target1 VertexRef
	Target2 VertexRef
	Source1 VertexRef
	Source2 VertexRef
}

// Get returns the slot for role.
func (r Refs) Get(role Role) VertexRef {
	switch role {
	case Target1:
		return r.Target1
	case Target2:
		return r.Target2
	case Source1:
		return r.Source1
	case Source2:
		return r.Source2
	}
	return Unset
}

// Missing returns the roles among want that are unset, in the order given.
func (r Refs) Missing(want ...Role) []Role {
	var missing []Role
	for _, role := range want {
		if !r.Get(role).IsSet() {
			missing = append(missing, role)
		}
	}
	return missing
}

// slot returns a pointer to the field for role, or nil for an unknown role.
func (r *Refs) slot(role Role) *VertexRef {
	switch role {
	case Target1:
		return &r.Target1
	case Target2:
		return &r.Target2
	case Source1:
		return &r.Source1
	case Source2:
		return &r.Source2
	}
	return nil
}

// Store holds the reference slots for an editing session. It is safe for
// concurrent use.
type Store struct {
	mu   sync.Mutex
	refs Refs
}

// NewStore returns a store with every slot unset.
func NewStore() *Store {
	return &Store{}
}

// Pick sets role to the first vertex of selected, in the order given, and
// returns true. With an empty selection the slot is cleared and Pick
// returns false. No other slot is touched.
func (s *Store) Pick(role Role, selected []*editmesh.Vertex, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.refs.slot(role)
	if slot == nil {
		return false
	}
	if len(selected) == 0 {
		*slot = Unset
		return false
	}
	*slot = Index(selected[0].Index, generation)
	return true
}

// Get returns the current reference for role.
func (s *Store) Get(role Role) VertexRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs.Get(role)
}

// Set overwrites the slot for role.
func (s *Store) Set(role Role, ref VertexRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.refs.slot(role)
	if slot == nil {
		return fmt.Errorf("refs: unknown role %v", role)
	}
	*slot = ref
	return nil
}

// Clear unsets the slot for role.
func (s *Store) Clear(role Role) error {
	return s.Set(role, Unset)
}

// Reset unsets every slot.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = Refs{}
}

// Snapshot returns a consistent copy of all four slots.
func (s *Store) Snapshot() Refs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}
