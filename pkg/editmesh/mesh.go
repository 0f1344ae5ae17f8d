// Package editmesh is the edit-mode mesh the alignment tools operate on:
// an indexable collection of vertices, each with a mutable position and a
// selection flag, plus the triangles that connect them.
//
// A Mesh is not safe for concurrent use. Callers that share one across
// goroutines serialize access themselves (see package session).
package editmesh

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrIndexOutOfRange is returned when a vertex index does not address a
// vertex of the mesh.
var ErrIndexOutOfRange = errors.New("editmesh: vertex index out of range")

// Vertex is a single mesh vertex. Index is its position in the mesh and is
// kept current by the mesh when vertices are removed.
type Vertex struct {
	Index    int
	Co       mgl64.Vec3
	Selected bool
}

// Face is a triangle referencing three vertex indices.
type Face [3]int

// Mesh is an edit-mode mesh.
type Mesh struct {
	Name string

	verts      []*Vertex
	faces      []Face
	generation uint64
}

// New returns an empty mesh.
func New(name string) *Mesh {
	return &Mesh{Name: name}
}

// FromPositions builds a mesh with one unselected vertex per position.
func FromPositions(name string, positions ...mgl64.Vec3) *Mesh {
	m := New(name)
	for _, p := range positions {
		m.AddVertex(p)
	}
	return m
}

// Len returns the number of vertices.
func (m *Mesh) Len() int {
	return len(m.verts)
}

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int {
	return len(m.faces)
}

// Generation returns a counter that changes whenever existing vertices are
// renumbered, which today means RemoveVertex. Appending vertices leaves it
// alone since earlier indices keep addressing the same vertices. A vertex
// index recorded at one generation is only known to address the same vertex
// while the generation is unchanged.
func (m *Mesh) Generation() uint64 {
	return m.generation
}

// Vertex returns the vertex at index i.
func (m *Mesh) Vertex(i int) (*Vertex, error) {
	if i < 0 || i >= len(m.verts) {
		return nil, fmt.Errorf("%w: %d (mesh has %d vertices)", ErrIndexOutOfRange, i, len(m.verts))
	}
	return m.verts[i], nil
}

// Vertices returns the vertices in index order. The slice is a copy; the
// vertices are shared with the mesh.
func (m *Mesh) Vertices() []*Vertex {
	out := make([]*Vertex, len(m.verts))
	copy(out, m.verts)
	return out
}

// Faces returns a copy of the triangle list.
func (m *Mesh) Faces() []Face {
	out := make([]Face, len(m.faces))
	copy(out, m.faces)
	return out
}

// Positions returns a snapshot of every vertex position in index order.
func (m *Mesh) Positions() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(m.verts))
	for i, v := range m.verts {
		out[i] = v.Co
	}
	return out
}

// AddVertex appends an unselected vertex at co and returns it.
func (m *Mesh) AddVertex(co mgl64.Vec3) *Vertex {
	v := &Vertex{Index: len(m.verts), Co: co}
	m.verts = append(m.verts, v)
	return v
}

// AddFace appends a triangle. All three indices must address vertices.
func (m *Mesh) AddFace(a, b, c int) error {
	for _, i := range [3]int{a, b, c} {
		if i < 0 || i >= len(m.verts) {
			return fmt.Errorf("%w: face corner %d (mesh has %d vertices)", ErrIndexOutOfRange, i, len(m.verts))
		}
	}
	m.faces = append(m.faces, Face{a, b, c})
	return nil
}

// RemoveVertex deletes the vertex at index i. Later vertices shift down by
// one and their Index fields are updated. Faces using the vertex are
// dropped; the remaining faces are renumbered.
func (m *Mesh) RemoveVertex(i int) error {
	if i < 0 || i >= len(m.verts) {
		return fmt.Errorf("%w: %d (mesh has %d vertices)", ErrIndexOutOfRange, i, len(m.verts))
	}
	m.verts = append(m.verts[:i], m.verts[i+1:]...)
	for j := i; j < len(m.verts); j++ {
		m.verts[j].Index = j
	}

	faces := m.faces[:0]
	for _, f := range m.faces {
		if f[0] == i || f[1] == i || f[2] == i {
			continue
		}
		for k := range f {
			if f[k] > i {
				f[k]--
			}
		}
		faces = append(faces, f)
	}
	m.faces = faces
	m.generation++
	return nil
}

// Append copies every vertex and face of other into m, offsetting face
// indices. Selection flags are copied. It returns the index of the first
// appended vertex.
func (m *Mesh) Append(other *Mesh) int {
	offset := len(m.verts)
	for _, v := range other.verts {
		nv := m.AddVertex(v.Co)
		nv.Selected = v.Selected
	}
	for _, f := range other.faces {
		m.faces = append(m.faces, Face{f[0] + offset, f[1] + offset, f[2] + offset})
	}
	return offset
}

// Clone returns a deep copy of the mesh, including its generation.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Name:       m.Name,
		verts:      make([]*Vertex, len(m.verts)),
		faces:      make([]Face, len(m.faces)),
		generation: m.generation,
	}
	for i, v := range m.verts {
		nv := *v
		c.verts[i] = &nv
	}
	copy(c.faces, m.faces)
	return c
}
