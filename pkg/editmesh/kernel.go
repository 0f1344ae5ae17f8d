package editmesh

import (
	"fmt"
	"math"

	"github.com/chazu/alignverts/pkg/kernel"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultWeldTolerance is the grid spacing used to merge coincident
// triangle-soup vertices.
const DefaultWeldTolerance = 1e-5

// weldKey quantizes a position onto the weld grid.
type weldKey [3]int64

func keyFor(p mgl64.Vec3, tol float64) weldKey {
	return weldKey{
		int64(math.Round(p[0] / tol)),
		int64(math.Round(p[1] / tol)),
		int64(math.Round(p[2] / tol)),
	}
}

// FromKernel builds an edit mesh from a kernel mesh. Vertices closer than
// tol (after snapping to a tol-spaced grid) are merged into one shared
// vertex; triangles that collapse onto fewer than three distinct vertices
// are dropped. A non-positive tol uses DefaultWeldTolerance.
func FromKernel(km *kernel.Mesh, tol float64) (*Mesh, error) {
	if km == nil {
		return nil, fmt.Errorf("editmesh: nil kernel mesh")
	}
	if len(km.Vertices)%3 != 0 {
		return nil, fmt.Errorf("editmesh: vertex array length %d is not a multiple of 3", len(km.Vertices))
	}
	if len(km.Indices)%3 != 0 {
		return nil, fmt.Errorf("editmesh: index array length %d is not a multiple of 3", len(km.Indices))
	}
	if tol <= 0 {
		tol = DefaultWeldTolerance
	}

	m := New(km.Name)
	index := make(map[weldKey]int, km.VertexCount())
	remap := make([]int, km.VertexCount())

	for i := range remap {
		x, y, z := km.Vertex(i)
		p := mgl64.Vec3{float64(x), float64(y), float64(z)}
		k := keyFor(p, tol)
		if j, found := index[k]; found {
			remap[i] = j
			continue
		}
		v := m.AddVertex(p)
		index[k] = v.Index
		remap[i] = v.Index
	}

	for t := 0; t < km.TriangleCount(); t++ {
		var f Face
		for c := 0; c < 3; c++ {
			src := int(km.Indices[3*t+c])
			if src >= len(remap) {
				return nil, fmt.Errorf("%w: triangle %d corner %d", ErrIndexOutOfRange, t, src)
			}
			f[c] = remap[src]
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		m.faces = append(m.faces, f)
	}
	return m, nil
}

// ToKernel exports the mesh as shared-vertex flat arrays. Normals are
// area-weighted averages of the adjacent face normals; vertices without
// faces get a zero normal.
func (m *Mesh) ToKernel() *kernel.Mesh {
	out := &kernel.Mesh{
		Vertices: make([]float32, 0, len(m.verts)*3),
		Normals:  make([]float32, 0, len(m.verts)*3),
		Indices:  make([]uint32, 0, len(m.faces)*3),
		Name:     m.Name,
	}

	acc := make([]mgl64.Vec3, len(m.verts))
	for _, f := range m.faces {
		a, b, c := m.verts[f[0]].Co, m.verts[f[1]].Co, m.verts[f[2]].Co
		// Unnormalized cross product: length is twice the triangle area.
		n := b.Sub(a).Cross(c.Sub(a))
		for _, i := range f {
			acc[i] = acc[i].Add(n)
		}
		out.Indices = append(out.Indices, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}

	for i, v := range m.verts {
		out.Vertices = append(out.Vertices, float32(v.Co[0]), float32(v.Co[1]), float32(v.Co[2]))
		n := acc[i]
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		out.Normals = append(out.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
	}
	return out
}
