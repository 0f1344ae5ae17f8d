package editmesh

import "fmt"

// Select marks the given vertices as selected. Existing selection is kept.
// Every index is checked first; on error no flag has changed.
func (m *Mesh) Select(indices ...int) error {
	return m.setSelected(true, indices)
}

// Deselect clears the selection flag of the given vertices. Like Select, it
// changes nothing when any index is out of range.
func (m *Mesh) Deselect(indices ...int) error {
	return m.setSelected(false, indices)
}

func (m *Mesh) setSelected(selected bool, indices []int) error {
	for _, i := range indices {
		if _, err := m.Vertex(i); err != nil {
			return err
		}
	}
	for _, i := range indices {
		m.verts[i].Selected = selected
	}
	return nil
}

// SelectRange selects the vertices with index in [from, to). The bounds are
// checked against the mesh before anything is selected.
func (m *Mesh) SelectRange(from, to int) error {
	if from < 0 || from > len(m.verts) {
		return fmt.Errorf("%w: range start %d (mesh has %d vertices)", ErrIndexOutOfRange, from, len(m.verts))
	}
	if to < from || to > len(m.verts) {
		return fmt.Errorf("%w: range end %d (mesh has %d vertices)", ErrIndexOutOfRange, to, len(m.verts))
	}
	for _, v := range m.verts[from:to] {
		v.Selected = true
	}
	return nil
}

// SelectAll selects every vertex.
func (m *Mesh) SelectAll() {
	for _, v := range m.verts {
		v.Selected = true
	}
}

// DeselectAll clears the selection.
func (m *Mesh) DeselectAll() {
	for _, v := range m.verts {
		v.Selected = false
	}
}

// Selected returns the selected vertices in index order. The slice is a
// snapshot: later selection changes do not affect it, but the vertices
// themselves are shared with the mesh.
func (m *Mesh) Selected() []*Vertex {
	var out []*Vertex
	for _, v := range m.verts {
		if v.Selected {
			out = append(out, v)
		}
	}
	return out
}

// SelectedCount returns the number of selected vertices.
func (m *Mesh) SelectedCount() int {
	n := 0
	for _, v := range m.verts {
		if v.Selected {
			n++
		}
	}
	return n
}
