package session_test

import (
	"sync"
	"testing"

	"github.com/chazu/alignverts/pkg/align"
	"github.com/chazu/alignverts/pkg/editmesh"
	"github.com/chazu/alignverts/pkg/refs"
	"github.com/chazu/alignverts/pkg/session"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pickAt selects only vertex i and runs the pick operator for role.
func pickAt(t *testing.T, s *session.Session, role refs.Role, i int) {
	t.Helper()
	require.NoError(t, s.Edit(func(m *editmesh.Mesh) error {
		m.DeselectAll()
		return m.Select(i)
	}))
	require.Equal(t, session.Finished, s.Pick(role).Status)
}

func selectOnly(t *testing.T, s *session.Session, indices ...int) {
	t.Helper()
	require.NoError(t, s.Edit(func(m *editmesh.Mesh) error {
		m.DeselectAll()
		return m.Select(indices...)
	}))
}

func TestOperatorsRequireEditMode(t *testing.T) {
	t.Parallel()

	s := session.New(session.DefaultOptions())
	for _, op := range session.Operators() {
		t.Run(op.ID, func(t *testing.T) {
			res, err := s.Run(op.ID)
			require.NoError(t, err)
			assert.Equal(t, session.Cancelled, res.Status)
			assert.Equal(t, "no mesh in edit mode", res.Message)
		})
	}
	assert.ErrorIs(t, s.Edit(func(*editmesh.Mesh) error { return nil }), session.ErrNotEditing)
}

func TestOnePointThroughSession(t *testing.T) {
	t.Parallel()

	m := editmesh.FromPositions("cube",
		mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 3, 4}, mgl64.Vec3{9, 9, 9})
	s := session.New(session.DefaultOptions())
	s.Enter(m)

	pickAt(t, s, refs.Target1, 0)
	pickAt(t, s, refs.Source1, 1)
	selectOnly(t, s, 2)

	res := s.AlignOnePoint()

	assert.True(t, res.OK())
	assert.Empty(t, res.Message)
	assert.Equal(t, []mgl64.Vec3{{1, 1, 1}, {0, 0, 0}, {3, 4, 5}, {9, 9, 9}}, m.Positions())
}

func TestTwoPointThroughSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want mgl64.Vec3
	}{
		{session.OpAlignTwoPoint, mgl64.Vec3{5, 11, 5}},
		{session.OpAlignTwoPointNoScale, mgl64.Vec3{5, 9, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			m := editmesh.FromPositions("seg",
				mgl64.Vec3{5, 5, 5}, mgl64.Vec3{5, 11, 5},
				mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0},
				mgl64.Vec3{2, 0, 0})
			s := session.New(session.DefaultOptions())
			s.Enter(m)
			for i, role := range refs.Roles {
				pickAt(t, s, role, i)
			}
			selectOnly(t, s, 4)

			res, err := s.Run(tt.id)

			require.NoError(t, err)
			assert.Equal(t, session.Finished, res.Status)
			got := m.Positions()[4]
			assert.InDeltaSlice(t, tt.want[:], got[:], 1e-9)
		})
	}
}

func TestPickEmptySelectionCancelsAndClears(t *testing.T) {
	t.Parallel()

	m := editmesh.FromPositions("m", mgl64.Vec3{1, 0, 0})
	s := session.New(session.DefaultOptions())
	s.Enter(m)
	pickAt(t, s, refs.Source2, 0)
	selectOnly(t, s)

	res := s.Pick(refs.Source2)

	assert.Equal(t, session.Cancelled, res.Status)
	assert.Contains(t, res.Message, "Source 2")
	assert.False(t, s.Store().Get(refs.Source2).IsSet())
}

func TestMissingReferenceMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    session.Options
		wantMsg bool
	}{
		{"reported", session.DefaultOptions(), true},
		{"silent", session.Options{RejectStale: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := editmesh.FromPositions("m", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 0})
			s := session.New(tt.opts)
			s.Enter(m)
			pickAt(t, s, refs.Target1, 0)
			s.Edit(func(m *editmesh.Mesh) error { m.SelectAll(); return nil })
			before := m.Positions()

			res := s.AlignOnePoint()

			assert.Equal(t, session.Cancelled, res.Status)
			assert.Equal(t, before, m.Positions())
			if tt.wantMsg {
				assert.Contains(t, res.Message, "source1")
			} else {
				assert.Empty(t, res.Message)
			}
		})
	}
}

func TestStaleReferenceCancels(t *testing.T) {
	t.Parallel()

	m := editmesh.FromPositions("m", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{3, 3, 3})
	s := session.New(session.DefaultOptions())
	s.Enter(m)
	pickAt(t, s, refs.Target1, 0)
	pickAt(t, s, refs.Source1, 1)
	require.NoError(t, s.Edit(func(m *editmesh.Mesh) error { return m.RemoveVertex(0) }))
	selectOnly(t, s, 1)

	res := s.AlignOnePoint()

	assert.Equal(t, session.Cancelled, res.Status)
	assert.Contains(t, res.Message, "stale")
	assert.Equal(t, []mgl64.Vec3{{0, 0, 0}, {3, 3, 3}}, m.Positions())
}

func TestCommitHookRunsForEveryOperatorInEditMode(t *testing.T) {
	t.Parallel()

	m := editmesh.FromPositions("m", mgl64.Vec3{})
	s := session.New(session.DefaultOptions())
	var commits int
	s.OnCommit(func(got *editmesh.Mesh) {
		assert.Same(t, m, got)
		commits++
	})

	s.AlignOnePoint() // not in edit mode
	s.Enter(m)
	s.AlignOnePoint()                // cancelled
	s.AlignTwoPoint(align.WithScale) // cancelled
	s.Pick(refs.Target1)             // cancelled, empty selection

	assert.Equal(t, 3, commits)
}

func TestReferencesSurviveExit(t *testing.T) {
	t.Parallel()

	m := editmesh.FromPositions("m", mgl64.Vec3{}, mgl64.Vec3{})
	s := session.New(session.DefaultOptions())
	s.Enter(m)
	pickAt(t, s, refs.Target2, 1)

	assert.Same(t, m, s.Exit())
	assert.False(t, s.InEditMode())
	assert.Nil(t, s.Exit())
	assert.Equal(t, 1, s.Store().Get(refs.Target2).Label())
}

func TestPanel(t *testing.T) {
	t.Parallel()

	m := editmesh.FromPositions("m", mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{})
	s := session.New(session.DefaultOptions())
	s.Enter(m)
	pickAt(t, s, refs.Target1, 5)

	assert.Equal(t, []string{
		"Target 1 id: 5",
		"Target 2 id: -1",
		"Source 1 id: -1",
		"Source 2 id: -1",
		"Align by 1 Point",
		"Align by 2 Points with Scale",
		"Align by 2 Points no Scale",
	}, s.Panel())
}

func TestOperatorTable(t *testing.T) {
	t.Parallel()

	ops := session.Operators()
	require.Len(t, ops, 7)
	assert.Equal(t, session.OpTarget1Select, ops[0].ID)
	assert.Equal(t, "Select Target 1", ops[0].Label)
	for _, role := range refs.Roles {
		assert.Equal(t, ops[role].ID, session.PickOperatorID(role))
	}

	_, err := session.New(session.DefaultOptions()).Run("object.nope")
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "finished", session.Finished.String())
	assert.Equal(t, "cancelled", session.Cancelled.String())
	assert.Equal(t, "Status(5)", session.Status(5).String())
}

func TestConcurrentOperators(t *testing.T) {
	t.Parallel()

	m := editmesh.FromPositions("m", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 0})
	s := session.New(session.DefaultOptions())
	s.Enter(m)
	pickAt(t, s, refs.Target1, 0)
	pickAt(t, s, refs.Source1, 1)
	selectOnly(t, s, 2)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AlignOnePoint()
			_ = s.Panel()
		}()
	}
	wg.Wait()

	assert.Equal(t, mgl64.Vec3{20, 0, 0}, m.Positions()[2])
}
