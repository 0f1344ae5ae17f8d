// Package session is the host side of vertex alignment: it owns the
// reference store, borrows the edit mesh while edit mode is active, and runs
// the pick and align operators against it one at a time.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/alignverts/pkg/align"
	"github.com/chazu/alignverts/pkg/editmesh"
	"github.com/chazu/alignverts/pkg/refs"
)

// ErrNotEditing is returned by Edit when no mesh is in edit mode.
var ErrNotEditing = errors.New("session: no mesh in edit mode")

// Status is the outcome of an operator.
type Status int

const (
	Finished Status = iota
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is what an operator reports back. Message is empty for finished
// operators and, unless Options.ReportCancellations is set, for cancelled
// ones too.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the operator finished.
func (r Result) OK() bool {
	return r.Status == Finished
}

// Options configures a Session.
type Options struct {
	// ReportCancellations attaches a user-visible message to cancelled
	// operators.
	ReportCancellations bool
	// RejectStale cancels alignments whose references were picked before
	// vertices were last renumbered.
	RejectStale bool
}

// DefaultOptions reports cancellations and rejects stale references.
func DefaultOptions() Options {
	return Options{ReportCancellations: true, RejectStale: true}
}

// Session serializes all access to the reference store and the borrowed
// mesh behind one mutex.
type Session struct {
	mu       sync.Mutex
	opts     Options
	store    *refs.Store
	mesh     *editmesh.Mesh
	onCommit []func(*editmesh.Mesh)
}

// New returns a session with every reference unset and no mesh in edit mode.
func New(opts Options) *Session {
	return &Session{opts: opts, store: refs.NewStore()}
}

// Options returns the options the session was created with.
func (s *Session) Options() Options {
	return s.opts
}

// Store returns the session's reference store.
func (s *Session) Store() *refs.Store {
	return s.store
}

// Enter puts m into edit mode. The session borrows m until Exit; callers
// must not touch it concurrently except through Edit.
func (s *Session) Enter(m *editmesh.Mesh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mesh = m
}

// Exit leaves edit mode and returns the mesh that was being edited, or nil.
// References are kept.
func (s *Session) Exit() *editmesh.Mesh {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mesh
	s.mesh = nil
	return m
}

// InEditMode reports whether a mesh is in edit mode.
func (s *Session) InEditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mesh != nil
}

// OnCommit registers fn to run after every operator executed in edit mode,
// whether it finished or cancelled.
func (s *Session) OnCommit(fn func(*editmesh.Mesh)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommit = append(s.onCommit, fn)
}

// Edit runs fn with the edit mesh while holding the session lock.
func (s *Session) Edit(fn func(m *editmesh.Mesh) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mesh == nil {
		return ErrNotEditing
	}
	return fn(s.mesh)
}

// Pick stores the first selected vertex as the reference for role. An empty
// selection clears the slot and cancels.
func (s *Session) Pick(role refs.Role) Result {
	return s.execute(func(m *editmesh.Mesh) Result {
		if !s.store.Pick(role, m.Selected(), m.Generation()) {
			return s.cancel("%s cleared: no vertex selected", role.Label())
		}
		return Result{Status: Finished}
	})
}

// AlignOnePoint translates the selection so source1 lands on target1.
func (s *Session) AlignOnePoint() Result {
	return s.execute(func(m *editmesh.Mesh) Result {
		err := align.OnePoint(m, m.Selected(), s.store.Snapshot(), s.alignOptions())
		return s.resultOf(err)
	})
}

// AlignTwoPoint maps segment source1→source2 onto target1→target2 for the
// selection.
func (s *Session) AlignTwoPoint(mode align.ScaleMode) Result {
	return s.execute(func(m *editmesh.Mesh) Result {
		err := align.TwoPoint(m, m.Selected(), s.store.Snapshot(), mode, s.alignOptions())
		return s.resultOf(err)
	})
}

// execute runs op on the edit mesh under the session lock, then runs the
// commit hooks.
func (s *Session) execute(op func(m *editmesh.Mesh) Result) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mesh == nil {
		return s.cancel("no mesh in edit mode")
	}
	res := op(s.mesh)
	for _, fn := range s.onCommit {
		fn(s.mesh)
	}
	return res
}

func (s *Session) alignOptions() align.Options {
	return align.Options{RejectStale: s.opts.RejectStale}
}

func (s *Session) resultOf(err error) Result {
	switch {
	case err == nil:
		return Result{Status: Finished}
	case errors.Is(err, align.ErrMissingReference):
		return s.cancel("set the reference vertices first (%v)", err)
	default:
		return s.cancel("%v", err)
	}
}

func (s *Session) cancel(format string, args ...any) Result {
	res := Result{Status: Cancelled}
	if s.opts.ReportCancellations {
		res.Message = fmt.Sprintf(format, args...)
	}
	return res
}
