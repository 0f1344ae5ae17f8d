package main

import (
	"errors"
	"log"
	"sync"

	"github.com/chazu/alignverts/pkg/config"
	"github.com/chazu/alignverts/pkg/editmesh"
	"github.com/chazu/alignverts/pkg/engine"
	"github.com/chazu/alignverts/pkg/kernel"
	"github.com/chazu/alignverts/pkg/kernel/sdfx"
	"github.com/chazu/alignverts/pkg/session"
)

// App binds the scripting engine to one editing session. It exposes the
// methods a front end (the CLI here) calls.
type App struct {
	cfg     *config.Config
	engine  *engine.Engine
	session *session.Session

	mu        sync.Mutex
	committed *kernel.Mesh
	commits   int
}

// MeshData is the JSON-serializable mesh format sent to the front end.
type MeshData struct {
	Name     string    `json:"name"`
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Selected []int     `json:"selected"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Message  string `json:"message"`
	Operator string `json:"operator,omitempty"`
}

// OperationData is one operator run, as reported to the front end.
type OperationData struct {
	Operator string `json:"operator"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// EvalResult is the full result returned to the front end.
type EvalResult struct {
	Operations []OperationData `json:"operations"`
	Errors     []EvalErrorData `json:"errors"`
	Warnings   []EvalErrorData `json:"warnings"`
	Panel      []string        `json:"panel"`
	Commits    int             `json:"commits"`
	Mesh       *MeshData       `json:"mesh,omitempty"`
}

// NewApp creates an App with the sdfx kernel and a fresh session. A nil
// cfg uses config.Default().
func NewApp(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{
		cfg:    cfg,
		engine: engine.NewEngine(sdfx.NewWithCells(cfg.MeshCells), cfg),
	}
	a.Reset()
	return a
}

// Reset discards the session: references are unset and no mesh is in
// edit mode.
func (a *App) Reset() {
	s := session.New(session.Options{
		ReportCancellations: a.cfg.ReportCancellations,
		RejectStale:         a.cfg.RejectStaleReferences,
	})
	s.OnCommit(a.commit)

	a.mu.Lock()
	a.session = s
	a.committed = nil
	a.commits = 0
	a.mu.Unlock()
}

// Session returns the current editing session.
func (a *App) Session() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// commit is the session's commit hook. It runs with the session locked.
func (a *App) commit(m *editmesh.Mesh) {
	a.snapshot(m, true)
}

// snapshot stores the edit mesh for display.
func (a *App) snapshot(m *editmesh.Mesh, count bool) {
	km := m.ToKernel()
	a.mu.Lock()
	a.committed = km
	if count {
		a.commits++
	}
	a.mu.Unlock()
}

// Evaluate runs Lisp source against the current session and returns what
// the script did. The session persists across calls until Reset.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Operations: []OperationData{},
		Errors:     []EvalErrorData{},
		Warnings:   []EvalErrorData{},
	}
	s := a.Session()

	rep, evalErrs, err := a.engine.Evaluate(s, source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		result.Panel = s.Panel()
		return result
	}

	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{
			Line:    e.Line,
			Col:     e.Col,
			Message: e.Message,
		})
	}
	for _, run := range rep.Runs {
		result.Operations = append(result.Operations, OperationData{
			Operator: run.Operator,
			Status:   run.Result.Status.String(),
			Message:  run.Result.Message,
		})
	}
	for _, w := range rep.Warnings {
		log.Printf("%s cancelled: %s", w.Operator, w.Message)
		result.Warnings = append(result.Warnings, EvalErrorData{
			Line:     w.Line,
			Col:      w.Col,
			Message:  w.Message,
			Operator: w.Operator,
		})
	}

	// Pick up geometry built after the last operator.
	var selected []int
	if err := s.Edit(func(m *editmesh.Mesh) error {
		a.snapshot(m, false)
		for _, v := range m.Selected() {
			selected = append(selected, v.Index)
		}
		return nil
	}); err != nil && !errors.Is(err, session.ErrNotEditing) {
		log.Printf("Evaluate: %v", err)
	}

	result.Panel = s.Panel()
	result.Mesh, result.Commits = a.meshData(s.InEditMode(), selected)
	return result
}

func (a *App) meshData(editing bool, selected []int) (*MeshData, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.committed == nil || !editing {
		return nil, a.commits
	}
	if selected == nil {
		selected = []int{}
	}
	return &MeshData{
		Name:     a.committed.Name,
		Vertices: a.committed.Vertices,
		Normals:  a.committed.Normals,
		Indices:  a.committed.Indices,
		Selected: selected,
	}, a.commits
}
