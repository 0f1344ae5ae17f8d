// Package engine provides the Lisp scripting host for alignverts.
// It wraps zygomys in a sandboxed environment whose builtins build meshes,
// edit the selection and run the alignment operators of a session.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/alignverts/pkg/config"
	"github.com/chazu/alignverts/pkg/kernel"
	"github.com/chazu/alignverts/pkg/session"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is a cancelled operator that reported a message.
type EvalWarning struct {
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Message  string `json:"message"`
	Operator string `json:"operator"`
}

// OperatorRun records one operator executed by a script.
type OperatorRun struct {
	Operator string         `json:"operator"`
	Result   session.Result `json:"result"`
}

// Report is everything a script did to the session, in order.
type Report struct {
	Runs     []OperatorRun `json:"runs"`
	Warnings []EvalWarning `json:"warnings,omitempty"`
}

func (r *Report) record(id string, res session.Result) {
	r.Runs = append(r.Runs, OperatorRun{Operator: id, Result: res})
	if res.Status == session.Cancelled && res.Message != "" {
		r.Warnings = append(r.Warnings, EvalWarning{Message: res.Message, Operator: id})
	}
}

// Engine wraps the zygomys interpreter for alignverts scripts.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	kern          kernel.Kernel
	timeout       time.Duration
	weldTolerance float64

	mu         sync.Mutex
	generation uint64
	current    *atomic.Bool // abandoned flag of the latest evaluation
}

// NewEngine creates an Engine that tessellates primitives with k. A nil
// cfg uses config.Default().
func NewEngine(k kernel.Kernel, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{
		kern:          k,
		timeout:       cfg.EvalTimeout,
		weldTolerance: cfg.WeldTolerance,
	}
}

// Timeout returns the per-evaluation time limit.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Evaluate runs Lisp source against s.
//
// Return semantics:
//   - On success: returns report + nil errors + nil error
//   - On parse/eval failure: returns the partial report + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
//
// Operators that ran before a failure have already changed s.
func (e *Engine) Evaluate(s *session.Session, source string) (*Report, []EvalError, error) {
	abandoned := new(atomic.Bool)

	e.mu.Lock()
	e.generation++
	gen := e.generation
	if e.current != nil {
		e.current.Store(true)
	}
	e.current = abandoned
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		rep, evalErrs, err := e.evaluate(s, source, abandoned)
		ch <- evalResult{report: rep, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout, abandoned)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(s *session.Session, source string, abandoned *atomic.Bool) (*Report, []EvalError, error) {
	rep := &Report{}

	// Empty source is a valid program that does nothing.
	if strings.TrimSpace(source) == "" {
		return rep, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &evalContext{
		sess:          s,
		kern:          e.kern,
		weldTolerance: e.weldTolerance,
		report:        rep,
		abandoned:     abandoned,
	})

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return rep, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		return rep, parseZygomysError(err), nil
	}

	return rep, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
