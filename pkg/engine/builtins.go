package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/chazu/alignverts/pkg/editmesh"
	"github.com/chazu/alignverts/pkg/kernel"
	"github.com/chazu/alignverts/pkg/refs"
	"github.com/chazu/alignverts/pkg/session"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
)

// scriptMeshName names the mesh a script creates when it builds geometry
// outside edit mode.
const scriptMeshName = "script"

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a position.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(str.S, kwPrefix)
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A keyword consumes the argument after it; a trailing keyword maps to nil.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a vertex index from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_target1) and plain strings.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toRole converts :target1 ... :source2 (or t1 ... s2) to a refs.Role.
func toRole(s zygo.Sexp) (refs.Role, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected reference keyword (:target1, :target2, :source1, :source2): %w", err)
	}
	return refs.ParseRole(name)
}

// toVec3 extracts a position from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toIndices flattens integer arguments, and lists of integers, into
// vertex indices.
func toIndices(args []zygo.Sexp) ([]int, error) {
	var out []int
	for _, a := range args {
		if _, ok := a.(*zygo.SexpInt); !ok {
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, fmt.Errorf("expected index or list of indices: %w", err)
			}
			nested, err := toIndices(items)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		i, err := toInt(a)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func intSexp(i int) zygo.Sexp {
	return &zygo.SexpInt{Val: int64(i)}
}

// ---------------------------------------------------------------------------
// Evaluation context
// ---------------------------------------------------------------------------

// evalContext is what the builtins of one evaluation operate on.
type evalContext struct {
	sess          *session.Session
	kern          kernel.Kernel
	weldTolerance float64
	report        *Report
	abandoned     *atomic.Bool
}

// check stops builtins of an evaluation nobody is waiting for.
func (c *evalContext) check(name string) error {
	if c.abandoned.Load() {
		return fmt.Errorf("%s: %w", name, errAbandoned)
	}
	return nil
}

// edit runs fn on the edit mesh. With create set, a fresh mesh is put
// into edit mode first when none is active.
func (c *evalContext) edit(create bool, fn func(m *editmesh.Mesh) error) error {
	err := c.sess.Edit(fn)
	if create && errors.Is(err, session.ErrNotEditing) {
		c.sess.Enter(editmesh.New(scriptMeshName))
		err = c.sess.Edit(fn)
	}
	return err
}

// run executes a session operator and records it in the report.
func (c *evalContext) run(id string) (zygo.Sexp, error) {
	res, err := c.sess.Run(id)
	if err != nil {
		return zygo.SexpNull, err
	}
	c.report.record(id, res)
	return &zygo.SexpStr{S: res.Status.String()}, nil
}

// primitive tessellates s, welds it and appends it to the edit mesh. A
// :rotate (vec3 of Euler degrees about X, Y, Z) is applied about the origin
// before the :at translation. It returns the index of the first new vertex.
func (c *evalContext) primitive(name string, s kernel.Solid, pa kwArgs) (zygo.Sexp, error) {
	if v, ok := pa.kw["rotate"]; ok {
		r, err := toVec3(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: rotate: %w", name, err)
		}
		s = c.kern.Rotate(s, r[0], r[1], r[2])
	}
	if v, ok := pa.kw["at"]; ok {
		at, err := toVec3(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: at: %w", name, err)
		}
		s = c.kern.Translate(s, at[0], at[1], at[2])
	}

	km, err := c.kern.ToMesh(s)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
	}
	part, err := editmesh.FromKernel(km, c.weldTolerance)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
	}

	var first int
	err = c.edit(true, func(m *editmesh.Mesh) error {
		first = m.Append(part)
		return nil
	})
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
	}
	return intSexp(first), nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the alignverts builtins into a zygomys
// environment. Names use underscores; preprocessSource rewrites the
// kebab-case spelling scripts use.
func registerBuiltins(env *zygo.Zlisp, c *evalContext) {
	add := func(name string, fn builtin) {
		env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if err := c.check(name); err != nil {
				return zygo.SexpNull, err
			}
			return fn(c, name, args)
		})
	}

	// (vec3 1 2 3)
	add("vec3", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// Geometry
	// -----------------------------------------------------------------------

	// (box :size (vec3 2 2 2) :rotate (vec3 0 0 45) :at (vec3 0 0 0))
	add("box", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		size := mgl64.Vec3{1, 1, 1}
		if v, ok := pa.kw["size"]; ok {
			var err error
			if size, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
		}
		s, err := c.kern.Box(size[0], size[1], size[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return c.primitive(name, s, pa)
	})

	// (cylinder :height 2 :radius 0.5 :at (vec3 0 0 0))
	add("cylinder", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		height, radius := 1.0, 0.5
		if v, ok := pa.kw["height"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
			}
			height = f
		}
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
			}
			radius = f
		}
		s, err := c.kern.Cylinder(height, radius)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return c.primitive(name, s, pa)
	})

	// (sphere :radius 1 :at (vec3 0 0 0))
	add("sphere", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		radius := 0.5
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
			}
			radius = f
		}
		s, err := c.kern.Sphere(radius)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return c.primitive(name, s, pa)
	})

	// -----------------------------------------------------------------------
	// Vertices
	// -----------------------------------------------------------------------

	// (add-vertex (vec3 1 2 3)) -> index
	add("add_vertex", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("add-vertex requires a vec3 argument")
		}
		co, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("add-vertex: %w", err)
		}
		var idx int
		err = c.edit(true, func(m *editmesh.Mesh) error {
			idx = m.AddVertex(co).Index
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("add-vertex: %w", err)
		}
		return intSexp(idx), nil
	})

	// (delete-vertex 3)
	add("delete_vertex", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("delete-vertex requires an index argument")
		}
		i, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("delete-vertex: %w", err)
		}
		if err := c.edit(false, func(m *editmesh.Mesh) error { return m.RemoveVertex(i) }); err != nil {
			return zygo.SexpNull, fmt.Errorf("delete-vertex: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (vertex 3) -> (vec3 ...)
	add("vertex", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("vertex requires an index argument")
		}
		i, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex: %w", err)
		}
		var co mgl64.Vec3
		err = c.edit(false, func(m *editmesh.Mesh) error {
			v, err := m.Vertex(i)
			if err != nil {
				return err
			}
			co = v.Co
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vertex: %w", err)
		}
		return &sexpVec3{vec: co}, nil
	})

	// (vertex-count) -> 0 outside edit mode
	add("vertex_count", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		n := 0
		err := c.edit(false, func(m *editmesh.Mesh) error {
			n = m.Len()
			return nil
		})
		if err != nil && !errors.Is(err, session.ErrNotEditing) {
			return zygo.SexpNull, err
		}
		return intSexp(n), nil
	})

	// -----------------------------------------------------------------------
	// Selection
	// -----------------------------------------------------------------------

	// (select-vertices 0 4 (list 5 6)) adds to the selection
	add("select_vertices", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		indices, err := toIndices(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("select-vertices: %w", err)
		}
		if err := c.edit(false, func(m *editmesh.Mesh) error { return m.Select(indices...) }); err != nil {
			return zygo.SexpNull, fmt.Errorf("select-vertices: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (select-range 4 10) selects indices 4 through 9
	add("select_range", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("select-range requires start and end indices")
		}
		from, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("select-range: start: %w", err)
		}
		to, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("select-range: end: %w", err)
		}
		if err := c.edit(false, func(m *editmesh.Mesh) error { return m.SelectRange(from, to) }); err != nil {
			return zygo.SexpNull, fmt.Errorf("select-range: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (deselect-all)
	add("deselect_all", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		err := c.edit(false, func(m *editmesh.Mesh) error {
			m.DeselectAll()
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("deselect-all: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// (select-all)
	add("select_all", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		err := c.edit(false, func(m *editmesh.Mesh) error {
			m.SelectAll()
			return nil
		})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("select-all: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// References and alignment
	// -----------------------------------------------------------------------

	// (pick :target1) -> "finished" | "cancelled"
	add("pick", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("pick requires a reference keyword")
		}
		role, err := toRole(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pick: %w", err)
		}
		return c.run(session.PickOperatorID(role))
	})

	// (reference :source2) -> index, or -1 when unset
	add("reference", func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("reference requires a reference keyword")
		}
		role, err := toRole(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("reference: %w", err)
		}
		return intSexp(c.sess.Store().Get(role).Label()), nil
	})

	operators := map[string]string{
		"align_one_point":          session.OpAlignOnePoint,
		"align_two_point":          session.OpAlignTwoPoint,
		"align_two_point_no_scale": session.OpAlignTwoPointNoScale,
	}
	for fn, id := range operators {
		add(fn, func(c *evalContext, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			return c.run(id)
		})
	}
}
