package align

import (
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

const tol = 1e-9

// assertVecNear compares component-wise with an absolute tolerance.
func assertVecNear(t *testing.T, want, got mgl64.Vec3, msgAndArgs ...interface{}) bool {
	t.Helper()
	for i := range want {
		if math.Abs(want[i]-got[i]) > tol {
			return assert.Fail(t, fmt.Sprintf("vectors differ: want %v, got %v", want, got), msgAndArgs...)
		}
	}
	return true
}

func TestScaleFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target mgl64.Vec3
		source mgl64.Vec3
		mode   ScaleMode
		want   float64
	}{
		{"scaled 2 to 6", mgl64.Vec3{0, 6, 0}, mgl64.Vec3{2, 0, 0}, WithScale, 3},
		{"unscaled 2 to 6", mgl64.Vec3{0, 6, 0}, mgl64.Vec3{2, 0, 0}, WithoutScale, 1},
		{"shrink", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 4}, WithScale, 0.25},
		{"zero source scaled", mgl64.Vec3{3, 4, 0}, mgl64.Vec3{}, WithScale, 1},
		{"zero source unscaled", mgl64.Vec3{3, 4, 0}, mgl64.Vec3{}, WithoutScale, 1},
		{"zero target scaled", mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, WithScale, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleFactor(tt.target, tt.source, tt.mode)
			assert.InDelta(t, tt.want, got, tol)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestRotationBetweenMapsDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to mgl64.Vec3
	}{
		{"x to y", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}},
		{"y to z scaled lengths", mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, 0, 0.5}},
		{"oblique", mgl64.Vec3{1, 2, 3}, mgl64.Vec3{-3, 1, 2}},
		{"nearly opposite", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{-1, 1e-3, 0}},
		{"same", mgl64.Vec3{2, 2, 0}, mgl64.Vec3{1, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := RotationBetween(tt.from, tt.to)
			assert.InDelta(t, 1, q.Len(), tol, "rotation must be a unit quaternion")
			assertVecNear(t, tt.to.Normalize(), q.Rotate(tt.from.Normalize()))
		})
	}
}

func TestRotationBetweenIdentityForEqualDirections(t *testing.T) {
	t.Parallel()

	q := RotationBetween(mgl64.Vec3{0, 3, 4}, mgl64.Vec3{0, 3, 4})
	assert.InDelta(t, 1, q.W, tol)
	assertVecNear(t, mgl64.Vec3{}, q.V)
}

func TestRotationBetweenAntiparallel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to mgl64.Vec3
	}{
		{"along x", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{-2, 0, 0}},
		{"along y", mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, -1, 0}},
		{"oblique", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{-1, -1, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := RotationBetween(tt.from, tt.to)
			assertVecNear(t, tt.to.Normalize(), q.Rotate(tt.from.Normalize()))

			// A half turn: the axis is perpendicular to the input direction.
			assert.InDelta(t, 0, q.W, 1e-6)
			assert.InDelta(t, 0, q.V.Dot(tt.from), 1e-6)
		})
	}

	// Deterministic: same inputs, same axis.
	a := RotationBetween(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{-1, 0, 0})
	b := RotationBetween(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{-1, 0, 0})
	assert.Equal(t, a, b)
}

func TestRotationBetweenZeroVector(t *testing.T) {
	t.Parallel()

	assert.Equal(t, mgl64.QuatIdent(), RotationBetween(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}))
	assert.Equal(t, mgl64.QuatIdent(), RotationBetween(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}))
}

func TestSimilarityMapsSegment(t *testing.T) {
	t.Parallel()

	t1, t2 := mgl64.Vec3{5, 5, 5}, mgl64.Vec3{5, 11, 5}
	s1, s2 := mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}

	tr := Similarity(t1, t2, s1, s2, WithScale)

	assert.InDelta(t, 3, tr.Scale, tol)
	assertVecNear(t, mgl64.Vec3{1, 0, 0}, tr.SourceCenter)
	assertVecNear(t, mgl64.Vec3{5, 8, 5}, tr.TargetCenter)
	assertVecNear(t, t1, tr.Apply(s1))
	assertVecNear(t, t2, tr.Apply(s2))
}

func TestSimilarityWithoutScaleKeepsLength(t *testing.T) {
	t.Parallel()

	t1, t2 := mgl64.Vec3{5, 5, 5}, mgl64.Vec3{5, 11, 5}
	s1, s2 := mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}

	tr := Similarity(t1, t2, s1, s2, WithoutScale)

	assert.Equal(t, 1.0, tr.Scale)
	assertVecNear(t, mgl64.Vec3{5, 7, 5}, tr.Apply(s1))
	assertVecNear(t, mgl64.Vec3{5, 9, 5}, tr.Apply(s2))
	assert.InDelta(t, 2, tr.Apply(s2).Sub(tr.Apply(s1)).Len(), tol)
}

func TestTransformMat4MatchesApply(t *testing.T) {
	t.Parallel()

	tr := Similarity(
		mgl64.Vec3{1, -2, 3}, mgl64.Vec3{4, 0, -1},
		mgl64.Vec3{0.5, 0.5, 0}, mgl64.Vec3{-1, 2, 2},
		WithScale,
	)
	m := tr.Mat4()

	for _, p := range []mgl64.Vec3{{0, 0, 0}, {1, 2, 3}, {-4, 0.25, 7}} {
		assertVecNear(t, tr.Apply(p), mgl64.TransformCoordinate(p, m), "point %v", p)
	}
}

func TestIdentityTransform(t *testing.T) {
	t.Parallel()

	p := mgl64.Vec3{1.5, -2, 3}
	assert.Equal(t, p, Identity().Apply(p))
}

func TestScaleModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "with-scale", WithScale.String())
	assert.Equal(t, "without-scale", WithoutScale.String())
	assert.Equal(t, "unknown", ScaleMode(7).String())
}
