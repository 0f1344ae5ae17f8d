// Package align moves selected edit-mesh vertices so that source reference
// vertices land on target reference vertices.
//
// One-point alignment is a pure translation. Two-point alignment is a
// similarity transform: the source segment's midpoint is moved onto the
// target segment's midpoint, the shortest-arc rotation turns the source
// direction onto the target direction, and an optional uniform scale
// matches the segment lengths.
package align

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ScaleMode selects whether two-point alignment matches segment lengths.
type ScaleMode int

const (
	WithScale    ScaleMode = iota // scale by |target| / |source|
	WithoutScale                  // keep scale at 1
)

func (m ScaleMode) String() string {
	switch m {
	case WithScale:
		return "with-scale"
	case WithoutScale:
		return "without-scale"
	default:
		return "unknown"
	}
}

// antiparallelEpsilon bounds how close to -1 the direction cosine may get
// before the rotation axis is treated as undefined.
const antiparallelEpsilon = 1e-9

// Translation returns the offset that moves source onto target.
func Translation(target, source mgl64.Vec3) mgl64.Vec3 {
	return target.Sub(source)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b mgl64.Vec3) mgl64.Vec3 {
	return a.Add(b).Mul(0.5)
}

// RotationBetween returns the unit quaternion of minimal angle that turns
// the direction of from onto the direction of to.
//
// A zero-length input has no direction and yields the identity. Opposite
// directions have no unique axis; the half-turn axis follows
// mgl64.QuatBetweenVectors (X × from, or Y × from when from lies along X).
func RotationBetween(from, to mgl64.Vec3) mgl64.Quat {
	if from.LenSqr() == 0 || to.LenSqr() == 0 {
		return mgl64.QuatIdent()
	}
	a := from.Normalize()
	b := to.Normalize()

	cos := a.Dot(b)
	if cos <= -1+antiparallelEpsilon {
		return mgl64.QuatBetweenVectors(a, b).Normalize()
	}

	axis := a.Cross(b)
	s := math.Sqrt((1 + cos) * 2)
	return mgl64.Quat{W: s * 0.5, V: axis.Mul(1 / s)}.Normalize()
}

// ScaleFactor returns the uniform scale that maps a segment of length
// |source| onto one of length |target|. WithoutScale always returns 1
// without measuring either vector, and a zero-length source returns 1.
func ScaleFactor(target, source mgl64.Vec3, mode ScaleMode) float64 {
	if mode == WithoutScale {
		return 1
	}
	sourceLen := source.Len()
	if sourceLen == 0 {
		return 1
	}
	return target.Len() / sourceLen
}

// Transform is a similarity transform about a pair of pivots:
//
//	p' = Rotation · ((p − SourceCenter) · Scale) + TargetCenter
type Transform struct {
	SourceCenter mgl64.Vec3
	TargetCenter mgl64.Vec3
	Rotation     mgl64.Quat
	Scale        float64
}

// Identity returns the transform that leaves every point in place.
func Identity() Transform {
	return Transform{Rotation: mgl64.QuatIdent(), Scale: 1}
}

// Similarity builds the transform mapping segment source1→source2 onto
// segment target1→target2, pivoting on their midpoints.
func Similarity(target1, target2, source1, source2 mgl64.Vec3, mode ScaleMode) Transform {
	targetVector := target2.Sub(target1)
	sourceVector := source2.Sub(source1)

	return Transform{
		SourceCenter: Midpoint(source1, source2),
		TargetCenter: Midpoint(target1, target2),
		Rotation:     RotationBetween(sourceVector, targetVector),
		Scale:        ScaleFactor(targetVector, sourceVector, mode),
	}
}

// Apply maps p through the transform.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	local := p.Sub(t.SourceCenter).Mul(t.Scale)
	return t.Rotation.Rotate(local).Add(t.TargetCenter)
}

// Mat4 returns the transform as a homogeneous matrix:
// translate(TargetCenter) · rotate · scale · translate(−SourceCenter).
func (t Transform) Mat4() mgl64.Mat4 {
	sc, tc := t.SourceCenter, t.TargetCenter
	return mgl64.Translate3D(tc[0], tc[1], tc[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl64.Scale3D(t.Scale, t.Scale, t.Scale)).
		Mul4(mgl64.Translate3D(-sc[0], -sc[1], -sc[2]))
}
