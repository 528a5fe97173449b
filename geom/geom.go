// Package geom provides the spatial math used by the simulation: 3-D
// vectors, unit quaternions, and oriented bounding boxes. It is a thin
// layer over gonum's r3 and quat types with the axis conventions used
// throughout the simulation (X right, Y forward, Z up).
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// World axis conventions.
var (
	Right = r3.Vec{X: 1, Y: 0, Z: 0}
	Fwd   = r3.Vec{X: 0, Y: 1, Z: 0}
	Up    = r3.Vec{X: 0, Y: 0, Z: 1}
)

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = quat.Number{Real: 1}

// AngleAxis returns the quaternion rotating by angle radians about axis.
// The axis must be a unit vector.
func AngleAxis(angle float64, axis r3.Vec) quat.Number {
	half := angle / 2
	s := math.Sin(half)
	return quat.Number{
		Real: math.Cos(half),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
}

// Mul composes two rotations (a applied after b).
func Mul(a, b quat.Number) quat.Number {
	return quat.Mul(a, b)
}

// Inv returns the inverse of a unit quaternion.
func Inv(q quat.Number) quat.Number {
	return quat.Conj(q)
}

// Normalize rescales q to unit length.
func Normalize(q quat.Number) quat.Number {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return IdentityQuat
	}
	return quat.Scale(1/n, q)
}

// Rotate rotates vector v by the unit quaternion q.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Yaw extracts the rotation of q about the vertical (Z) axis.
func Yaw(q quat.Number) float64 {
	return math.Atan2(
		2*(q.Real*q.Kmag+q.Imag*q.Jmag),
		1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max r3.Vec
}

// Overlaps reports whether two boxes intersect.
func (a AABB) Overlaps(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// BoxAABB returns the world-space AABB of an oriented box with the given
// half extents, centered at pos and rotated by rot. The extent of the
// rotated box along each world axis is the half-extent vector transformed
// by the element-wise absolute value of the rotation matrix.
func BoxAABB(pos r3.Vec, rot quat.Number, halfExt r3.Vec) AABB {
	cx := Rotate(rot, r3.Vec{X: halfExt.X})
	cy := Rotate(rot, r3.Vec{Y: halfExt.Y})
	cz := Rotate(rot, r3.Vec{Z: halfExt.Z})

	ext := r3.Vec{
		X: math.Abs(cx.X) + math.Abs(cy.X) + math.Abs(cz.X),
		Y: math.Abs(cx.Y) + math.Abs(cy.Y) + math.Abs(cz.Y),
		Z: math.Abs(cx.Z) + math.Abs(cy.Z) + math.Abs(cz.Z),
	}

	return AABB{
		Min: r3.Sub(pos, ext),
		Max: r3.Add(pos, ext),
	}
}

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
