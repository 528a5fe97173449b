// Package phys is the rigid-body collaborator consumed by the
// simulation core: body registration, force/torque integration, fixed
// joints, and first-hit ray queries. Contact resolution beyond the
// floor clamp is out of scope; the interface covers exactly what the
// per-tick systems require.
package phys

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hideseek/geom"
)

// BodyID addresses a registered body. NoBody marks an empty link.
type BodyID int32

// JointID addresses a live fixed joint. NoJoint marks an empty link.
type JointID int32

const (
	NoBody  BodyID  = -1
	NoJoint JointID = -1
)

// Shape selects the collision geometry of a body.
type Shape uint8

const (
	ShapeBox Shape = iota
	// ShapeFloor is the infinite z=0 ground plane.
	ShapeFloor
)

// Response selects how a body reacts to forces: Dynamic bodies
// integrate, Static bodies are immovable.
type Response uint8

const (
	ResponseDynamic Response = iota
	ResponseStatic
)

// Body is one rigid body's state. Pose fields are read and written by
// the simulation between steps; forces are consumed by Step.
type Body struct {
	Pos      r3.Vec
	Rot      quat.Number
	Vel      r3.Vec
	AngVel   float64 // about the vertical axis
	HalfExt  r3.Vec
	Shape    Shape
	Response Response

	Force  r3.Vec
	Torque float64

	InvMass    float64
	InvInertia float64
}

type joint struct {
	a, b    BodyID
	attach2 quat.Number
	anchorA r3.Vec // anchor in a's frame, separation folded in
	r2      r3.Vec // anchor in b's frame
	live    bool
}

// World owns a fixed-capacity table of bodies and joints plus the step
// parameters. One physics World backs one simulation world.
type World struct {
	bodies  []Body
	live    []bool
	joints  []joint
	dt      float64
	damping float64
}

// NewWorld creates a physics world with room for capacity bodies,
// advancing dt seconds per Step.
func NewWorld(capacity int, dt float64) *World {
	return &World{
		bodies:  make([]Body, 0, capacity),
		live:    make([]bool, 0, capacity),
		joints:  make([]joint, 0, 8),
		dt:      dt,
		damping: 2.0,
	}
}

// AddBody registers a body and returns its handle. Slots freed by
// RemoveBody are reused.
func (w *World) AddBody(b Body) BodyID {
	if b.InvMass == 0 && b.Response == ResponseDynamic {
		b.InvMass = 1
	}
	if b.InvInertia == 0 && b.Response == ResponseDynamic {
		b.InvInertia = 1
	}
	for i := range w.bodies {
		if !w.live[i] {
			w.bodies[i] = b
			w.live[i] = true
			return BodyID(i)
		}
	}
	w.bodies = append(w.bodies, b)
	w.live = append(w.live, true)
	return BodyID(len(w.bodies) - 1)
}

// RemoveBody frees a body slot. Joints referencing it are destroyed.
func (w *World) RemoveBody(id BodyID) {
	if id == NoBody {
		return
	}
	w.live[id] = false
	for i := range w.joints {
		if w.joints[i].live && (w.joints[i].a == id || w.joints[i].b == id) {
			w.joints[i].live = false
		}
	}
}

// Reset removes every body and joint.
func (w *World) Reset() {
	w.bodies = w.bodies[:0]
	w.live = w.live[:0]
	w.joints = w.joints[:0]
}

// Body returns mutable access to a registered body.
func (w *World) Body(id BodyID) *Body {
	return &w.bodies[id]
}

// MakeFixedJoint rigidly attaches body b to body a: b's pose is pinned
// to a's frame using the relative rotation attach2, the local anchor r1
// on a, the local anchor r2 on b, and the anchor separation recorded at
// attach time.
func (w *World) MakeFixedJoint(a, b BodyID, attach2 quat.Number, r1, r2 r3.Vec, separation float64) JointID {
	j := joint{
		a:       a,
		b:       b,
		attach2: attach2,
		// The gap to the hit point collapses into a fixed offset
		// along a's forward axis.
		anchorA: r3.Add(r1, r3.Scale(separation, geom.Fwd)),
		r2:      r2,
		live:    true,
	}
	for i := range w.joints {
		if !w.joints[i].live {
			w.joints[i] = j
			return JointID(i)
		}
	}
	w.joints = append(w.joints, j)
	return JointID(len(w.joints) - 1)
}

// DestroyJoint releases a joint. Destroying NoJoint is a no-op.
func (w *World) DestroyJoint(id JointID) {
	if id == NoJoint {
		return
	}
	w.joints[id].live = false
}

// Step advances every dynamic body by one tick: integrate forces with
// velocity damping, clamp boxes to the floor, then satisfy joints by
// pinning attached bodies to their anchor frames. Forces and torques
// are consumed.
func (w *World) Step() {
	dt := w.dt
	drag := math.Exp(-w.damping * dt)

	for i := range w.bodies {
		if !w.live[i] {
			continue
		}
		b := &w.bodies[i]
		if b.Response != ResponseDynamic || b.Shape == ShapeFloor {
			b.Force = r3.Vec{}
			b.Torque = 0
			continue
		}

		b.Vel = r3.Add(b.Vel, r3.Scale(dt*b.InvMass, b.Force))
		b.Vel = r3.Scale(drag, b.Vel)
		b.AngVel += b.Torque * b.InvInertia * dt
		b.AngVel *= drag

		b.Pos = r3.Add(b.Pos, r3.Scale(dt, b.Vel))
		if b.AngVel != 0 {
			b.Rot = geom.Normalize(geom.Mul(geom.AngleAxis(b.AngVel*dt, geom.Up), b.Rot))
		}

		// Floor clamp: boxes rest on z=0.
		if b.Pos.Z < b.HalfExt.Z {
			b.Pos.Z = b.HalfExt.Z
			if b.Vel.Z < 0 {
				b.Vel.Z = 0
			}
		}

		b.Force = r3.Vec{}
		b.Torque = 0
	}

	for i := range w.joints {
		j := &w.joints[i]
		if !j.live {
			continue
		}
		a := &w.bodies[j.a]
		b := &w.bodies[j.b]

		b.Rot = geom.Normalize(geom.Mul(a.Rot, geom.Inv(j.attach2)))
		anchor := r3.Add(a.Pos, geom.Rotate(a.Rot, j.anchorA))
		b.Pos = r3.Sub(anchor, geom.Rotate(b.Rot, j.r2))
		b.Vel = a.Vel
		b.AngVel = a.AngVel
	}
}

// RayHit is the result of a ray query.
type RayHit struct {
	Body   BodyID
	T      float64
	Normal r3.Vec
}

// TraceRay finds the first body intersected by origin + t*dir for
// t in (0, maxT]. dir need not be normalized; T is parametric in dir.
// Bodies containing the origin are skipped so agents never hit
// themselves. Returns NoBody on miss.
func (w *World) TraceRay(origin, dir r3.Vec, maxT float64) RayHit {
	best := RayHit{Body: NoBody, T: maxT}
	found := false

	for i := range w.bodies {
		if !w.live[i] {
			continue
		}
		b := &w.bodies[i]

		var t float64
		var n r3.Vec
		var ok bool
		switch b.Shape {
		case ShapeFloor:
			t, n, ok = rayFloor(origin, dir)
		default:
			t, n, ok = rayOBB(origin, dir, b.Pos, b.Rot, b.HalfExt)
		}
		if !ok || t <= 0 || t > best.T {
			continue
		}
		if !found || t < best.T {
			best = RayHit{Body: BodyID(i), T: t, Normal: n}
			found = true
		}
	}

	if !found {
		return RayHit{Body: NoBody}
	}
	return best
}

func rayFloor(o, d r3.Vec) (float64, r3.Vec, bool) {
	if d.Z == 0 {
		return 0, r3.Vec{}, false
	}
	t := -o.Z / d.Z
	if t <= 0 {
		return 0, r3.Vec{}, false
	}
	return t, geom.Up, true
}

// rayOBB is the slab test in the box's local frame. A ray starting
// inside the box reports no hit.
func rayOBB(o, d r3.Vec, pos r3.Vec, rot quat.Number, halfExt r3.Vec) (float64, r3.Vec, bool) {
	inv := geom.Inv(rot)
	lo := geom.Rotate(inv, r3.Sub(o, pos))
	ld := geom.Rotate(inv, d)

	tmin := math.Inf(-1)
	tmax := math.Inf(1)
	axis := 0
	sign := 1.0

	oc := [3]float64{lo.X, lo.Y, lo.Z}
	dc := [3]float64{ld.X, ld.Y, ld.Z}
	hc := [3]float64{halfExt.X, halfExt.Y, halfExt.Z}

	for i := 0; i < 3; i++ {
		if dc[i] == 0 {
			if oc[i] < -hc[i] || oc[i] > hc[i] {
				return 0, r3.Vec{}, false
			}
			continue
		}
		t1 := (-hc[i] - oc[i]) / dc[i]
		t2 := (hc[i] - oc[i]) / dc[i]
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}
		if t1 > tmin {
			tmin = t1
			axis = i
			sign = s
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, r3.Vec{}, false
		}
	}

	if tmin <= 0 {
		// Origin inside (or box behind the ray).
		return 0, r3.Vec{}, false
	}

	var ln r3.Vec
	switch axis {
	case 0:
		ln = r3.Vec{X: sign}
	case 1:
		ln = r3.Vec{Y: sign}
	default:
		ln = r3.Vec{Z: sign}
	}
	return tmin, geom.Rotate(rot, ln), true
}
