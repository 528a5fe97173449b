package game

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/geom"
	"github.com/pthm-cable/hideseek/phys"
)

// Fixed scenes for physics and perception debugging, selected by reset
// level ids above 1. They bypass the procedural generator and the
// sampled team counts.

// makeSideWall is a tall thin static box standing in for an arena edge
// in the drop-test scenes.
func (w *World) makeSideWall(x float64) {
	w.makeDynObject(r3.Vec{X: x, Z: 2}, geom.IdentityQuat, components.KindWall,
		r3.Vec{X: 0.2, Y: 20, Z: 2}, phys.ResponseStatic, components.OwnerUnownable)
}

// singleCubeScene drops one cube onto the floor.
func (w *World) singleCubeScene(pos r3.Vec, rot quat.Number) {
	e := w.makeDynObject(pos, rot, components.KindCube,
		cubeHalfExt, phys.ResponseDynamic, components.OwnerNone)
	w.boxes[0] = e
	w.boxSizes[0] = cubeSize
	w.numActiveBoxes = 1
	w.makeFloor()
}

// tiltedCubeScene is the cube drop with a corner-down initial rotation.
func (w *World) tiltedCubeScene() {
	rot := geom.Normalize(geom.Mul(
		geom.AngleAxis(math.Atan(1/math.Sqrt2), geom.Fwd),
		geom.AngleAxis(geom.ToRadians(45), geom.Right),
	))
	w.singleCubeScene(r3.Vec{Z: 5}, rot)
}

// highCubeScene drops an axis-aligned cube tilted about the y axis.
func (w *World) highCubeScene() {
	rot := geom.AngleAxis(geom.ToRadians(45), geom.Fwd)
	e := w.makeDynObject(r3.Vec{Z: 10}, rot, components.KindCube,
		cubeHalfExt, phys.ResponseDynamic, components.OwnerNone)
	w.boxes[0] = e
	w.boxSizes[0] = cubeSize
	w.numActiveBoxes = 1
	w.makeFloor()
}

// loneHiderScene is a single hider at the origin, no obstacles.
func (w *World) loneHiderScene() {
	w.makeFloor()
	w.makeAgent(components.TeamHider, r3.Vec{Z: 1}, geom.IdentityQuat)
}

// wallEncounterScene places a dividing wall, one free cube, and one
// agent of each team facing each other across a corner.
func (w *World) wallEncounterScene() {
	w.makeFloor()

	w.makeDynObject(r3.Vec{}, geom.IdentityQuat, components.KindWall,
		r3.Vec{X: 10, Y: 0.2, Z: 1}, phys.ResponseStatic, components.OwnerUnownable)

	e := w.makeDynObject(r3.Vec{Y: -5, Z: 1}, geom.IdentityQuat, components.KindCube,
		cubeHalfExt, phys.ResponseDynamic, components.OwnerNone)
	w.boxes[0] = e
	w.boxSizes[0] = cubeSize
	w.numActiveBoxes = 1

	w.makeAgent(components.TeamHider,
		r3.Vec{X: -15, Y: -15, Z: 1.5}, geom.AngleAxis(geom.ToRadians(-45), geom.Up))
	w.makeAgent(components.TeamSeeker,
		r3.Vec{X: -15, Y: -10, Z: 1.5}, geom.AngleAxis(geom.ToRadians(45), geom.Up))
}

// stackedCubesScene drops two rotated cubes onto each other between
// side walls.
func (w *World) stackedCubesScene() {
	rot := geom.Normalize(geom.Mul(
		geom.AngleAxis(geom.ToRadians(45), geom.Fwd),
		geom.AngleAxis(geom.ToRadians(40), geom.Right),
	))

	for i, z := range []float64{5, 10} {
		e := w.makeDynObject(r3.Vec{Z: z}, rot, components.KindCube,
			cubeHalfExt, phys.ResponseDynamic, components.OwnerNone)
		w.boxes[i] = e
		w.boxSizes[i] = cubeSize
	}
	w.numActiveBoxes = 2

	w.makeFloor()
	w.makeSideWall(-20)
	w.makeSideWall(20)
}

// rampDropScene drops a spinning ramp onto a static one.
func (w *World) rampDropScene() {
	dropRot := geom.Normalize(geom.Mul(
		geom.AngleAxis(geom.ToRadians(25), geom.Fwd),
		geom.Mul(
			geom.AngleAxis(geom.ToRadians(90), geom.Up),
			geom.AngleAxis(geom.ToRadians(45), geom.Right),
		),
	))

	drop := w.makeDynObject(r3.Vec{Z: 10}, dropRot, components.KindRamp,
		rampHalfExt, phys.ResponseDynamic, components.OwnerNone)
	w.phys.Body(w.linkMap.Get(drop).Body).Vel = r3.Vec{Z: -30}
	w.ramps[0] = drop

	restRot := geom.Normalize(geom.Mul(
		geom.AngleAxis(geom.ToRadians(-90), geom.Right),
		geom.AngleAxis(math.Pi, geom.Fwd),
	))
	w.ramps[1] = w.makeDynObject(r3.Vec{X: -0.5, Y: -0.5, Z: 1}, restRot,
		components.KindRamp, rampHalfExt, phys.ResponseStatic, components.OwnerNone)
	w.numActiveRamps = 2

	w.makeFloor()
	w.makeSideWall(-20)
	w.makeSideWall(20)
}

// generateDebugEnvironment dispatches the numbered fixed scenes.
// Unknown ids fall back to an empty floor.
func (w *World) generateDebugEnvironment(level int32) {
	switch level {
	case 2:
		w.tiltedCubeScene()
	case 3:
		w.singleCubeScene(r3.Vec{Z: 5}, geom.IdentityQuat)
	case 4:
		w.highCubeScene()
	case 5:
		w.loneHiderScene()
	case 6:
		w.wallEncounterScene()
	case 7:
		w.stackedCubesScene()
	case 8:
		w.rampDropScene()
	default:
		w.makeFloor()
	}
}
