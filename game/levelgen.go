package game

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/geom"
	"github.com/pthm-cable/hideseek/phys"
)

// Collision half extents per object variant. Box observation sizes are
// the full 2-D footprints of these.
var (
	cubeHalfExt      = r3.Vec{X: 1, Y: 1, Z: 1}
	elongatedHalfExt = r3.Vec{X: 4, Y: 0.75, Z: 1}
	rampHalfExt      = r3.Vec{X: 1, Y: 1, Z: 1}
	agentHalfExt     = r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
)

var (
	cubeSize      = components.Extents{X: 2, Y: 2}
	elongatedSize = components.Extents{X: 8, Y: 1.5}
)

// makeDynObject creates an object entity with a backing physics body
// and appends it to the obstacle table.
func (w *World) makeDynObject(pos r3.Vec, rot quat.Number, kind components.ObjectKind,
	halfExt r3.Vec, response phys.Response, owner components.OwnerTeam) ecs.Entity {

	shape := phys.ShapeBox
	if kind == components.KindPlane {
		shape = phys.ShapeFloor
	}

	id := w.phys.AddBody(phys.Body{
		Pos:      pos,
		Rot:      rot,
		HalfExt:  halfExt,
		Shape:    shape,
		Response: response,
	})

	k := kind
	o := owner
	link := components.BodyLink{Body: id}
	ext := components.Extents{}
	e := w.objMap.NewEntity(&k, &o, &link, &ext)

	w.registerBody(id, e)
	w.obstacles[w.numObstacles] = e
	w.numObstacles++
	return e
}

// makeFloor creates the static ground plane.
func (w *World) makeFloor() ecs.Entity {
	return w.makeDynObject(r3.Vec{}, geom.IdentityQuat, components.KindPlane,
		r3.Vec{}, phys.ResponseStatic, components.OwnerUnownable)
}

// makeAgent claims the next agent interface slot and creates the
// backing dynamic body entity for it.
func (w *World) makeAgent(team components.Team, pos r3.Vec, rot quat.Number) ecs.Entity {
	iface := w.agentIfaces[w.numActiveAgents]
	w.numActiveAgents++

	w.typeMap.Get(iface).Team = team
	w.maskMap.Get(iface).Mask = 1
	w.seedMap.Get(iface).Key = w.episodeKey
	*w.actionMap.Get(iface) = components.NeutralAction

	id := w.phys.AddBody(phys.Body{
		Pos:      pos,
		Rot:      rot,
		HalfExt:  agentHalfExt,
		Shape:    phys.ShapeBox,
		Response: phys.ResponseDynamic,
	})

	kind := components.KindAgent
	owner := components.OwnerUnownable
	link := components.BodyLink{Body: id}
	ext := components.Extents{}
	body := w.objMap.NewEntity(&kind, &owner, &link, &ext)
	grab := components.GrabLink{Joint: phys.NoJoint}
	w.grabMap.Add(body, &grab)

	w.registerBody(id, body)
	w.linkMap.Get(iface).Body = id

	if team == components.TeamSeeker {
		w.seekers[w.numSeekers] = body
		w.numSeekers++
	} else {
		w.hiders[w.numHiders] = body
		w.numHiders++
	}

	return body
}

// overlapsAny reports whether aabb intersects any previously placed
// object's world-space bounding box.
func (w *World) overlapsAny(aabb geom.AABB) bool {
	for i := 0; i < w.numObstacles; i++ {
		link := w.linkMap.Get(w.obstacles[i])
		b := w.phys.Body(link.Body)
		if b.Shape == phys.ShapeFloor {
			continue
		}
		other := geom.BoxAABB(b.Pos, b.Rot, b.HalfExt)
		if aabb.Overlaps(other) {
			return true
		}
	}
	return false
}

// samplePlacement draws positions and rotations from the episode
// stream until the footprint is collision free or the rejection budget
// is exhausted; the final attempt is accepted regardless, which bounds
// generation cost at the price of occasional light overlap.
func (w *World) samplePlacement(halfExt r3.Vec, z float64) (r3.Vec, quat.Number, float64) {
	cfg := config.Cfg()
	bound := cfg.Arena.Bound
	span := 2 * bound

	rejections := 0
	for {
		pos := r3.Vec{
			X: -bound + w.rng.SampleUniform()*span,
			Y: -bound + w.rng.SampleUniform()*span,
			Z: z,
		}
		angle := w.rng.SampleUniform() * math.Pi
		rot := geom.AngleAxis(angle, geom.Up)

		aabb := geom.BoxAABB(pos, rot, halfExt)
		if !w.overlapsAny(aabb) || rejections == cfg.Objects.MaxRejects {
			return pos, rot, angle
		}
		rejections++
	}
}

// populateStaticGeometry places the interior wall segments that seed
// the occupied-space baseline for the overlap checks. One or two
// axis-aligned walls are drawn from the episode stream.
func (w *World) populateStaticGeometry() {
	bound := config.Cfg().Arena.Bound

	numWalls := int(w.rng.SampleI32(1, 3))
	for i := 0; i < numWalls; i++ {
		length := 6 + w.rng.SampleUniform()*10
		center := r3.Vec{
			X: (w.rng.SampleUniform()*2 - 1) * bound * 0.5,
			Y: (w.rng.SampleUniform()*2 - 1) * bound * 0.5,
			Z: 1.5,
		}
		rot := geom.IdentityQuat
		if w.rng.SampleI32(0, 2) == 1 {
			rot = geom.AngleAxis(math.Pi/2, geom.Up)
		}
		w.makeDynObject(center, rot, components.KindWall,
			r3.Vec{X: length / 2, Y: 0.25, Z: 1.5},
			phys.ResponseStatic, components.OwnerUnownable)
	}
}

// generateTrainingEnvironment builds the procedural episode layout:
// walls, movable boxes (elongated first, then cubes), ramps, hiders,
// seekers, then the floor plane. Each placement restarts its own
// rejection budget.
func (w *World) generateTrainingEnvironment(numHiders, numSeekers int) {
	cfg := config.Cfg()

	totalBoxes := int(w.rng.SampleI32(int32(cfg.Objects.MinBoxes), int32(cfg.Objects.MaxBoxes)+1))
	numElongated := int(w.rng.SampleI32(int32(cfg.Objects.MinElongated), int32(totalBoxes)))
	numCubes := totalBoxes - numElongated

	w.populateStaticGeometry()

	for i := 0; i < numElongated; i++ {
		pos, rot, angle := w.samplePlacement(elongatedHalfExt, 1)
		e := w.makeDynObject(pos, rot, components.KindElongatedBox,
			elongatedHalfExt, phys.ResponseDynamic, components.OwnerNone)
		w.boxes[i] = e
		w.boxSizes[i] = elongatedSize
		w.boxRotations[i] = angle
	}

	for i := 0; i < numCubes; i++ {
		pos, rot, angle := w.samplePlacement(cubeHalfExt, 1)
		idx := numElongated + i
		e := w.makeDynObject(pos, rot, components.KindCube,
			cubeHalfExt, phys.ResponseDynamic, components.OwnerNone)
		w.boxes[idx] = e
		w.boxSizes[idx] = cubeSize
		w.boxRotations[idx] = angle
	}
	w.numActiveBoxes = totalBoxes

	for i := 0; i < cfg.Objects.NumRamps; i++ {
		pos, rot, angle := w.samplePlacement(rampHalfExt, 1)
		e := w.makeDynObject(pos, rot, components.KindRamp,
			rampHalfExt, phys.ResponseDynamic, components.OwnerNone)
		w.ramps[i] = e
		w.rampRotations[i] = angle
	}
	w.numActiveRamps = cfg.Objects.NumRamps

	for i := 0; i < numHiders; i++ {
		pos, rot, _ := w.samplePlacement(agentHalfExt, 1)
		w.makeAgent(components.TeamHider, pos, rot)
	}
	for i := 0; i < numSeekers; i++ {
		pos, rot, _ := w.samplePlacement(agentHalfExt, 1)
		w.makeAgent(components.TeamSeeker, pos, rot)
	}

	// Floor goes in last so it never participates in placement
	// rejection. The side boundary planes are intentionally absent:
	// leaving the arena is discouraged by reward, not by collision.
	w.makeFloor()
}

// generateEnvironment dispatches to the procedural level or a numbered
// debug scene, then deactivates the agent slots beyond this episode's
// sampled count so their exports read as zero.
func (w *World) generateEnvironment(level int32, numHiders, numSeekers int) {
	if level == 1 {
		w.generateTrainingEnvironment(numHiders, numSeekers)
	} else {
		w.generateDebugEnvironment(level)
	}

	w.deactivateUnusedSlots()
}

// deactivateUnusedSlots zeroes every interface slot past this
// episode's agent count so their exports read as empty.
func (w *World) deactivateUnusedSlots() {
	for i := w.numActiveAgents; i < w.maxAgentsPerWorld; i++ {
		iface := w.agentIfaces[i]
		w.linkMap.Get(iface).Body = phys.NoBody
		w.maskMap.Get(iface).Mask = 0
		*w.actionMap.Get(iface) = components.NeutralAction
		w.prepMap.Get(iface).StepsLeft = 0
		w.rewardMap.Get(iface).V = 0
		w.doneMap.Get(iface).V = 0

		agentObs, boxObs, rampObs, agentVis, boxVis, rampVis, lidar := w.ifaceObs.Get(iface)
		*agentObs = components.AgentObservations{}
		*boxObs = components.BoxObservations{}
		*rampObs = components.RampObservations{}
		*agentVis = components.AgentVisibility{}
		*boxVis = components.BoxVisibility{}
		*rampVis = components.RampVisibility{}
		*lidar = components.Lidar{}
	}
}
