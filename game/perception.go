package game

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/geom"
	"github.com/pthm-cable/hideseek/phys"
)

// relativeYaw is the vertical-axis angle of other's heading in the
// observer's frame.
func relativeYaw(observer, other quat.Number) float32 {
	return float32(geom.Yaw(geom.Mul(observer, geom.Inv(other))))
}

// egocentric rotates a world-frame vector into the observer's heading
// frame.
func egocentric(observer quat.Number, v r3.Vec) r3.Vec {
	return geom.Rotate(geom.Inv(observer), v)
}

// collectObservations fills every active agent's egocentric records:
// the preparation countdown, and relative pose/velocity for each box,
// ramp, and other agent. Slots past the live counts are zero records.
func (w *World) collectObservations() {
	cfg := config.Cfg()

	for i := 0; i < w.maxAgentsPerWorld; i++ {
		iface := w.agentIfaces[i]
		body := w.agentBody(iface)
		if body == nil {
			continue
		}

		if w.step <= int32(cfg.Sim.PrepSteps) {
			w.prepMap.Get(iface).StepsLeft = int32(cfg.Sim.PrepSteps) - w.step
		}

		agentPos := body.Pos
		agentRot := body.Rot

		_, boxObs, rampObs, _, _, _, _ := w.ifaceObs.Get(iface)

		for bi := 0; bi < components.MaxBoxes; bi++ {
			obs := &boxObs.Obs[bi]
			if bi >= w.numActiveBoxes {
				*obs = components.BoxObs{}
				continue
			}

			boxBody := w.phys.Body(w.linkMap.Get(w.boxes[bi]).Body)
			rel := egocentric(agentRot, r3.Sub(boxBody.Pos, agentPos))
			vel := egocentric(agentRot, boxBody.Vel)

			obs.PosX = float32(rel.X)
			obs.PosY = float32(rel.Y)
			obs.VelX = float32(vel.X)
			obs.VelY = float32(vel.Y)
			obs.SizeX = w.boxSizes[bi].X
			obs.SizeY = w.boxSizes[bi].Y
			obs.Rotation = relativeYaw(agentRot, boxBody.Rot)
		}

		for ri := 0; ri < components.MaxRamps; ri++ {
			obs := &rampObs.Obs[ri]
			if ri >= w.numActiveRamps {
				*obs = components.RampObs{}
				continue
			}

			rampBody := w.phys.Body(w.linkMap.Get(w.ramps[ri]).Body)
			rel := egocentric(agentRot, r3.Sub(rampBody.Pos, agentPos))
			vel := egocentric(agentRot, rampBody.Vel)

			obs.PosX = float32(rel.X)
			obs.PosY = float32(rel.Y)
			obs.VelX = float32(vel.X)
			obs.VelY = float32(vel.Y)
			obs.Rotation = relativeYaw(agentRot, rampBody.Rot)
		}

		w.collectAgentObservations(iface, agentPos, agentRot)
	}
}

// collectAgentObservations packs the other-agent records. Iterating
// every interface slot and skipping self yields exactly capacity-1
// records, keeping each observer's layout stable across episodes.
func (w *World) collectAgentObservations(iface ecs.Entity, agentPos r3.Vec, agentRot quat.Number) {
	agentObs, _, _, _, _, _, _ := w.ifaceObs.Get(iface)

	out := 0
	for ai := 0; ai < components.MaxAgents; ai++ {
		if ai >= w.numActiveAgents {
			agentObs.Obs[out] = components.AgentObs{}
			out++
			continue
		}

		other := w.agentIfaces[ai]
		if other == iface {
			continue
		}

		otherBody := w.agentBody(other)
		obs := &agentObs.Obs[out]
		out++

		rel := egocentric(agentRot, r3.Sub(otherBody.Pos, agentPos))
		vel := egocentric(agentRot, otherBody.Vel)

		obs.PosX = float32(rel.X)
		obs.PosY = float32(rel.Y)
		obs.VelX = float32(vel.X)
		obs.VelY = float32(vel.Y)
	}
}

// computeVisibility fills the per-slot visibility masks: a slot is
// visible when its entity lies inside the view cone and the sight line
// reaches it unoccluded. A seeker sighting a hider flips the shared
// team scalar for this tick.
func (w *World) computeVisibility() {
	cosThreshold := config.Cfg().Derived.CosHalfFOV

	for i := 0; i < w.maxAgentsPerWorld; i++ {
		iface := w.agentIfaces[i]
		body := w.agentBody(iface)
		if body == nil {
			continue
		}

		agentPos := body.Pos
		agentFwd := geom.Rotate(body.Rot, geom.Fwd)

		check := func(target phys.BodyID) float32 {
			toOther := r3.Sub(w.phys.Body(target).Pos, agentPos)
			norm := r3.Unit(toOther)
			if r3.Dot(norm, agentFwd) < cosThreshold {
				return 0
			}
			// The sight ray is parametric in the full offset: the
			// target's center sits at t=1, so its surface is the
			// first hit unless something else is closer.
			hit := w.phys.TraceRay(agentPos, toOther, 1.0)
			if hit.Body == target {
				return 1
			}
			return 0
		}

		_, _, _, agentVis, boxVis, rampVis, _ := w.ifaceObs.Get(iface)

		for bi := 0; bi < components.MaxBoxes; bi++ {
			if bi < w.numActiveBoxes {
				boxVis.Visible[bi] = check(w.linkMap.Get(w.boxes[bi]).Body)
			} else {
				boxVis.Visible[bi] = 0
			}
		}

		for ri := 0; ri < components.MaxRamps; ri++ {
			if ri < w.numActiveRamps {
				rampVis.Visible[ri] = check(w.linkMap.Get(w.ramps[ri]).Body)
			} else {
				rampVis.Visible[ri] = 0
			}
		}

		team := w.typeMap.Get(iface).Team
		out := 0
		for ai := 0; ai < components.MaxAgents; ai++ {
			if ai >= w.numActiveAgents {
				agentVis.Visible[out] = 0
				out++
				continue
			}

			other := w.agentIfaces[ai]
			if other == iface {
				continue
			}

			visible := check(w.linkMap.Get(other).Body)

			if visible == 1 && team == components.TeamSeeker &&
				w.typeMap.Get(other).Team == components.TeamHider {
				w.hiderTeamReward.Store(-1)
			}

			agentVis.Visible[out] = visible
			out++
		}
	}
}

// computeLidar traces the fixed fan of range samples in the agent's
// local horizontal plane. Sample zero points along local right rotated
// a quarter turn, so the fan starts at the agent's heading.
func (w *World) computeLidar() {
	maxRange := config.Cfg().Perception.LidarRange

	for i := 0; i < w.maxAgentsPerWorld; i++ {
		iface := w.agentIfaces[i]
		body := w.agentBody(iface)
		if body == nil {
			continue
		}

		_, _, _, _, _, _, lidar := w.ifaceObs.Get(iface)

		fwd := geom.Rotate(body.Rot, geom.Fwd)
		right := geom.Rotate(body.Rot, geom.Right)

		for s := 0; s < components.LidarSamples; s++ {
			theta := 2*math.Pi*(float64(s)/components.LidarSamples) + math.Pi/2
			dir := r3.Unit(r3.Add(
				r3.Scale(math.Cos(theta), right),
				r3.Scale(math.Sin(theta), fwd),
			))

			hit := w.phys.TraceRay(body.Pos, dir, maxRange)
			if hit.Body == phys.NoBody {
				lidar.Depth[s] = 0
			} else {
				lidar.Depth[s] = float32(hit.T)
			}
		}
	}
}
