package game

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/geom"
	"github.com/pthm-cable/hideseek/phys"
)

// seekerFrozen reports whether seeker input is still gated by the
// preparation phase.
func (w *World) seekerFrozen() bool {
	return w.step < int32(config.Cfg().Sim.PrepSteps)-1
}

// applyMovement decodes each active agent's discrete movement buckets
// into a world-frame force and a vertical-axis torque. Seekers produce
// nothing while frozen; their pending action stays untouched.
func (w *World) applyMovement() {
	cfg := config.Cfg()
	neutral := int32(cfg.Derived.HalfBuckets)

	for i := 0; i < w.maxAgentsPerWorld; i++ {
		iface := w.agentIfaces[i]
		body := w.agentBody(iface)
		if body == nil {
			continue
		}
		if w.typeMap.Get(iface).Team == components.TeamSeeker && w.seekerFrozen() {
			continue
		}

		a := w.actionMap.Get(iface)
		fx := cfg.Derived.ForcePerBucket * float64(a.X-neutral)
		fy := cfg.Derived.ForcePerBucket * float64(a.Y-neutral)
		tz := cfg.Derived.TorquePerBucket * float64(a.R-neutral)

		body.Force = geom.Rotate(body.Rot, r3.Vec{X: fx, Y: fy})
		body.Torque = tz
	}
}

// interactionRay casts the short forward ray used by both lock and
// grab: origin half a unit above the agent center, along its heading.
func (w *World) interactionRay(body *phys.Body) (r3.Vec, r3.Vec, phys.RayHit) {
	origin := r3.Add(body.Pos, r3.Scale(0.5, geom.Up))
	dir := geom.Rotate(body.Rot, geom.Fwd)
	hit := w.phys.TraceRay(origin, dir, config.Cfg().Interaction.Range)
	return origin, dir, hit
}

// applyInteraction dispatches each acting agent's lock and grab
// intents, then consumes the action record back to neutral so an
// unchanged host buffer cannot retrigger the discrete toggles.
func (w *World) applyInteraction() {
	for i := 0; i < w.maxAgentsPerWorld; i++ {
		iface := w.agentIfaces[i]
		body := w.agentBody(iface)
		if body == nil {
			continue
		}
		team := w.typeMap.Get(iface).Team
		if team == components.TeamSeeker && w.seekerFrozen() {
			continue
		}

		a := w.actionMap.Get(iface)

		if a.L == 1 {
			w.applyLock(body, team)
		}
		if a.G == 1 {
			w.applyGrab(iface, body)
		}

		*a = components.NeutralAction
	}
}

// applyLock toggles the mobility of the object in front of the agent.
// Locked objects release only to the team that owns them; mobile
// objects lock only when unowned. Anything owned by the other team, or
// unownable, is untouched.
func (w *World) applyLock(body *phys.Body, team components.Team) {
	_, _, hit := w.interactionRay(body)
	if hit.Body == phys.NoBody {
		return
	}

	target := w.phys.Body(hit.Body)
	owner := w.ownerMap.Get(w.bodyEntity(hit.Body))

	if target.Response == phys.ResponseStatic {
		if (team == components.TeamSeeker && *owner == components.OwnerSeeker) ||
			(team == components.TeamHider && *owner == components.OwnerHider) {
			target.Response = phys.ResponseDynamic
			*owner = components.OwnerNone
		}
		return
	}

	if *owner == components.OwnerNone {
		target.Response = phys.ResponseStatic
		if team == components.TeamHider {
			*owner = components.OwnerHider
		} else {
			*owner = components.OwnerSeeker
		}
	}
}

// applyGrab toggles the agent's single grab constraint: release if one
// is held, otherwise attach to an unowned mobile object in front,
// recording the attach frames and the gap at hit time so the object
// tracks the agent's pose.
func (w *World) applyGrab(iface ecs.Entity, body *phys.Body) {
	selfEnt := w.bodyEntity(w.linkMap.Get(iface).Body)
	grab := w.grabMap.Get(selfEnt)

	if grab.Joint != phys.NoJoint {
		w.phys.DestroyJoint(grab.Joint)
		grab.Joint = phys.NoJoint
		return
	}

	origin, dir, hit := w.interactionRay(body)
	if hit.Body == phys.NoBody {
		return
	}

	target := w.phys.Body(hit.Body)
	owner := w.ownerMap.Get(w.bodyEntity(hit.Body))
	if *owner != components.OwnerNone || target.Response != phys.ResponseDynamic {
		return
	}

	anchor := config.Cfg().Interaction.GrabAnchor

	hitPos := r3.Add(origin, r3.Scale(hit.T, dir))
	r1 := r3.Add(r3.Scale(anchor, geom.Fwd), r3.Scale(0.5, geom.Up))
	r2 := geom.Rotate(geom.Inv(target.Rot), r3.Sub(hitPos, target.Pos))
	attach2 := geom.Normalize(geom.Mul(geom.Inv(target.Rot), body.Rot))
	separation := hit.T - anchor

	selfID := w.linkMap.Get(iface).Body
	grab.Joint = w.phys.MakeFixedJoint(selfID, hit.Body, attach2, r1, r2, separation)
}
