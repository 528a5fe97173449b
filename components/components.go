// Package components defines ECS components for the simulation.
package components

import (
	"github.com/pthm-cable/hideseek/phys"
	"github.com/pthm-cable/hideseek/rng"
)

// Fixed per-world table capacities. All exported arrays and handle
// tables are sized by these; worlds never grow past them.
const (
	MaxBoxes         = 9
	MaxRamps         = 2
	MaxAgents        = 16
	MaxAgentsPerTeam = 3
	LidarSamples     = 30
)

// Team identifies the side an agent plays on.
type Team uint32

const (
	TeamSeeker Team = 0
	TeamHider  Team = 1
)

// OwnerTeam tags an object with the team that has locked it. Unowned
// dynamic objects can be claimed by either team; Unownable objects
// (agents, arena geometry) never change hands.
type OwnerTeam uint32

const (
	OwnerNone OwnerTeam = iota
	OwnerSeeker
	OwnerHider
	OwnerUnownable
)

// ObjectKind names the placed object variants.
type ObjectKind uint32

const (
	KindCube ObjectKind = iota
	KindElongatedBox
	KindRamp
	KindWall
	KindPlane
	KindAgent
)

// Action is one agent's discretized per-tick control record: movement
// on two axes, a turn bucket, and the grab/lock toggles. Movement and
// turn fields range over 0..10 with 5 neutral.
type Action struct {
	X int32
	Y int32
	R int32
	G int32
	L int32
}

// NeutralAction is the consumed/idle action state.
var NeutralAction = Action{X: 5, Y: 5, R: 5, G: 0, L: 0}

// AgentType marks an agent interface's team.
type AgentType struct {
	Team Team
}

// ActiveMask is 1 for agent slots live this episode, 0 for placeholders.
type ActiveMask struct {
	Mask float32
}

// BodyLink connects an interface or object entity to its backing
// physics body. phys.NoBody means the slot has no live body.
type BodyLink struct {
	Body phys.BodyID
}

// GrabLink is an agent's single outstanding grab constraint, or
// phys.NoJoint when the agent holds nothing.
type GrabLink struct {
	Joint phys.JointID
}

// Extents is a box's 2-D footprint, reported in observations.
type Extents struct {
	X, Y float32
}

// PrepCounter exposes the number of preparation ticks remaining.
type PrepCounter struct {
	StepsLeft int32
}

// Seed is the per-agent copy of the episode's derived stream key, kept
// for reproducibility audits.
type Seed struct {
	Key rng.Key
}

// Reward is an agent's scalar reward output for the current tick.
type Reward struct {
	V float32
}

// Done is 1 on the final tick of an episode, 0 otherwise.
type Done struct {
	V int32
}

// AgentObs is one other-agent record in the egocentric observation:
// position and velocity rotated into the observing agent's heading
// frame. Inactive slots are all zero.
type AgentObs struct {
	PosX, PosY float32
	VelX, VelY float32
}

// BoxObs is one box record: relative pose plus footprint and the yaw
// of the box relative to the observer.
type BoxObs struct {
	PosX, PosY   float32
	VelX, VelY   float32
	SizeX, SizeY float32
	Rotation     float32
}

// RampObs is one ramp record; ramps report relative rotation but no
// extents.
type RampObs struct {
	PosX, PosY float32
	VelX, VelY float32
	Rotation   float32
}

// AgentObservations holds relative records for every other agent slot,
// padded with zero records to fixed capacity.
type AgentObservations struct {
	Obs [MaxAgents - 1]AgentObs
}

// BoxObservations holds relative records for every box slot.
type BoxObservations struct {
	Obs [MaxBoxes]BoxObs
}

// RampObservations holds relative records for every ramp slot.
type RampObservations struct {
	Obs [MaxRamps]RampObs
}

// AgentVisibility masks the other-agent observation slots: 1 when the
// slot's entity is inside the view cone with clear line of sight.
type AgentVisibility struct {
	Visible [MaxAgents - 1]float32
}

// BoxVisibility masks the box observation slots.
type BoxVisibility struct {
	Visible [MaxBoxes]float32
}

// RampVisibility masks the ramp observation slots.
type RampVisibility struct {
	Visible [MaxRamps]float32
}

// Lidar is the fixed fan of range samples around the agent's local
// horizontal plane. A sample is the hit distance, or 0 on miss.
type Lidar struct {
	Depth [LidarSamples]float32
}
