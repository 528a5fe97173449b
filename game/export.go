package game

import (
	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/rng"
)

// AgentExport is the read-only snapshot of one agent interface slot.
// Inactive slots read as zero values with Mask 0.
type AgentExport struct {
	Team        components.Team
	Mask        float32
	PrepCounter int32
	Seed        rng.Key
	Reward      float32
	Done        int32

	Agents components.AgentObservations
	Boxes  components.BoxObservations
	Ramps  components.RampObservations

	AgentVis components.AgentVisibility
	BoxVis   components.BoxVisibility
	RampVis  components.RampVisibility

	Lidar components.Lidar
}

// WorldExport is the full host-facing snapshot of one world: every
// agent slot at fixed capacity plus the world-level debug positions.
type WorldExport struct {
	WorldIndex uint32
	EpisodeKey rng.Key
	Step       int32
	Agents     []AgentExport
	Debug      DebugPositions
}

// Export copies the world's interface slots into out, growing it to
// the fixed agent capacity if needed. The same buffer can be reused
// across ticks.
func (w *World) Export(out *WorldExport) {
	out.WorldIndex = w.index
	out.EpisodeKey = w.episodeKey
	out.Step = w.step
	out.Debug = w.debug

	if cap(out.Agents) < w.maxAgentsPerWorld {
		out.Agents = make([]AgentExport, w.maxAgentsPerWorld)
	}
	out.Agents = out.Agents[:w.maxAgentsPerWorld]

	for i := 0; i < w.maxAgentsPerWorld; i++ {
		iface := w.agentIfaces[i]
		dst := &out.Agents[i]

		dst.Team = w.typeMap.Get(iface).Team
		dst.Mask = w.maskMap.Get(iface).Mask
		dst.PrepCounter = w.prepMap.Get(iface).StepsLeft
		dst.Seed = w.seedMap.Get(iface).Key
		dst.Reward = w.rewardMap.Get(iface).V
		dst.Done = w.doneMap.Get(iface).V

		agentObs, boxObs, rampObs, agentVis, boxVis, rampVis, lidar := w.ifaceObs.Get(iface)
		dst.Agents = *agentObs
		dst.Boxes = *boxObs
		dst.Ramps = *rampObs
		dst.AgentVis = *agentVis
		dst.BoxVis = *boxVis
		dst.RampVis = *rampVis
		dst.Lidar = *lidar
	}
}

// Export snapshots every world in the batch into out, which is grown
// to the batch width on first use and reused afterwards.
func (b *Batch) Export(out *[]WorldExport) {
	if cap(*out) < len(b.worlds) {
		*out = make([]WorldExport, len(b.worlds))
	}
	*out = (*out)[:len(b.worlds)]

	for i, w := range b.worlds {
		w.Export(&(*out)[i])
	}
}
