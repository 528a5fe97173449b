package game

import (
	"math"
	"sync/atomic"

	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/config"
)

// teamReward is the per-tick team-advantage scalar shared between the
// visibility and reward systems. It rearms to the hider-favoring value
// every reset and flips when any seeker sights any hider. Atomic
// because visibility checks for different agents may run concurrently
// under a batched scheduler.
type teamReward struct {
	bits atomic.Uint32
}

func (t *teamReward) Store(v float32) {
	t.bits.Store(math.Float32bits(v))
}

func (t *teamReward) Load() float32 {
	return math.Float32frombits(t.bits.Load())
}

// outputRewardsDones writes the per-agent reward and done flags for
// the tick that just finished. Hiders receive the team scalar, seekers
// its negation; leaving the arena costs a flat penalty; nothing is
// paid out during the preparation phase.
func (w *World) outputRewardsDones() {
	cfg := config.Cfg()

	doneVal := int32(0)
	if w.step == int32(cfg.Sim.EpisodeLen)-1 {
		doneVal = 1
	}

	base := w.hiderTeamReward.Load()

	for i := 0; i < w.maxAgentsPerWorld; i++ {
		iface := w.agentIfaces[i]
		body := w.agentBody(iface)
		if body == nil {
			continue
		}

		done := w.doneMap.Get(iface)
		if w.step == 0 {
			done.V = 0
		}
		if doneVal == 1 {
			done.V = 1
		}

		reward := w.rewardMap.Get(iface)
		if w.step < int32(cfg.Sim.PrepSteps)-1 {
			reward.V = 0
			continue
		}

		v := base
		if w.typeMap.Get(iface).Team == components.TeamSeeker {
			v = -v
		}

		if math.Abs(body.Pos.X) >= cfg.Arena.Bound ||
			math.Abs(body.Pos.Y) >= cfg.Arena.Bound {
			v -= float32(cfg.Arena.BoundaryPenalty)
		}

		reward.V = v

		if w.typeMap.Get(iface).Team == components.TeamHider {
			w.epHiderReturn += float64(v)
		} else {
			w.epSeekerReturn += float64(v)
		}
	}
}
