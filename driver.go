package main

import (
	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/game"
	"github.com/pthm-cable/hideseek/rng"
)

// actionDriver optionally fills every agent slot with random actions
// each tick, standing in for a training harness when none is attached.
type actionDriver struct {
	enabled bool
	stream  *rng.Stream
}

func newActionDriver(enabled bool, baseKey rng.Key) *actionDriver {
	return &actionDriver{
		enabled: enabled,
		stream:  rng.NewStream(rng.Split(baseKey, 0xd1e5e1, 0)),
	}
}

func (d *actionDriver) apply(b *game.Batch) {
	if !d.enabled {
		return
	}

	cfg := config.Cfg()
	slots := cfg.Derived.MaxAgentsPerWorld
	buckets := int32(cfg.Movement.Buckets)
	for wi := 0; wi < b.NumWorlds(); wi++ {
		for slot := 0; slot < slots; slot++ {
			b.SetAction(wi, slot, components.Action{
				X: d.stream.SampleI32(0, buckets),
				Y: d.stream.SampleI32(0, buckets),
				R: d.stream.SampleI32(0, buckets),
				G: d.stream.SampleI32(0, 2),
				L: d.stream.SampleI32(0, 2),
			})
		}
	}
}
