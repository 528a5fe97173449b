// Package game implements the hide-and-seek simulation core: per-world
// entity tables, procedural level generation, action decoding, lock and
// grab interaction, perception, and the reward/episode state machine.
package game

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/phys"
	"github.com/pthm-cable/hideseek/rng"
)

// maxTotalEntities bounds the per-world obstacle table: every placed
// object plus headroom for static geometry.
const maxTotalEntities = components.MaxBoxes + components.MaxRamps +
	components.MaxAgents + 30

// Vec2 is a compact 2-D position used by debug exports.
type Vec2 struct {
	X, Y float32
}

// DebugPositions is the world-level snapshot of all entity positions,
// zero-filled past the live counts.
type DebugPositions struct {
	Boxes  [components.MaxBoxes]Vec2
	Ramps  [components.MaxRamps]Vec2
	Agents [components.MaxAgents]Vec2
}

// EpisodeSummary records one finished episode for telemetry.
type EpisodeSummary struct {
	World        uint32
	Episode      uint32
	Key          rng.Key
	Hiders       int
	Seekers      int
	Boxes        int
	Steps        int
	HiderReturn  float64
	SeekerReturn float64
}

// World is one independent simulation instance: an ECS world, its
// physics collaborator, the fixed handle tables, and the episode state
// machine. Worlds never share state; a batch steps many of them in
// lockstep.
type World struct {
	ecs  *ecs.World
	phys *phys.World

	index   uint32
	baseKey rng.Key

	// episode counter and the derived key of the running episode
	episode    uint32
	episodeKey rng.Key
	rng        *rng.Stream

	step int32

	// component mappers
	ifaceCore *ecs.Map7[
		components.AgentType,
		components.ActiveMask,
		components.BodyLink,
		components.Action,
		components.PrepCounter,
		components.Seed,
		components.Reward,
	]
	ifaceObs *ecs.Map7[
		components.AgentObservations,
		components.BoxObservations,
		components.RampObservations,
		components.AgentVisibility,
		components.BoxVisibility,
		components.RampVisibility,
		components.Lidar,
	]
	doneMap *ecs.Map1[components.Done]

	objMap *ecs.Map4[
		components.ObjectKind,
		components.OwnerTeam,
		components.BodyLink,
		components.Extents,
	]
	grabMap *ecs.Map1[components.GrabLink]

	typeMap   *ecs.Map1[components.AgentType]
	maskMap   *ecs.Map1[components.ActiveMask]
	linkMap   *ecs.Map1[components.BodyLink]
	actionMap *ecs.Map1[components.Action]
	prepMap   *ecs.Map1[components.PrepCounter]
	seedMap   *ecs.Map1[components.Seed]
	rewardMap *ecs.Map1[components.Reward]
	ownerMap  *ecs.Map1[components.OwnerTeam]

	// agent interface slots, allocated once, activated per episode
	agentIfaces       [components.MaxAgents]ecs.Entity
	maxAgentsPerWorld int

	// live entity tables
	hiders          [components.MaxAgentsPerTeam]ecs.Entity
	seekers         [components.MaxAgentsPerTeam]ecs.Entity
	numHiders       int
	numSeekers      int
	numActiveAgents int

	obstacles    [maxTotalEntities]ecs.Entity
	numObstacles int

	boxes          [components.MaxBoxes]ecs.Entity
	boxSizes       [components.MaxBoxes]components.Extents
	boxRotations   [components.MaxBoxes]float64
	ramps          [components.MaxRamps]ecs.Entity
	rampRotations  [components.MaxRamps]float64
	numActiveBoxes int
	numActiveRamps int

	// physics body -> ECS entity back references
	bodyEnt []ecs.Entity

	// host-facing control slots
	resetLevel     int32
	loadCheckpoint bool
	checkpointKey  rng.Key

	hiderTeamReward teamReward

	debug DebugPositions

	// per-episode telemetry accumulators
	epHiderReturn  float64
	epSeekerReturn float64
	finished       []EpisodeSummary
}

// NewWorld creates world number index seeded from baseKey. The first
// Step (or Init) generates the first episode: the reset slot starts at
// the procedural level id.
func NewWorld(index uint32, baseKey rng.Key) *World {
	cfg := config.Cfg()
	ew := ecs.NewWorld()

	w := &World{
		ecs:               ew,
		phys:              phys.NewWorld(maxTotalEntities, cfg.Sim.DT),
		index:             index,
		baseKey:           baseKey,
		maxAgentsPerWorld: cfg.Derived.MaxAgentsPerWorld,
		resetLevel:        1,
		bodyEnt:           make([]ecs.Entity, 0, maxTotalEntities),
		ifaceCore: ecs.NewMap7[
			components.AgentType,
			components.ActiveMask,
			components.BodyLink,
			components.Action,
			components.PrepCounter,
			components.Seed,
			components.Reward,
		](ew),
		ifaceObs: ecs.NewMap7[
			components.AgentObservations,
			components.BoxObservations,
			components.RampObservations,
			components.AgentVisibility,
			components.BoxVisibility,
			components.RampVisibility,
			components.Lidar,
		](ew),
		doneMap:   ecs.NewMap1[components.Done](ew),
		objMap:    ecs.NewMap4[components.ObjectKind, components.OwnerTeam, components.BodyLink, components.Extents](ew),
		grabMap:   ecs.NewMap1[components.GrabLink](ew),
		typeMap:   ecs.NewMap1[components.AgentType](ew),
		maskMap:   ecs.NewMap1[components.ActiveMask](ew),
		linkMap:   ecs.NewMap1[components.BodyLink](ew),
		actionMap: ecs.NewMap1[components.Action](ew),
		prepMap:   ecs.NewMap1[components.PrepCounter](ew),
		seedMap:   ecs.NewMap1[components.Seed](ew),
		rewardMap: ecs.NewMap1[components.Reward](ew),
		ownerMap:  ecs.NewMap1[components.OwnerTeam](ew),
	}

	for i := 0; i < w.maxAgentsPerWorld; i++ {
		agentType := components.AgentType{}
		mask := components.ActiveMask{}
		link := components.BodyLink{Body: phys.NoBody}
		action := components.NeutralAction
		prep := components.PrepCounter{}
		seed := components.Seed{}
		reward := components.Reward{}
		iface := w.ifaceCore.NewEntity(&agentType, &mask, &link, &action, &prep, &seed, &reward)

		agentObs := components.AgentObservations{}
		boxObs := components.BoxObservations{}
		rampObs := components.RampObservations{}
		agentVis := components.AgentVisibility{}
		boxVis := components.BoxVisibility{}
		rampVis := components.RampVisibility{}
		lidar := components.Lidar{}
		w.ifaceObs.Add(iface, &agentObs, &boxObs, &rampObs, &agentVis, &boxVis, &rampVis, &lidar)

		done := components.Done{}
		w.doneMap.Add(iface, &done)

		w.agentIfaces[i] = iface
	}

	w.hiderTeamReward.Store(1)

	return w
}

// Init runs the initial reset pipeline: generate the first episode and
// produce the first observations.
func (w *World) Init() {
	w.applyReset()
	w.collectObservations()
	w.computeVisibility()
	w.computeLidar()
	w.updateDebugPositions()
}

// Step advances the world one tick through the fixed pipeline order:
// movement, interaction, physics, reward/done output, reset handling,
// then the observations for the next decision.
func (w *World) Step() {
	w.applyMovement()
	w.applyInteraction()
	w.phys.Step()
	w.outputRewardsDones()
	w.applyReset()
	w.collectObservations()
	w.computeVisibility()
	w.computeLidar()
	w.updateDebugPositions()
}

// TriggerReset requests a reset to the given level id at the next tick:
// 0 is a no-op, 1 the procedural level, higher ids the fixed debug
// scenes.
func (w *World) TriggerReset(level int32) {
	w.resetLevel = level
}

// EpisodeKey returns the derived stream key of the running episode,
// the value a checkpoint must store to replay it.
func (w *World) EpisodeKey() rng.Key {
	return w.episodeKey
}

// BaseKey returns the batch-wide base key this world derives episode
// streams from.
func (w *World) BaseKey() rng.Key {
	return w.baseKey
}

// SetCheckpoint arms checkpoint loading: until cleared, every reset
// reuses key instead of deriving a fresh stream, and the episode
// counter is left untouched.
func (w *World) SetCheckpoint(key rng.Key) {
	w.checkpointKey = key
	w.loadCheckpoint = true
}

// ClearCheckpoint returns the world to naturally derived episode keys.
func (w *World) ClearCheckpoint() {
	w.loadCheckpoint = false
}

// CurStep returns the tick index within the running episode.
func (w *World) CurStep() int32 {
	return w.step
}

// Debug returns the latest world-level position snapshot.
func (w *World) Debug() *DebugPositions {
	return &w.debug
}

// Counts returns the live table counts.
func (w *World) Counts() (hiders, seekers, boxes, ramps int) {
	return w.numHiders, w.numSeekers, w.numActiveBoxes, w.numActiveRamps
}

// SetAction overwrites an agent slot's pending action. Takes effect at
// the next Step.
func (w *World) SetAction(slot int, a components.Action) {
	*w.actionMap.Get(w.agentIfaces[slot]) = a
}

// DrainEpisodes returns and clears the finished-episode summaries.
func (w *World) DrainEpisodes() []EpisodeSummary {
	out := w.finished
	w.finished = nil
	return out
}

// initEpisodeRNG derives the stream for the next episode. Natural
// resets consume the per-world episode counter; fixed-world mode pins
// the key, and an armed checkpoint overrides it.
func (w *World) initEpisodeRNG() {
	cfg := config.Cfg()

	var counter rng.Key
	switch {
	case cfg.Sim.FixedWorld:
		counter = rng.Key{}
	case w.loadCheckpoint:
		counter = w.checkpointKey
	default:
		counter = rng.Key{A: w.episode, B: w.index}
		w.episode++
	}

	w.episodeKey = counter
	w.rng = rng.NewStream(rng.Split(w.baseKey, counter.A, counter.B))
}

// resetEnvironment tears down the running episode: records its summary,
// destroys every per-episode entity and constraint, zeroes the counts,
// and derives the next RNG stream.
func (w *World) resetEnvironment() {
	if w.numActiveAgents > 0 {
		w.finished = append(w.finished, EpisodeSummary{
			World:        w.index,
			Episode:      w.episodeKey.A,
			Key:          w.episodeKey,
			Hiders:       w.numHiders,
			Seekers:      w.numSeekers,
			Boxes:        w.numActiveBoxes,
			Steps:        int(w.step) + 1,
			HiderReturn:  w.epHiderReturn,
			SeekerReturn: w.epSeekerReturn,
		})
	}
	w.epHiderReturn = 0
	w.epSeekerReturn = 0

	w.step = 0

	for i := 0; i < w.numObstacles; i++ {
		w.ecs.RemoveEntity(w.obstacles[i])
	}
	w.numObstacles = 0
	w.numActiveBoxes = 0
	w.numActiveRamps = 0

	destroyAgent := func(e ecs.Entity) {
		// Grab joints die with the episode; phys.Reset below drops
		// the bodies themselves.
		grab := w.grabMap.Get(e)
		if grab.Joint != phys.NoJoint {
			w.phys.DestroyJoint(grab.Joint)
		}
		w.ecs.RemoveEntity(e)
	}

	for i := 0; i < w.numHiders; i++ {
		destroyAgent(w.hiders[i])
	}
	w.numHiders = 0

	for i := 0; i < w.numSeekers; i++ {
		destroyAgent(w.seekers[i])
	}
	w.numSeekers = 0

	w.numActiveAgents = 0

	w.phys.Reset()
	w.bodyEnt = w.bodyEnt[:0]

	w.initEpisodeRNG()
}

// applyReset is the per-tick lifecycle decision: advance the episode
// clock, or tear down and regenerate when the episode ends naturally or
// a reset was requested. The team-advantage scalar rearms to the hider
// value every tick.
func (w *World) applyReset() {
	cfg := config.Cfg()

	level := w.resetLevel
	if !cfg.Sim.IgnoreEpisodeLength && w.step == int32(cfg.Sim.EpisodeLen)-1 {
		level = 1
	}

	if level != 0 {
		w.resetEnvironment()
		w.resetLevel = 0

		numHiders := int(w.rng.SampleI32(int32(cfg.Teams.MinHiders), int32(cfg.Teams.MaxHiders)+1))
		numSeekers := int(w.rng.SampleI32(int32(cfg.Teams.MinSeekers), int32(cfg.Teams.MaxSeekers)+1))

		w.generateEnvironment(level, numHiders, numSeekers)
	} else {
		w.step++
	}

	w.hiderTeamReward.Store(1)
}

// bodyEntity maps a physics body back to its ECS entity.
func (w *World) bodyEntity(id phys.BodyID) ecs.Entity {
	return w.bodyEnt[id]
}

// registerBody records the body -> entity back reference. Body ids are
// dense slot indices, so a flat slice suffices.
func (w *World) registerBody(id phys.BodyID, e ecs.Entity) {
	for int(id) >= len(w.bodyEnt) {
		w.bodyEnt = append(w.bodyEnt, ecs.Entity{})
	}
	w.bodyEnt[id] = e
}

// agentBody returns the physics body backing an interface slot, or nil
// for inactive slots.
func (w *World) agentBody(iface ecs.Entity) *phys.Body {
	link := w.linkMap.Get(iface)
	if link.Body == phys.NoBody {
		return nil
	}
	return w.phys.Body(link.Body)
}

// updateDebugPositions refreshes the exported world snapshot,
// zero-filling slots past the live counts.
func (w *World) updateDebugPositions() {
	xy := func(v r3.Vec) Vec2 {
		return Vec2{X: float32(v.X), Y: float32(v.Y)}
	}

	for i := 0; i < components.MaxBoxes; i++ {
		if i >= w.numActiveBoxes {
			w.debug.Boxes[i] = Vec2{}
			continue
		}
		link := w.linkMap.Get(w.boxes[i])
		w.debug.Boxes[i] = xy(w.phys.Body(link.Body).Pos)
	}

	for i := 0; i < components.MaxRamps; i++ {
		if i >= w.numActiveRamps {
			w.debug.Ramps[i] = Vec2{}
			continue
		}
		link := w.linkMap.Get(w.ramps[i])
		w.debug.Ramps[i] = xy(w.phys.Body(link.Body).Pos)
	}

	out := 0
	for i := 0; i < w.numHiders; i++ {
		link := w.linkMap.Get(w.hiders[i])
		w.debug.Agents[out] = xy(w.phys.Body(link.Body).Pos)
		out++
	}
	for i := 0; i < w.numSeekers; i++ {
		link := w.linkMap.Get(w.seekers[i])
		w.debug.Agents[out] = xy(w.phys.Body(link.Body).Pos)
		out++
	}
	for ; out < components.MaxAgents; out++ {
		w.debug.Agents[out] = Vec2{}
	}
}
