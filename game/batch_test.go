package game

import (
	"reflect"
	"testing"

	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/rng"
)

const smallBatchYAML = `batch:
  num_worlds: 4
  workers: 2
`

func TestBatchStepsAllWorlds(t *testing.T) {
	initTestConfig(t, smallBatchYAML)

	b := NewBatch(rng.Key{A: 42})
	defer b.Close()

	if b.NumWorlds() != 4 {
		t.Fatalf("batch width = %d, want 4", b.NumWorlds())
	}

	for i := 0; i < 10; i++ {
		b.Step()
	}

	for i := 0; i < b.NumWorlds(); i++ {
		if got := b.World(i).CurStep(); got != 10 {
			t.Errorf("world %d step = %d, want 10", i, got)
		}
	}
}

func TestBatchWorldsAreIndependent(t *testing.T) {
	initTestConfig(t, smallBatchYAML)

	b := NewBatch(rng.Key{A: 42})
	defer b.Close()

	keys := make(map[rng.Key]bool)
	for i := 0; i < b.NumWorlds(); i++ {
		keys[b.World(i).EpisodeKey()] = true
	}
	if len(keys) != b.NumWorlds() {
		t.Errorf("got %d distinct episode keys for %d worlds", len(keys), b.NumWorlds())
	}
}

func TestBatchMatchesSerialStepping(t *testing.T) {
	initTestConfig(t, smallBatchYAML)

	base := rng.Key{A: 9, B: 13}

	b := NewBatch(base)
	defer b.Close()
	for i := 0; i < 25; i++ {
		b.Step()
	}

	var batched []WorldExport
	b.Export(&batched)

	for i := 0; i < b.NumWorlds(); i++ {
		w := NewWorld(uint32(i), base)
		w.Init()
		for j := 0; j < 25; j++ {
			w.Step()
		}

		var serial WorldExport
		w.Export(&serial)
		if !reflect.DeepEqual(serial, batched[i]) {
			t.Errorf("world %d diverged between pooled and serial stepping", i)
		}
	}
}

func TestBatchSetActionRoutes(t *testing.T) {
	initTestConfig(t, smallBatchYAML)

	b := NewBatch(rng.Key{A: 4})
	defer b.Close()

	action := components.Action{X: 1, Y: 2, R: 3}
	b.SetAction(2, 0, action)

	got := *b.World(2).actionMap.Get(b.World(2).agentIfaces[0])
	if got != action {
		t.Errorf("routed action = %+v, want %+v", got, action)
	}
	other := *b.World(1).actionMap.Get(b.World(1).agentIfaces[0])
	if other != components.NeutralAction {
		t.Errorf("neighbor world action = %+v, want neutral", other)
	}
}

func TestBatchTriggerResetRoutes(t *testing.T) {
	initTestConfig(t, smallBatchYAML)

	b := NewBatch(rng.Key{A: 4})
	defer b.Close()

	for i := 0; i < 5; i++ {
		b.Step()
	}
	b.TriggerReset(3, 1)
	b.Step()

	if got := b.World(3).CurStep(); got != 0 {
		t.Errorf("reset world step = %d, want 0", got)
	}
	if got := b.World(0).CurStep(); got != 6 {
		t.Errorf("untouched world step = %d, want 6", got)
	}
}

func TestBatchDrainEpisodes(t *testing.T) {
	initTestConfig(t, smallBatchYAML)

	b := NewBatch(rng.Key{A: 4})
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.Step()
	}
	b.TriggerReset(0, 1)
	b.TriggerReset(2, 1)
	b.Step()

	summaries := b.DrainEpisodes()
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	worlds := map[uint32]bool{summaries[0].World: true, summaries[1].World: true}
	if !worlds[0] || !worlds[2] {
		t.Errorf("summaries from worlds %v, want 0 and 2", worlds)
	}

	if got := b.DrainEpisodes(); len(got) != 0 {
		t.Errorf("second drain returned %d summaries, want 0", len(got))
	}
}

func TestBatchExportReusesBuffer(t *testing.T) {
	initTestConfig(t, smallBatchYAML)

	b := NewBatch(rng.Key{A: 4})
	defer b.Close()

	var out []WorldExport
	b.Export(&out)
	if len(out) != b.NumWorlds() {
		t.Fatalf("export width = %d, want %d", len(out), b.NumWorlds())
	}
	first := &out[0]

	b.Step()
	b.Export(&out)
	if &out[0] != first {
		t.Error("export reallocated a reusable buffer")
	}
}
