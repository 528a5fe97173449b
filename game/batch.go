package game

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/rng"
)

// parallelThreshold is the minimum world count to use the worker pool.
// Below this, stepping in place is faster than channel round trips.
const parallelThreshold = 4

// worldChunk is a contiguous range of world indices for one worker.
type worldChunk struct {
	start, end int
}

// Batch steps a fixed set of independent worlds in lockstep. Worlds
// never share mutable state, so the pool splits them into contiguous
// chunks with no synchronization beyond the tick barrier.
type Batch struct {
	worlds []*World

	numWorkers int
	workChan   chan worldChunk
	doneChan   chan struct{}
	stopChan   chan struct{}
	wg         sync.WaitGroup
	running    bool
}

// NewBatch creates and initializes the configured number of worlds,
// all derived from baseKey.
func NewBatch(baseKey rng.Key) *Batch {
	cfg := config.Cfg()

	numWorkers := cfg.Batch.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	b := &Batch{
		worlds:     make([]*World, cfg.Batch.NumWorlds),
		numWorkers: numWorkers,
	}
	for i := range b.worlds {
		b.worlds[i] = NewWorld(uint32(i), baseKey)
		b.worlds[i].Init()
	}
	return b
}

// NumWorlds returns the batch width.
func (b *Batch) NumWorlds() int {
	return len(b.worlds)
}

// World returns direct access to one simulation instance. Callers must
// not touch it while Step is in flight.
func (b *Batch) World(i int) *World {
	return b.worlds[i]
}

// startWorkers launches the persistent worker goroutines.
func (b *Batch) startWorkers() {
	if b.running {
		return
	}

	b.workChan = make(chan worldChunk, b.numWorkers)
	b.doneChan = make(chan struct{}, b.numWorkers)
	b.stopChan = make(chan struct{})
	b.running = true

	for i := 0; i < b.numWorkers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
}

// Close signals all workers to exit and waits for them.
func (b *Batch) Close() {
	if !b.running {
		return
	}

	close(b.stopChan)
	b.wg.Wait()
	close(b.workChan)
	close(b.doneChan)
	b.running = false
}

func (b *Batch) worker() {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopChan:
			return
		case chunk, ok := <-b.workChan:
			if !ok {
				return
			}
			for i := chunk.start; i < chunk.end; i++ {
				b.worlds[i].Step()
			}
			b.doneChan <- struct{}{}
		}
	}
}

// Step advances every world one tick and returns when all are done.
func (b *Batch) Step() {
	n := len(b.worlds)

	if n < parallelThreshold || b.numWorkers == 1 {
		for _, w := range b.worlds {
			w.Step()
		}
		return
	}

	b.startWorkers()

	chunkSize := (n + b.numWorkers - 1) / b.numWorkers
	numChunks := 0
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		b.workChan <- worldChunk{start: start, end: end}
		numChunks++
	}

	for i := 0; i < numChunks; i++ {
		<-b.doneChan
	}
}

// SetAction overwrites one agent slot's pending action.
func (b *Batch) SetAction(world, slot int, a components.Action) {
	b.worlds[world].SetAction(slot, a)
}

// TriggerReset requests a reset on one world at its next tick.
func (b *Batch) TriggerReset(world int, level int32) {
	b.worlds[world].TriggerReset(level)
}

// DrainEpisodes collects finished-episode summaries across the batch,
// in world order.
func (b *Batch) DrainEpisodes() []EpisodeSummary {
	var out []EpisodeSummary
	for _, w := range b.worlds {
		out = append(out, w.DrainEpisodes()...)
	}
	return out
}
