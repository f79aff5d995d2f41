package simulation

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pthm-cable/foragers/components"
	"github.com/pthm-cable/foragers/systems"
)

// animalSnapshot captures read-only state for the perception phase.
type animalSnapshot struct {
	ID  uint32
	Pos components.Position
	Rot components.Rotation
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	Vision []float32
}

// workChunk represents a range of snapshots for a worker to process.
type workChunk struct {
	start, end int
}

// parallelState holds resources for parallel perception.
type parallelState struct {
	snapshots  []animalSnapshot
	controls   []systems.Control // indexed by animal ID
	errs       []error           // indexed like snapshots
	scratches  []workerScratch
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(workers, threshold, animals, cells int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]workerScratch, workers)
	for i := range scratches {
		scratches[i].Vision = make([]float32, cells)
	}
	return &parallelState{
		numWorkers: workers,
		threshold:  threshold,
		scratches:  scratches,
		snapshots:  make([]animalSnapshot, 0, animals),
		controls:   make([]systems.Control, animals),
		errs:       make([]error, animals),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(w *World) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(w, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(w *World, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			w.computeChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// perceive snapshots the pre-tick state, runs every animal's eye and brain,
// and leaves one control per animal in w.parallel.controls.
func (w *World) perceive() error {
	p := w.parallel

	// Phase A: build snapshots (single-threaded)
	w.foodPositions = w.foodPositions[:0]
	foods := w.foodFilter.Query()
	for foods.Next() {
		pos, _ := foods.Get()
		w.foodPositions = append(w.foodPositions, *pos)
	}

	p.snapshots = p.snapshots[:0]
	animals := w.animalFilter.Query()
	for animals.Next() {
		pos, rot, _, animal := animals.Get()
		p.snapshots = append(p.snapshots, animalSnapshot{ID: animal.ID, Pos: *pos, Rot: *rot})
	}

	n := len(p.snapshots)
	if n == 0 {
		return nil
	}
	p.errs = p.errs[:n]
	for i := range p.errs {
		p.errs[i] = nil
	}

	// Phase B: compute, single or parallel based on animal count
	if n < p.threshold || p.numWorkers == 1 {
		w.computeChunk(0, n, &p.scratches[0])
	} else {
		w.computeParallel(n)
	}

	// Results are position-independent; report the lowest failing animal.
	for i, err := range p.errs {
		if err != nil {
			return fmt.Errorf("animal %d: %w", p.snapshots[i].ID, err)
		}
	}
	return nil
}

// computeParallel dispatches work to the worker pool.
func (w *World) computeParallel(n int) {
	p := w.parallel
	if !p.running {
		p.startWorkers(w)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for i := 0; i < p.numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk runs the eye and brain for snapshots [start, end). It only
// reads shared state and writes the slots owned by those snapshots.
func (w *World) computeChunk(start, end int, scratch *workerScratch) {
	p := w.parallel
	for i := start; i < end; i++ {
		snap := &p.snapshots[i]

		w.opts.Eye.ProcessInto(scratch.Vision, snap.Pos.X, snap.Pos.Y, snap.Rot.Heading, w.foodPositions)

		out, err := w.brains[snap.ID].Propagate(scratch.Vision)
		if err != nil {
			p.errs[i] = err
			continue
		}
		p.controls[snap.ID] = w.opts.Movement.Control(out)
	}
}
