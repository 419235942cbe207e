package sim

import (
	"sync"

	"github.com/fenwick-cg/canopy/agent"
)

// parallelThreshold is the minimum population size to fan the compute
// phase out to workers. Below this, goroutine overhead dominates.
const parallelThreshold = 64

// workChunk is a range of snapshot indices for one worker.
type workChunk struct {
	start, end int
}

// workerPool runs compute-phase chunks on persistent goroutines. Each
// worker owns its neighbor scratch buffer; the snapshot, fields, and
// index are read-only during the compute phase, and intents are written
// at disjoint indices, so no further synchronization is needed.
type workerPool struct {
	numWorkers int
	scratches  [][]*agent.Agent

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newWorkerPool(numWorkers int) *workerPool {
	scratches := make([][]*agent.Agent, numWorkers)
	for i := range scratches {
		scratches[i] = make([]*agent.Agent, 0, 32)
	}
	return &workerPool{
		numWorkers: numWorkers,
		scratches:  scratches,
	}
}

// start launches the persistent workers.
func (p *workerPool) start(d *Driver) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(d, i)
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker processes chunks until stopped.
func (p *workerPool) worker(d *Driver, workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			d.computeChunk(chunk.start, chunk.end, &p.scratches[workerID])
			p.doneChan <- struct{}{}
		}
	}
}

// compute dispatches the snapshot in contiguous chunks and waits for all
// of them to finish.
func (p *workerPool) compute(d *Driver) {
	if !p.running {
		p.start(d)
	}

	n := len(d.snapshot)
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
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
