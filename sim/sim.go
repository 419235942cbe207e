// Package sim owns the agent population and advances it in discrete,
// fully-completed timesteps. Every step runs two strict phases over a
// frozen snapshot of the population: a compute phase that derives each
// agent's next velocity from the pre-step state, and an apply phase that
// commits velocities and positions. The split makes step output
// independent of iteration order, so runs are reproducible and the
// compute phase can be spread across workers without changing results.
package sim

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fenwick-cg/canopy/agent"
	"github.com/fenwick-cg/canopy/field"
	"github.com/fenwick-cg/canopy/geom"
)

// Options configures a simulation run.
type Options struct {
	Count    int     // population size, fixed after spawn
	Seed     int64   // RNG seed for spawning
	Radius   float64 // neighbor radius in parametric space
	MaxSpeed float64 // parametric velocity cap
	Weights  agent.Weights

	// Workers sets the compute-phase worker count. Values below 2 keep
	// the step fully single-threaded.
	Workers int

	// UseGrid swaps the all-pairs neighbor scan for a spatial grid.
	// Output is identical; only query cost changes.
	UseGrid bool
}

// Sample is one agent's per-step output pair: the embedded surface
// position and the parametric velocity pushed forward into 3D.
type Sample struct {
	Position r3.Vec
	Velocity r3.Vec
}

// Driver advances a fixed population of agents over a shared, read-only
// field bundle and surface.
type Driver struct {
	dom    geom.Domain
	surf   geom.Surface
	fields *field.Bundle
	opts   Options

	agents   []agent.Agent
	snapshot []agent.Agent
	intents  []r2.Vec
	samples  []Sample
	index    agent.Index
	grid     *agent.GridIndex
	pool     *workerPool

	step int
}

// New validates the configuration, spawns the population, and returns a
// ready driver. The fields and surface are shared by reference and must
// not be mutated afterwards.
func New(dom geom.Domain, surf geom.Surface, fields *field.Bundle, opts Options) (*Driver, error) {
	if opts.Count <= 0 {
		return nil, fmt.Errorf("sim: agent count %d must be positive", opts.Count)
	}
	if opts.Radius < 0 {
		return nil, fmt.Errorf("sim: negative neighbor radius %g", opts.Radius)
	}
	if opts.MaxSpeed < 0 {
		return nil, fmt.Errorf("sim: negative max speed %g", opts.MaxSpeed)
	}
	if fields == nil || fields.Curvature == nil || fields.SlopeMag == nil || fields.SlopeDir == nil {
		return nil, fmt.Errorf("sim: incomplete field bundle")
	}

	d := &Driver{
		dom:      dom,
		surf:     surf,
		fields:   fields,
		opts:     opts,
		agents:   make([]agent.Agent, opts.Count),
		snapshot: make([]agent.Agent, opts.Count),
		intents:  make([]r2.Vec, opts.Count),
		samples:  make([]Sample, opts.Count),
	}

	if opts.UseGrid && opts.Radius > 0 {
		d.grid = agent.NewGridIndex(dom, opts.Radius)
		d.index = d.grid
	} else {
		d.index = agent.BruteIndex{}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	for i := range d.agents {
		d.agents[i] = agent.Spawn(dom, surf, fields, rng)
	}

	if opts.Workers > 1 {
		d.pool = newWorkerPool(opts.Workers)
	}

	return d, nil
}

// Count returns the population size.
func (d *Driver) Count() int { return len(d.agents) }

// StepCount returns the number of completed steps.
func (d *Driver) StepCount() int { return d.step }

// Agents exposes the live population for inspection. Callers must not
// mutate it between steps.
func (d *Driver) Agents() []agent.Agent { return d.agents }

// SetWeights replaces the force weights for subsequent steps.
func (d *Driver) SetWeights(w agent.Weights) { d.opts.Weights = w }

// SetRadius replaces the neighbor radius for subsequent steps. The grid
// index, if any, is resized to match.
func (d *Driver) SetRadius(radius float64) error {
	if radius < 0 {
		return fmt.Errorf("sim: negative neighbor radius %g", radius)
	}
	d.opts.Radius = radius
	if d.grid != nil && radius > 0 {
		d.grid = agent.NewGridIndex(d.dom, radius)
		d.index = d.grid
	}
	return nil
}

// Step advances the simulation by one timestep and returns the per-agent
// output pairs in population order. The returned slice is reused by the
// next call.
func (d *Driver) Step() []Sample {
	copy(d.snapshot, d.agents)
	if d.grid != nil {
		d.grid.Rebuild(d.snapshot)
	}

	// Compute phase: every agent steers against the frozen snapshot.
	if d.pool != nil && len(d.agents) >= parallelThreshold {
		d.pool.compute(d)
	} else {
		scratch := make([]*agent.Agent, 0, 32)
		d.computeChunk(0, len(d.snapshot), &scratch)
	}

	// Apply phase: commit velocities, then integrate positions.
	for i := range d.agents {
		d.agents[i].Vel = d.intents[i]
		d.agents[i].Update()

		d.samples[i] = Sample{
			Position: d.agents[i].Embedded,
			Velocity: d.agents[i].EmbeddedVelocity(),
		}
	}

	d.step++
	return d.samples
}

// computeChunk derives intents for snapshot indices [i0, i1).
func (d *Driver) computeChunk(i0, i1 int, scratch *[]*agent.Agent) {
	for i := i0; i < i1; i++ {
		*scratch = d.index.Neighbors((*scratch)[:0], d.snapshot, i, d.opts.Radius)
		d.intents[i] = d.snapshot[i].SteerWith(*scratch, d.opts.Weights, d.opts.MaxSpeed)
	}
}

// Run calls Step repeatedly, invoking emit after each step with the step
// number and the output pairs. Run defines no termination condition of
// its own beyond the requested step count; emit may be nil.
func (d *Driver) Run(steps int, emit func(step int, out []Sample)) {
	for i := 0; i < steps; i++ {
		out := d.Step()
		if emit != nil {
			emit(d.step, out)
		}
	}
}

// Close stops the compute workers, if any. The driver remains usable in
// single-threaded mode afterwards.
func (d *Driver) Close() {
	if d.pool != nil {
		d.pool.stop()
		d.pool = nil
	}
}
