package main

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fenwick-cg/canopy/agent"
	"github.com/fenwick-cg/canopy/config"
	"github.com/fenwick-cg/canopy/field"
	"github.com/fenwick-cg/canopy/geom"
	"github.com/fenwick-cg/canopy/sim"
	"github.com/fenwick-cg/canopy/surface"
	"github.com/fenwick-cg/canopy/telemetry"
)

// FitnessEvaluator runs headless simulations and scores scatter quality.
type FitnessEvaluator struct {
	params     *ParamVector
	steps      int
	seeds      []int64
	baseConfig *config.Config

	// Shared precomputation: the surface and fields do not depend on the
	// tuned weights, so build them once and reuse across evaluations.
	dom    geom.Domain
	surf   geom.Surface
	fields *field.Bundle

	mu          sync.Mutex
	bestFitness float64
	evalCount   int
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, steps int, seeds []int64, baseCfg *config.Config) (*FitnessEvaluator, error) {
	dom, err := geom.NewDomain(baseCfg.Domain.U0, baseCfg.Domain.U1, baseCfg.Domain.V0, baseCfg.Domain.V1)
	if err != nil {
		return nil, err
	}
	surf := surface.New(surface.Params{
		Size:         baseCfg.Surface.Size,
		Amp:          baseCfg.Surface.Amp,
		Freq:         baseCfg.Surface.Freq,
		Phase:        baseCfg.Surface.Phase,
		NoiseAmp:     baseCfg.Surface.NoiseAmp,
		NoiseFreq:    baseCfg.Surface.NoiseFreq,
		NoiseOctaves: baseCfg.Surface.NoiseOctaves,
		Seed:         baseCfg.Surface.Seed,
	})
	gravity := r3.Vec{
		X: baseCfg.Fields.Gravity[0],
		Y: baseCfg.Fields.Gravity[1],
		Z: baseCfg.Fields.Gravity[2],
	}
	fields, err := field.Build(surf, dom, baseCfg.Fields.ResU, baseCfg.Fields.ResV, gravity)
	if err != nil {
		return nil, err
	}
	return &FitnessEvaluator{
		params:      params,
		steps:       steps,
		seeds:       seeds,
		baseConfig:  baseCfg,
		dom:         dom,
		surf:        surf,
		fields:      fields,
		bestFitness: math.Inf(1),
	}, nil
}

// EvalCount returns the number of evaluations performed so far.
func (fe *FitnessEvaluator) EvalCount() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.evalCount
}

// BestFitness returns the lowest fitness seen so far.
func (fe *FitnessEvaluator) BestFitness() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestFitness
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Each seed runs to completion; the score rewards high cell coverage and
// low spacing variation at the final step.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	scores := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			scores[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	for _, s := range scores {
		total += s
	}
	avg := total / float64(len(fe.seeds))

	fe.mu.Lock()
	fe.evalCount++
	if avg < fe.bestFitness {
		fe.bestFitness = avg
	}
	fe.mu.Unlock()

	return avg
}

// runSimulation executes one headless run and returns its score.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) float64 {
	clamped := fe.params.Clamp(x)
	cfg := fe.baseConfig

	driver, err := sim.New(fe.dom, fe.surf, fe.fields, sim.Options{
		Count:    cfg.Agents.Count,
		Seed:     seed,
		Radius:   cfg.Agents.Radius,
		MaxSpeed: cfg.Agents.MaxSpeed,
		UseGrid:  cfg.Agents.UseGrid,
		Weights: agent.Weights{
			Curvature:  cfg.Weights.Curvature,
			Slope:      clamped[0],
			Separation: clamped[1],
			Cohesion:   clamped[2],
			Alignment:  clamped[3],
		},
	})
	if err != nil {
		// Bad domain or resolution would already have failed in the
		// constructor; a failure here means the weights were unusable.
		return math.Inf(1)
	}
	defer driver.Close()

	for s := 0; s < fe.steps; s++ {
		driver.Step()
	}

	agents := driver.Agents()
	positions := make([]r2.Vec, len(agents))
	velocities := make([]r2.Vec, len(agents))
	for i := range agents {
		positions[i] = agents[i].Pos
		velocities[i] = agents[i].Vel
	}
	stats := telemetry.Compute(fe.steps, positions, velocities, fe.dom, cfg.Output.StatsGrid)

	// Lower is better: uncovered fraction plus spacing irregularity.
	return (1.0 - stats.Coverage) + stats.SpacingCV()
}
