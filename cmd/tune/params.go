// Package main provides CMA-ES tuning of steering weights for even
// scatter coverage.
package main

import (
	"github.com/fenwick-cg/canopy/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable steering weights.
// Curvature stays locked: it only damps speed and has no coverage trade-off.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "slope", Min: 0, Max: 5, Default: 1},
			{Name: "separation", Min: 0, Max: 40, Default: 10},
			{Name: "cohesion", Min: 0, Max: 40, Default: 10},
			{Name: "alignment", Min: 0, Max: 10, Default: 1},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp limits raw values to their bounds.
func (pv *ParamVector) Clamp(raw []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v := raw[i]
		if v < spec.Min {
			v = spec.Min
		} else if v > spec.Max {
			v = spec.Max
		}
		clamped[i] = v
	}
	return clamped
}

// ApplyToConfig writes raw parameter values into a config.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, raw []float64) {
	clamped := pv.Clamp(raw)
	cfg.Weights.Slope = clamped[0]
	cfg.Weights.Separation = clamped[1]
	cfg.Weights.Cohesion = clamped[2]
	cfg.Weights.Alignment = clamped[3]
}
