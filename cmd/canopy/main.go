// Command canopy runs the surface scatter simulation headless: it builds
// a heightmap surface, samples its curvature and slope fields, steps the
// agent population, and writes the per-step scatter for downstream
// panelization.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/fenwick-cg/canopy/agent"
	"github.com/fenwick-cg/canopy/config"
	"github.com/fenwick-cg/canopy/export"
	"github.com/fenwick-cg/canopy/field"
	"github.com/fenwick-cg/canopy/geom"
	"github.com/fenwick-cg/canopy/sim"
	"github.com/fenwick-cg/canopy/surface"
	"github.com/fenwick-cg/canopy/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	steps := flag.Int("steps", 1000, "Number of simulation steps")
	seed := flag.Int64("seed", 0, "Spawn RNG seed override (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	recordPath := flag.String("record", "", "SQLite database path for run recording (empty = disabled)")
	logEvery := flag.Int("log-every", 100, "Steps between progress log lines (0 = quiet)")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *seed != 0 {
		cfg.Agents.Seed = *seed
	}

	driver, dom, err := buildDriver(cfg)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer driver.Close()

	out, err := export.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to snapshot config", "error", err)
		os.Exit(1)
	}

	var rec *export.Recorder
	if *recordPath != "" {
		cfgYAML, err := yaml.Marshal(cfg)
		if err != nil {
			slog.Error("failed to marshal config", "error", err)
			os.Exit(1)
		}
		rec, err = export.OpenRecorder(*recordPath, cfg.Agents.Seed, string(cfgYAML))
		if err != nil {
			slog.Error("failed to open recorder", "error", err)
			os.Exit(1)
		}
		defer rec.Close()
		slog.Info("recording run", "db", *recordPath, "run_id", rec.RunID())
	}

	slog.Info("starting simulation",
		"agents", cfg.Agents.Count,
		"seed", cfg.Agents.Seed,
		"steps", *steps,
		"radius", cfg.Agents.Radius,
		"workers", cfg.Agents.Workers,
	)

	sampleEvery := cfg.Output.SampleEvery
	start := time.Now()

	driver.Run(*steps, func(step int, samples []sim.Sample) {
		sampled := step == *steps ||
			(sampleEvery > 0 && step%sampleEvery == 0)
		if sampled {
			if err := out.WriteStep(step, driver.Agents(), samples); err != nil {
				slog.Error("scatter write failed", "step", step, "error", err)
				os.Exit(1)
			}
			if rec != nil {
				if err := rec.WriteStep(step, driver.Agents(), samples); err != nil {
					slog.Error("recorder write failed", "step", step, "error", err)
					os.Exit(1)
				}
			}
		}

		if *logEvery > 0 && step%*logEvery == 0 {
			st := scatterStats(step, driver, dom, cfg.Output.StatsGrid)
			if err := out.WriteStats(st); err != nil {
				slog.Error("stats write failed", "step", step, "error", err)
				os.Exit(1)
			}
			slog.Info("progress",
				"step", step,
				"coverage", st.Coverage,
				"spacing_mean", st.SpacingMean,
				"spacing_cv", st.SpacingCV(),
				"speed_mean", st.SpeedMean,
			)
		}
	})

	slog.Info("simulation finished",
		"steps", driver.StepCount(),
		"elapsed", time.Since(start).String(),
	)
}

// buildDriver assembles the surface, fields, and simulation driver from
// the loaded configuration.
func buildDriver(cfg *config.Config) (*sim.Driver, geom.Domain, error) {
	dom, err := geom.NewDomain(cfg.Domain.U0, cfg.Domain.U1, cfg.Domain.V0, cfg.Domain.V1)
	if err != nil {
		return nil, geom.Domain{}, err
	}

	surf := surface.New(surface.Params{
		Size:         cfg.Surface.Size,
		Amp:          cfg.Surface.Amp,
		Freq:         cfg.Surface.Freq,
		Phase:        cfg.Surface.Phase,
		NoiseAmp:     cfg.Surface.NoiseAmp,
		NoiseFreq:    cfg.Surface.NoiseFreq,
		NoiseOctaves: cfg.Surface.NoiseOctaves,
		Seed:         cfg.Surface.Seed,
	})

	gravity := r3.Vec{
		X: cfg.Fields.Gravity[0],
		Y: cfg.Fields.Gravity[1],
		Z: cfg.Fields.Gravity[2],
	}
	fields, err := field.Build(surf, dom, cfg.Fields.ResU, cfg.Fields.ResV, gravity)
	if err != nil {
		return nil, geom.Domain{}, err
	}

	driver, err := sim.New(dom, surf, fields, sim.Options{
		Count:    cfg.Agents.Count,
		Seed:     cfg.Agents.Seed,
		Radius:   cfg.Agents.Radius,
		MaxSpeed: cfg.Agents.MaxSpeed,
		Workers:  cfg.Agents.Workers,
		UseGrid:  cfg.Agents.UseGrid,
		Weights: agent.Weights{
			Curvature:  cfg.Weights.Curvature,
			Slope:      cfg.Weights.Slope,
			Separation: cfg.Weights.Separation,
			Cohesion:   cfg.Weights.Cohesion,
			Alignment:  cfg.Weights.Alignment,
		},
	})
	if err != nil {
		return nil, geom.Domain{}, err
	}
	return driver, dom, nil
}

// scatterStats snapshots UV positions and velocities for telemetry.
func scatterStats(step int, driver *sim.Driver, dom geom.Domain, gridRes int) telemetry.ScatterStats {
	agents := driver.Agents()
	positions := make([]r2.Vec, len(agents))
	velocities := make([]r2.Vec, len(agents))
	for i := range agents {
		positions[i] = agents[i].Pos
		velocities[i] = agents[i].Vel
	}
	return telemetry.Compute(step, positions, velocities, dom, gridRes)
}
