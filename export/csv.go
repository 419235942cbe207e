// Package export persists per-step scatter output for downstream
// consumers: CSV files for the panelization pipeline and an optional
// SQLite database for run inspection.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/fenwick-cg/canopy/agent"
	"github.com/fenwick-cg/canopy/config"
	"github.com/fenwick-cg/canopy/sim"
	"github.com/fenwick-cg/canopy/telemetry"
)

// ScatterRecord is one agent's state at a sampled step.
type ScatterRecord struct {
	Step  int     `csv:"step"`
	Agent int     `csv:"agent"`
	U     float64 `csv:"u"`
	V     float64 `csv:"v"`
	X     float64 `csv:"x"`
	Y     float64 `csv:"y"`
	Z     float64 `csv:"z"`
	VX    float64 `csv:"vx"`
	VY    float64 `csv:"vy"`
	VZ    float64 `csv:"vz"`
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir         string
	scatterFile *os.File
	statsFile   *os.File

	// Track if headers have been written
	scatterHeaderWritten bool
	statsHeaderWritten   bool
}

// NewOutputManager creates an output manager rooted at dir. Returns nil
// if dir is empty (output disabled); a nil manager ignores all writes.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "scatter.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating scatter.csv: %w", err)
	}
	om.scatterFile = f

	f, err = os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		om.scatterFile.Close()
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	om.statsFile = f

	return om, nil
}

// WriteConfig saves the run configuration as YAML next to the CSVs.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStep writes one sampled step of scatter output.
func (om *OutputManager) WriteStep(step int, agents []agent.Agent, out []sim.Sample) error {
	if om == nil {
		return nil
	}

	records := make([]ScatterRecord, len(out))
	for i, s := range out {
		records[i] = ScatterRecord{
			Step:  step,
			Agent: i,
			U:     agents[i].Pos.X,
			V:     agents[i].Pos.Y,
			X:     s.Position.X,
			Y:     s.Position.Y,
			Z:     s.Position.Z,
			VX:    s.Velocity.X,
			VY:    s.Velocity.Y,
			VZ:    s.Velocity.Z,
		}
	}

	if !om.scatterHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.scatterFile); err != nil {
			return fmt.Errorf("writing scatter: %w", err)
		}
		om.scatterHeaderWritten = true
	} else {
		// Subsequent writes skip headers
		if err := gocsv.MarshalWithoutHeaders(records, om.scatterFile); err != nil {
			return fmt.Errorf("writing scatter: %w", err)
		}
	}

	return nil
}

// WriteStats writes a scatter statistics record to stats.csv.
func (om *OutputManager) WriteStats(stats telemetry.ScatterStats) error {
	if om == nil {
		return nil
	}

	records := []telemetry.ScatterStats{stats}

	if !om.statsHeaderWritten {
		if err := gocsv.Marshal(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		om.statsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}

	return nil
}

// Close flushes and closes the CSV files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	if err := om.scatterFile.Close(); err != nil {
		firstErr = err
	}
	if err := om.statsFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
