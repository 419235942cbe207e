package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fenwick-cg/canopy/agent"
	"github.com/fenwick-cg/canopy/sim"
)

func sampleStep() ([]agent.Agent, []sim.Sample) {
	agents := []agent.Agent{
		{Pos: r2.Vec{X: 0.25, Y: 0.75}},
		{Pos: r2.Vec{X: 0.5, Y: 0.5}},
	}
	out := []sim.Sample{
		{Position: r3.Vec{X: 2.5, Y: 7.5, Z: 0.3}, Velocity: r3.Vec{X: 0.01, Y: 0, Z: 0}},
		{Position: r3.Vec{X: 5, Y: 5, Z: -0.1}, Velocity: r3.Vec{X: 0, Y: 0.02, Z: 0}},
	}
	return agents, out
}

func TestNilOutputManagerIgnoresWrites(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should return a nil manager")
	}

	agents, out := sampleStep()
	if err := om.WriteStep(1, agents, out); err != nil {
		t.Errorf("nil manager WriteStep: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil manager Close: %v", err)
	}
}

func TestWriteStepCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	agents, out := sampleStep()
	if err := om.WriteStep(10, agents, out); err != nil {
		t.Fatalf("WriteStep: %v", err)
	}
	if err := om.WriteStep(20, agents, out); err != nil {
		t.Fatalf("WriteStep: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "scatter.csv"))
	if err != nil {
		t.Fatalf("read scatter.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	// One header plus two agents over two sampled steps.
	if len(lines) != 5 {
		t.Fatalf("scatter.csv has %d lines, want 5:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "step,agent,u,v") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.Count(string(data), "step,agent") != 1 {
		t.Error("header repeated on subsequent writes")
	}
	if !strings.HasPrefix(lines[1], "10,0,0.25,0.75") {
		t.Errorf("unexpected first record %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "20,0,") {
		t.Errorf("unexpected third record %q", lines[3])
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	rec, err := OpenRecorder(path, 42, "agents:\n  count: 2\n")
	if err != nil {
		t.Fatalf("OpenRecorder: %v", err)
	}
	defer rec.Close()

	if rec.RunID() <= 0 {
		t.Errorf("RunID = %d, want positive", rec.RunID())
	}

	agents, out := sampleStep()
	if err := rec.WriteStep(10, agents, out); err != nil {
		t.Fatalf("WriteStep: %v", err)
	}
	if err := rec.WriteStep(20, agents, out); err != nil {
		t.Fatalf("WriteStep: %v", err)
	}

	n, err := rec.StepCount()
	if err != nil {
		t.Fatalf("StepCount: %v", err)
	}
	if n != 2 {
		t.Errorf("StepCount = %d, want 2", n)
	}
}

func TestRecorderSeparatesRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	first, err := OpenRecorder(path, 1, "")
	if err != nil {
		t.Fatalf("OpenRecorder: %v", err)
	}
	agents, out := sampleStep()
	if err := first.WriteStep(1, agents, out); err != nil {
		t.Fatalf("WriteStep: %v", err)
	}
	first.Close()

	second, err := OpenRecorder(path, 2, "")
	if err != nil {
		t.Fatalf("OpenRecorder: %v", err)
	}
	defer second.Close()

	if second.RunID() == first.RunID() {
		t.Errorf("both runs share id %d", first.RunID())
	}
	n, err := second.StepCount()
	if err != nil {
		t.Fatalf("StepCount: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh run StepCount = %d, want 0", n)
	}
}
