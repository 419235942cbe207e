// Scatter preview tool - interactive top-down view of the agent scatter
// with live sliders for the steering weights.
//
// Usage: go run ./cmd/preview [-config config.yaml]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/fenwick-cg/canopy/agent"
	"github.com/fenwick-cg/canopy/config"
	"github.com/fenwick-cg/canopy/field"
	"github.com/fenwick-cg/canopy/geom"
	"github.com/fenwick-cg/canopy/sim"
	"github.com/fenwick-cg/canopy/surface"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	viewSize     = 640
	panelWidth   = windowWidth - viewSize - 40
	velScale     = 40 // on-screen stretch for velocity segments
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	dom, err := geom.NewDomain(cfg.Domain.U0, cfg.Domain.U1, cfg.Domain.V0, cfg.Domain.V1)
	if err != nil {
		slog.Error("invalid domain", "error", err)
		os.Exit(1)
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
		slog.Error("failed to build fields", "error", err)
		os.Exit(1)
	}

	opts := sim.Options{
		Count:    cfg.Agents.Count,
		Seed:     cfg.Agents.Seed,
		Radius:   cfg.Agents.Radius,
		MaxSpeed: cfg.Agents.MaxSpeed,
		UseGrid:  cfg.Agents.UseGrid,
		Weights: agent.Weights{
			Curvature:  cfg.Weights.Curvature,
			Slope:      cfg.Weights.Slope,
			Separation: cfg.Weights.Separation,
			Cohesion:   cfg.Weights.Cohesion,
			Alignment:  cfg.Weights.Alignment,
		},
	}
	driver, err := sim.New(dom, surf, fields, opts)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer driver.Close()

	rl.InitWindow(windowWidth, windowHeight, "Canopy Scatter Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	weights := opts.Weights
	radius := float32(opts.Radius)
	paused := false

	// Height range for coloring, sampled once from the field grid corners.
	minZ, maxZ := heightRange(surf, dom)

	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeySpace) {
			paused = !paused
		}
		if rl.IsKeyPressed(rl.KeyR) {
			driver.Close()
			driver, err = sim.New(dom, surf, fields, opts)
			if err != nil {
				slog.Error("respawn failed", "error", err)
				os.Exit(1)
			}
			driver.SetWeights(weights)
			if err := driver.SetRadius(float64(radius)); err != nil {
				slog.Error("radius update failed", "error", err)
			}
		}

		if !paused {
			driver.Step()
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		drawScatter(driver, dom, minZ, maxZ)
		rl.DrawRectangleLines(10, 10, viewSize, viewSize, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("step %d   agents %d", driver.StepCount(), driver.Count()),
			15, viewSize+25, 16, rl.DarkGray)
		rl.DrawText("SPACE pause  R respawn", 15, viewSize+45, 16, rl.Gray)

		// Control panel
		panelX := float32(viewSize + 25)
		panelY := float32(10)

		rl.DrawText("Steering Weights", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		weights.Slope = sliderRow(&panelY, panelX, "Slope", weights.Slope, 0, 5)
		weights.Separation = sliderRow(&panelY, panelX, "Separation", weights.Separation, 0, 40)
		weights.Cohesion = sliderRow(&panelY, panelX, "Cohesion", weights.Cohesion, 0, 40)
		weights.Alignment = sliderRow(&panelY, panelX, "Alignment", weights.Alignment, 0, 10)
		driver.SetWeights(weights)

		rl.DrawText("Neighbor radius", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newRadius := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0.0", "0.3",
			radius, 0.0, 0.3,
		)
		rl.DrawText(fmt.Sprintf("%.3f", radius), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newRadius != radius {
			radius = newRadius
			if err := driver.SetRadius(float64(radius)); err != nil {
				slog.Error("radius update failed", "error", err)
			}
		}
		panelY += 35

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(paused, "Resume", "Pause")) {
			paused = !paused
		}

		rl.EndDrawing()
	}
}

// sliderRow draws one labeled weight slider and advances the layout cursor.
func sliderRow(panelY *float32, panelX float32, label string, value, min, max float64) float64 {
	rl.DrawText(label, int32(panelX), int32(*panelY), 14, rl.Gray)
	*panelY += 18
	v := gui.SliderBar(
		rl.Rectangle{X: panelX, Y: *panelY, Width: float32(panelWidth - 80), Height: 20},
		fmt.Sprintf("%.0f", min), fmt.Sprintf("%.0f", max),
		float32(value), float32(min), float32(max),
	)
	rl.DrawText(fmt.Sprintf("%.2f", value), int32(panelX+float32(panelWidth-70)), int32(*panelY+2), 16, rl.DarkGray)
	*panelY += 35
	return float64(v)
}

// drawScatter renders agents top-down in UV space, colored by surface
// height, with velocity segments from the embedded offset.
func drawScatter(driver *sim.Driver, dom geom.Domain, minZ, maxZ float64) {
	agents := driver.Agents()
	for i := range agents {
		a := &agents[i]
		sx := float32(10 + (a.Pos.X-dom.U0)/dom.SpanU()*viewSize)
		sy := float32(10 + (a.Pos.Y-dom.V0)/dom.SpanV()*viewSize)

		t := 0.0
		if maxZ > minZ {
			t = (a.Embedded.Z - minZ) / (maxZ - minZ)
		}
		c := heightColor(t)

		vel := a.EmbeddedVelocity()
		ex := sx + float32(vel.X*velScale)
		ey := sy + float32(vel.Y*velScale)
		rl.DrawLineV(rl.Vector2{X: sx, Y: sy}, rl.Vector2{X: ex, Y: ey}, rl.Fade(c, 0.5))
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, 3, c)
	}
}

// heightRange scans a coarse grid for the surface's Z extent.
func heightRange(surf geom.Surface, dom geom.Domain) (minZ, maxZ float64) {
	const n = 32
	first := true
	for j := 0; j <= n; j++ {
		v := dom.V0 + dom.SpanV()*float64(j)/n
		for i := 0; i <= n; i++ {
			u := dom.U0 + dom.SpanU()*float64(i)/n
			z := surf.Evaluate(u, v).Z
			if first || z < minZ {
				minZ = z
			}
			if first || z > maxZ {
				maxZ = z
			}
			first = false
		}
	}
	return minZ, maxZ
}

// heightColor maps a normalized height to a blue-to-red ramp.
func heightColor(t float64) rl.Color {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return rl.Color{
		R: uint8(40 + 200*t),
		G: uint8(60 + 80*(1-t)),
		B: uint8(220 - 180*t),
		A: 255,
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
