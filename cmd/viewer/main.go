// Top-down debug viewer - runs a batch locally and draws one world's
// exported position snapshot with basic playback controls.
//
// Usage: go run ./cmd/viewer
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/hideseek/components"
	"github.com/pthm-cable/hideseek/config"
	"github.com/pthm-cable/hideseek/game"
	"github.com/pthm-cable/hideseek/rng"
)

const (
	windowWidth  = 900
	windowHeight = 720
	arenaSize    = 640
	panelX       = arenaSize + 40
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seedA := flag.Uint64("seed-a", 0, "Base RNG key half A (0 = time-based)")
	seedB := flag.Uint64("seed-b", 0, "Base RNG key half B")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	baseKey := rng.Key{A: uint32(*seedA), B: uint32(*seedB)}
	if *seedA == 0 && *seedB == 0 {
		baseKey = rng.Key{A: uint32(time.Now().UnixNano()), B: 0}
	}

	b := game.NewBatch(baseKey)
	defer b.Close()

	rl.InitWindow(windowWidth, windowHeight, "Hide and Seek Viewer")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	paused := false
	var speed float32 = 1
	var resetLevel float32 = 1
	var worldSel float32
	accum := float32(0)

	var export game.WorldExport

	for !rl.WindowShouldClose() {
		if !paused {
			accum += speed
			for accum >= 1 {
				b.Step()
				accum -= 1
			}
		}

		b.World(int(worldSel)).Export(&export)

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		drawArena(cfg.Arena.Bound, &export)
		drawAgentInfo(&export)

		// Controls
		panelY := float32(20)
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 100, Height: 30}, toggleText(paused, "Resume", "Pause")) {
			paused = !paused
		}
		if gui.Button(rl.Rectangle{X: panelX + 110, Y: panelY, Width: 100, Height: 30}, "Step") {
			b.Step()
		}
		panelY += 44

		worldSel = gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: 160, Height: 20},
			"", fmt.Sprintf("world %d", int(worldSel)), worldSel, 0, float32(b.NumWorlds()-1))
		panelY += 34

		speed = gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: 160, Height: 20},
			"", fmt.Sprintf("speed %.1f", speed), speed, 0.1, 8)
		panelY += 34

		resetLevel = gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: 160, Height: 20},
			"", fmt.Sprintf("level %d", int(resetLevel)), resetLevel, 1, 8)
		panelY += 28
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 100, Height: 30}, "Reset") {
			b.TriggerReset(int(worldSel), int32(resetLevel))
		}

		rl.EndDrawing()
	}
}

func toggleText(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// toScreen maps arena coordinates into the square view.
func toScreen(x, y float32, bound float64) (int32, int32) {
	scale := float32(arenaSize) / float32(2*bound)
	sx := int32((x+float32(bound))*scale) + 20
	sy := int32((float32(bound)-y)*scale) + 20
	return sx, sy
}

func drawArena(bound float64, export *game.WorldExport) {
	rl.DrawRectangleLines(20, 20, arenaSize, arenaSize, rl.Gray)

	for i, box := range export.Debug.Boxes {
		if box == (game.Vec2{}) {
			continue
		}
		x, y := toScreen(box.X, box.Y, bound)
		rl.DrawRectangle(x-6, y-6, 12, 12, rl.Brown)
		rl.DrawText(fmt.Sprintf("%d", i), x-3, y-5, 10, rl.White)
	}

	for _, ramp := range export.Debug.Ramps {
		if ramp == (game.Vec2{}) {
			continue
		}
		x, y := toScreen(ramp.X, ramp.Y, bound)
		rl.DrawTriangle(
			rl.Vector2{X: float32(x), Y: float32(y - 8)},
			rl.Vector2{X: float32(x - 7), Y: float32(y + 6)},
			rl.Vector2{X: float32(x + 7), Y: float32(y + 6)},
			rl.Orange,
		)
	}

	for i, agent := range export.Debug.Agents {
		if agent == (game.Vec2{}) {
			continue
		}
		x, y := toScreen(agent.X, agent.Y, bound)
		color := rl.Green
		if i < len(export.Agents) && export.Agents[i].Team == components.TeamSeeker {
			color = rl.Red
		}
		rl.DrawCircle(x, y, 6, color)
	}
}

func drawAgentInfo(export *game.WorldExport) {
	y := int32(200)
	rl.DrawText(fmt.Sprintf("step %d", export.Step), panelX, y, 16, rl.White)
	y += 24
	rl.DrawText(fmt.Sprintf("key %d/%d", export.EpisodeKey.A, export.EpisodeKey.B), panelX, y, 14, rl.LightGray)
	y += 28

	for i, a := range export.Agents {
		if a.Mask == 0 {
			continue
		}
		team := "hider"
		color := rl.Green
		if a.Team == components.TeamSeeker {
			team = "seeker"
			color = rl.Red
		}
		rl.DrawText(
			fmt.Sprintf("%d %s r=%.1f prep=%d done=%d", i, team, a.Reward, a.PrepCounter, a.Done),
			panelX, y, 14, color,
		)
		y += 20
	}
}
