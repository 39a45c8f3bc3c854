package main

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/engine"
)

// drawFrame renders the particles as points and the occupied quadtree nodes
// as outlines, world coordinates scaled onto the screen.
func drawFrame(e *engine.Engine, cfg *config.Config) {
	side := float32(2 * cfg.Region.Radius)
	left := float32(cfg.Region.CenterX - cfg.Region.Radius)
	top := float32(cfg.Region.CenterY - cfg.Region.Radius)
	scaleX := float32(cfg.Screen.Width) / side
	scaleY := float32(cfg.Screen.Height) / side

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	for i := range e.Nodes() {
		node := &e.Nodes()[i]
		if !node.InUse || node.Count == 0 {
			continue
		}
		x := int32((node.Left - left) * scaleX)
		y := int32((node.Top - top) * scaleY)
		w := int32((node.Right - node.Left) * scaleX)
		h := int32((node.Bottom - node.Top) * scaleY)
		rl.DrawRectangleLines(x, y, w, h, rl.DarkGray)
	}

	for i := range e.Particles() {
		p := &e.Particles()[i]
		if !p.Active {
			continue
		}
		x := (p.Position.X() - left) * scaleX
		y := (p.Position.Y() - top) * scaleY
		color := rl.SkyBlue
		if v := p.Velocity.Vec3().Len(); v > 60 {
			color = rl.Orange
		}
		rl.DrawPixelV(rl.Vector2{X: x, Y: y}, color)
	}

	rl.DrawFPS(10, 10)
	rl.EndDrawing()
}
