// Package gui presents the machine in a raylib window.
package gui

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/kapitanov/chip8tick/internal/vm"
)

const DefaultScale = 12

var (
	ScreenBgColor    = rl.Black
	ScreenPixelColor = rl.Gold
)

// Window is a vm.HAL backed by raylib. Raylib renders once per frame, so
// Draw only records the framebuffer and PollEvents paints it.
type Window struct {
	scale  int32
	screen []bool
}

var _ vm.HAL = (*Window)(nil)

func New(scale int) *Window {
	if scale <= 0 {
		scale = DefaultScale
	}

	rl.SetTraceLogLevel(rl.LogWarning)
	rl.InitWindow(int32(vm.ScreenWidth*scale), int32(vm.ScreenHeight*scale), "CHIP-8")
	slog.Debug("gui: create window", "scale", scale)

	return &Window{
		scale:  int32(scale),
		screen: make([]bool, vm.ScreenWidth*vm.ScreenHeight),
	}
}

func (w *Window) Close() {
	rl.CloseWindow()
}

// Draw implements vm.HAL.
func (w *Window) Draw(gfx []byte) error {
	unpack(gfx, w.screen)
	return nil
}

// PollEvents implements vm.HAL.
func (w *Window) PollEvents() error {
	rl.BeginDrawing()
	rl.ClearBackground(ScreenBgColor)
	for i, lit := range w.screen {
		if !lit {
			continue
		}
		x := int32(i%vm.ScreenWidth) * w.scale
		y := int32(i/vm.ScreenWidth) * w.scale
		rl.DrawRectangle(x, y, w.scale, w.scale, ScreenPixelColor)
	}
	rl.EndDrawing()

	if rl.WindowShouldClose() {
		slog.Debug("gui: exit requested")
		return vm.ErrQuit
	}
	return nil
}

func unpack(gfx []byte, screen []bool) {
	for i := range screen {
		screen[i] = vm.PixelAt(gfx, i%vm.ScreenWidth, i/vm.ScreenWidth)
	}
}
