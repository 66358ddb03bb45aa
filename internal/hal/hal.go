package hal

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const DefaultScale = 16

const (
	bgColor = uint32(0x000000)
	fgColor = uint32(0xbea700)
)

// HAL presents the machine in an SDL window.
type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int
}

var _ vm.HAL = (*HAL)(nil)

func New(scale int) (*HAL, error) {
	if scale <= 0 {
		scale = DefaultScale
	}
	width, height := int32(vm.ScreenWidth*scale), int32(vm.ScreenHeight*scale)

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, width, height, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window", "width", width, "height", height)
	window.Show()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	err = renderer.SetLogicalSize(width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	return &HAL{
		window:          window,
		renderer:        renderer,
		texture:         texture,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
	}, nil
}

func (hal *HAL) Shutdown() {
	if err := hal.texture.Destroy(); err != nil {
		slog.Error("failed to destroy sdl texture", "err", err)
	}

	if err := hal.renderer.Destroy(); err != nil {
		slog.Error("failed to destroy sdl renderer", "err", err)
	}

	if err := hal.window.Destroy(); err != nil {
		slog.Error("failed to destroy sdl window", "err", err)
	}

	sdl.Quit()
}

// PollEvents drains the SDL event queue. Closing the window quits;
// Backspace reboots the machine.
func (hal *HAL) PollEvents() error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return vm.ErrQuit

		case sdl.KEYDOWN:
			if e.(*sdl.KeyboardEvent).Keysym.Scancode == sdl.SCANCODE_BACKSPACE {
				slog.Debug("hal: reboot requested")
				return vm.ErrReboot
			}
		}
	}

	return nil
}

// Draw uploads a packed framebuffer to the window.
func (hal *HAL) Draw(gfx []byte) error {
	unpack(gfx, hal.backBuffer)

	backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
	if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := hal.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	hal.renderer.Present()
	return nil
}

// unpack expands a packed 1bpp framebuffer into ARGB pixels.
func unpack(gfx []byte, dst []uint32) {
	for y := 0; y < vm.ScreenHeight; y++ {
		for x := 0; x < vm.ScreenWidth; x++ {
			color := bgColor
			if vm.PixelAt(gfx, x, y) {
				color = fgColor
			}

			dst[x+y*vm.ScreenWidth] = color
		}
	}
}
