package gui

import (
	"testing"

	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/retroenv/retrogolib/assert"
)

func TestUnpack(t *testing.T) {
	gfx := make([]byte, vm.FramebufferSize)
	gfx[vm.ScreenStride] = 0x40 // (1,1)

	screen := make([]bool, vm.ScreenWidth*vm.ScreenHeight)
	screen[0] = true
	unpack(gfx, screen)

	assert.False(t, screen[0])
	assert.True(t, screen[vm.ScreenWidth+1])

	lit := 0
	for _, p := range screen {
		if p {
			lit++
		}
	}
	assert.Equal(t, 1, lit)
}
