package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/retroenv/retrogolib/assert"
)

func TestDisplay_Draw(t *testing.T) {
	var out bytes.Buffer
	d := NewDisplay(&out)

	gfx := make([]byte, vm.FramebufferSize)
	// (0,0) (1,0) on the first pixel row, (0,1) (2,1) on the second.
	gfx[0] = 0xC0
	gfx[vm.ScreenStride] = 0xA0

	assert.NoError(t, d.Draw(gfx))

	text := strings.TrimPrefix(out.String(), string(cursorHome))
	lines := strings.Split(strings.TrimSuffix(text, "\r\n"), "\r\n")
	assert.Equal(t, Rows, len(lines))

	first := []rune(lines[0])
	assert.Equal(t, Columns, len(first))
	assert.Equal(t, '█', first[0])
	assert.Equal(t, '▀', first[1])
	assert.Equal(t, '▄', first[2])
	assert.Equal(t, ' ', first[3])

	assert.Equal(t, strings.Repeat(" ", Columns), lines[Rows-1])
}

func TestDisplay_RedrawReusesBuffer(t *testing.T) {
	var out bytes.Buffer
	d := NewDisplay(&out)
	gfx := make([]byte, vm.FramebufferSize)

	assert.NoError(t, d.Draw(gfx))
	n := out.Len()
	assert.NoError(t, d.Draw(gfx))

	assert.Equal(t, 2*n, out.Len())
	assert.NoError(t, d.PollEvents())
}
