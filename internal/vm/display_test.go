package vm

import (
	"bytes"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func litPixels(d *Display) int {
	n := 0
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			if d.Pixel(x, y) {
				n++
			}
		}
	}
	return n
}

func TestDisplay_Clear(t *testing.T) {
	var d Display
	d.DrawSprite(3, 4, []byte{0xFF, 0xFF})

	d.Clear()

	for _, b := range d.Framebuffer() {
		assert.Equal(t, uint8(0), b)
	}
}

func TestDisplay_DrawAligned(t *testing.T) {
	var d Display

	collision := d.DrawSprite(8, 1, []byte{0xA5})
	assert.False(t, collision)

	fb := d.Framebuffer()
	assert.Equal(t, uint8(0xA5), fb[1*ScreenStride+1])
	assert.Equal(t, 4, litPixels(&d))
}

func TestDisplay_DrawUnaligned(t *testing.T) {
	var d Display

	d.DrawSprite(3, 0, []byte{0xFF})

	fb := d.Framebuffer()
	assert.Equal(t, uint8(0x1F), fb[0])
	assert.Equal(t, uint8(0xE0), fb[1])
	for x := 3; x < 11; x++ {
		assert.True(t, d.Pixel(x, 0))
	}
	assert.False(t, d.Pixel(2, 0))
	assert.False(t, d.Pixel(11, 0))
}

func TestDisplay_Wraparound(t *testing.T) {
	tests := []struct {
		name   string
		x, y   uint8
		sprite []byte
		lit    [][2]int
	}{
		{"horizontal", 60, 0, []byte{0xFF}, [][2]int{{60, 0}, {63, 0}, {0, 0}, {3, 0}}},
		{"vertical", 0, 31, []byte{0x80, 0x80}, [][2]int{{0, 31}, {0, 0}}},
		{"coordinates beyond screen", 64 + 5, 32 + 2, []byte{0x80}, [][2]int{{5, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Display
			d.DrawSprite(tt.x, tt.y, tt.sprite)

			for _, p := range tt.lit {
				assert.True(t, d.Pixel(p[0], p[1]))
			}
		})
	}
}

func TestDisplay_XORSelfInverse(t *testing.T) {
	var d Display
	sprite := []byte{0xF0, 0x90, 0x90, 0x90, 0xF0}

	before := d.Framebuffer()

	assert.False(t, d.DrawSprite(13, 7, sprite))
	assert.True(t, d.DrawSprite(13, 7, sprite))

	assert.True(t, bytes.Equal(before, d.Framebuffer()))
}

func TestDisplay_CollisionOnlyOnClearedPixels(t *testing.T) {
	var d Display

	d.DrawSprite(0, 0, []byte{0xF0})

	// Disjoint bits in the same byte do not collide.
	assert.False(t, d.DrawSprite(0, 0, []byte{0x0F}))
	// An unaligned row landing on a lit pixel does.
	assert.True(t, d.DrawSprite(4, 0, []byte{0x80}))
}
