package vm

const (
	ScreenWidth  = 64
	ScreenHeight = 32

	// ScreenStride is the number of packed bytes per screen row.
	ScreenStride = ScreenWidth / 8

	FramebufferSize = ScreenStride * ScreenHeight
)

// Display is a 64x32 monochrome bit plane. Pixel (0,0) is the most
// significant bit of byte 0; each row occupies ScreenStride bytes.
type Display struct {
	gfx   [FramebufferSize]uint8
	dirty bool
}

func (d *Display) Clear() {
	for i := range d.gfx {
		d.gfx[i] = 0
	}
	d.dirty = true
}

// DrawSprite XORs sprite rows onto the screen at (x, y), wrapping in both
// directions. It reports whether any lit pixel was turned off.
func (d *Display) DrawSprite(x, y uint8, sprite []byte) bool {
	col := int(x) % ScreenWidth
	shift := uint(col % 8)
	left := col / 8
	right := (left + 1) % ScreenStride

	collision := false
	for r, bits := range sprite {
		row := ((int(y) + r) % ScreenHeight) * ScreenStride

		// A row that is not byte-aligned straddles two framebuffer bytes.
		hi := bits >> shift
		lo := bits << (8 - shift)

		if d.gfx[row+left]&hi != 0 {
			collision = true
		}
		d.gfx[row+left] ^= hi

		if lo != 0 {
			if d.gfx[row+right]&lo != 0 {
				collision = true
			}
			d.gfx[row+right] ^= lo
		}
	}

	d.dirty = true
	return collision
}

// Framebuffer returns a copy of the packed bit plane.
func (d *Display) Framebuffer() []byte {
	fb := make([]byte, FramebufferSize)
	copy(fb, d.gfx[:])
	return fb
}

// Pixel reports whether the pixel at (x, y) is lit. Coordinates wrap.
func (d *Display) Pixel(x, y int) bool {
	return PixelAt(d.gfx[:], x, y)
}

// PixelAt reads a pixel from a packed framebuffer as returned by
// Framebuffer. Renderers use it to unpack frames.
func PixelAt(fb []byte, x, y int) bool {
	x %= ScreenWidth
	y %= ScreenHeight
	return fb[y*ScreenStride+x/8]&(0x80>>uint(x%8)) != 0
}
