package vm

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestMemory_Font(t *testing.T) {
	m := newMemory()

	// Glyph "0" starts at FontStart, glyph "F" at FontStart+15*5.
	b, err := m.ReadByte(FontStart)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0xF0), b)

	b, err = m.ReadByte(FontStart + 15*FontGlyphSize + 4)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0x80), b)
}

func TestMemory_Word(t *testing.T) {
	m := newMemory()

	assert.NoError(t, m.Write16(0x300, 0xABCD))

	hi, err := m.ReadByte(0x300)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0xAB), hi)

	lo, err := m.ReadByte(0x301)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0xCD), lo)

	w, err := m.Read16(0x300)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0xABCD), w)
}

func TestMemory_AddressRange(t *testing.T) {
	m := newMemory()

	tests := []struct {
		name string
		op   func() error
		ok   bool
	}{
		{"read last byte", func() error { _, err := m.ReadByte(0x0FFF); return err }, true},
		{"read past end", func() error { _, err := m.ReadByte(0x1000); return err }, false},
		{"read word at end", func() error { _, err := m.Read16(0x0FFE); return err }, true},
		{"read word straddling end", func() error { _, err := m.Read16(0x0FFF); return err }, false},
		{"write last byte", func() error { return m.WriteByte(0x0FFF, 1) }, true},
		{"write past end", func() error { return m.WriteByte(0x1000, 1) }, false},
		{"write word straddling end", func() error { return m.Write16(0x0FFF, 1) }, false},
		{"write reserved", func() error { return m.WriteByte(0x01FF, 1) }, false},
		{"write word reserved", func() error { return m.Write16(0x0000, 1) }, false},
		{"write program start", func() error { return m.WriteByte(ProgramStart, 1) }, true},
		{"read reserved", func() error { _, err := m.ReadByte(0x0000); return err }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			if tt.ok {
				assert.NoError(t, err)
				return
			}

			assert.True(t, errors.Is(err, ErrAddressOutOfRange))
			var addrErr *AddressError
			assert.True(t, errors.As(err, &addrErr))
		})
	}
}

func TestMemory_Load(t *testing.T) {
	t.Run("fits exactly", func(t *testing.T) {
		m := newMemory()
		program := make([]byte, MaxProgramSize)
		program[len(program)-1] = 0xAA

		assert.NoError(t, m.Load(program))

		b, err := m.ReadByte(0x0FFF)
		assert.NoError(t, err)
		assert.Equal(t, uint8(0xAA), b)
	})

	t.Run("too large", func(t *testing.T) {
		m := newMemory()
		err := m.Load(make([]byte, MaxProgramSize+1))
		assert.True(t, errors.Is(err, ErrProgramTooLarge))
	})

	t.Run("does not touch font", func(t *testing.T) {
		m := newMemory()
		assert.NoError(t, m.Load([]byte{1, 2, 3}))

		b, err := m.ReadByte(FontStart)
		assert.NoError(t, err)
		assert.Equal(t, uint8(0xF0), b)

		b, err = m.ReadByte(ProgramStart + 2)
		assert.NoError(t, err)
		assert.Equal(t, uint8(3), b)
	})
}
