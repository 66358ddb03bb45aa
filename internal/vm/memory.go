package vm

import (
	"fmt"
	"log/slog"
)

const (
	MemorySize   = 4096
	ProgramStart = uint16(0x200)

	MaxProgramSize = MemorySize - int(ProgramStart)

	FontStart     = uint16(0x000)
	FontGlyphSize = 5
)

// Font glyphs for hex digits 0-F, 4x5 pixels each.
var chip8Font = []uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the flat 4K address space of the machine.
// Everything below ProgramStart is reserved for the interpreter and the
// font; it is written once by newMemory and is read-only afterwards.
type Memory struct {
	bytes [MemorySize]uint8
}

func newMemory() *Memory {
	m := &Memory{}

	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontStart), "n", len(chip8Font))
	copy(m.bytes[FontStart:], chip8Font)

	return m
}

// Load copies program verbatim into memory starting at ProgramStart.
func (m *Memory) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d fit", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))
	copy(m.bytes[ProgramStart:], program)
	return nil
}

func (m *Memory) ReadByte(addr uint16) (uint8, error) {
	if int(addr) >= MemorySize {
		return 0, &AddressError{Op: "read", Addr: addr}
	}
	return m.bytes[addr], nil
}

func (m *Memory) WriteByte(addr uint16, value uint8) error {
	if int(addr) >= MemorySize || addr < ProgramStart {
		return &AddressError{Op: "write", Addr: addr}
	}
	m.bytes[addr] = value
	return nil
}

// Read16 returns the big-endian word at addr and addr+1.
func (m *Memory) Read16(addr uint16) (uint16, error) {
	if int(addr)+1 >= MemorySize {
		return 0, &AddressError{Op: "read", Addr: addr}
	}

	hi := m.bytes[addr]
	lo := m.bytes[addr+1]
	return uint16(hi)<<8 | uint16(lo), nil
}

// Write16 stores value big-endian at addr and addr+1.
func (m *Memory) Write16(addr uint16, value uint16) error {
	if int(addr)+1 >= MemorySize || addr < ProgramStart {
		return &AddressError{Op: "write", Addr: addr}
	}

	m.bytes[addr] = uint8(value >> 8)
	m.bytes[addr+1] = uint8(value)
	return nil
}
