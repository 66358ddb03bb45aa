package vm

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrStackOverflow      = errors.New("stack overflow")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrAddressOutOfRange  = errors.New("address out of range")
	ErrProgramTooLarge    = errors.New("program too large")
)

// AddressError reports a memory access outside of the addressable
// (or, for writes, the writable) range.
type AddressError struct {
	Op   string
	Addr uint16
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s 0x%04x: %s", e.Op, e.Addr, ErrAddressOutOfRange)
}

func (e *AddressError) Unwrap() error {
	return ErrAddressOutOfRange
}

// Fault is a fatal error raised while executing an instruction.
// It carries the machine position at which the run halted.
type Fault struct {
	Cycle  uint64
	PC     uint16
	Opcode uint16
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("cycle %d, pc 0x%04x, opcode 0x%04X: %v", f.Cycle, f.PC, f.Opcode, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
