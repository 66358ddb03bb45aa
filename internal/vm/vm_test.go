package vm

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
)

type fakeClock struct {
	t     time.Time
	step  time.Duration
	slept []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
}

// assemble packs big-endian instruction words into a program image.
func assemble(words ...uint16) []byte {
	program := make([]byte, 0, len(words)*InstructionSize)
	for _, w := range words {
		program = append(program, uint8(w>>8), uint8(w))
	}
	return program
}

func newTestVM(t *testing.T, words ...uint16) (*VM, *fakeClock) {
	t.Helper()

	clock := &fakeClock{step: time.Millisecond}
	machine, err := New(assemble(words...),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(clock.now, clock.sleep),
	)
	assert.NoError(t, err)
	return machine, clock
}

// stepN executes n instructions and fails the test on the first fault.
func stepN(t *testing.T, machine *VM, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		assert.NoError(t, machine.Step())
	}
}

func TestNew(t *testing.T) {
	machine, _ := newTestVM(t, 0x6005)

	assert.Equal(t, ProgramStart, machine.pc)
	assert.Equal(t, uint16(0), machine.index)
	assert.Equal(t, uint64(0), machine.Cycles())
	assert.Equal(t, 0, machine.stack.Depth())

	word, err := machine.memory.Read16(ProgramStart)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x6005), word)

	for _, b := range machine.Framebuffer() {
		assert.Equal(t, uint8(0), b)
	}
}

func TestNew_ProgramTooLarge(t *testing.T) {
	_, err := New(make([]byte, MaxProgramSize+1))
	assert.Error(t, err, "program too large: 3585 bytes, at most 3584 fit")
	assert.True(t, errors.Is(err, ErrProgramTooLarge))
}

func TestStep_AdvancesPC(t *testing.T) {
	machine, _ := newTestVM(t, 0x6001, 0x6102, 0x6203)

	stepN(t, machine, 3)

	assert.Equal(t, ProgramStart+3*InstructionSize, machine.pc)
	assert.Equal(t, uint64(3), machine.Cycles())
}

func TestStep_FetchOutOfRange(t *testing.T) {
	// Jump to the last byte; the word there straddles the end of memory.
	machine, _ := newTestVM(t, 0x1FFF)

	stepN(t, machine, 1)
	err := machine.Step()

	var fault *Fault
	assert.True(t, errors.As(err, &fault))
	assert.Equal(t, uint16(0x0FFF), fault.PC)
	assert.True(t, errors.Is(err, ErrAddressOutOfRange))
}

func TestTickTimers(t *testing.T) {
	machine, _ := newTestVM(t)
	machine.delayTimer = 2
	machine.soundTimer = 1

	machine.tickTimers()
	assert.Equal(t, uint8(1), machine.delayTimer)
	assert.Equal(t, uint8(0), machine.soundTimer)

	machine.tickTimers()
	machine.tickTimers()
	assert.Equal(t, uint8(0), machine.delayTimer)
	assert.Equal(t, uint8(0), machine.soundTimer)
}
