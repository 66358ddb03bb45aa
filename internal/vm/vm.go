package vm

import (
	"math/rand/v2"
	"time"
)

const (
	RegisterCount   = 16
	InstructionSize = 2

	// FlagRegister is VF, written by carry/borrow/collision instructions.
	FlagRegister = 0x0F
)

type VM struct {
	memory    *Memory              // Memory (4k)
	registers [RegisterCount]uint8 // V registers (V0-VF)
	stack     Stack                // Return addresses

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8 // Delay timer
	soundTimer uint8 // Sound timer

	display Display

	rand   *rand.Rand
	cycles uint64

	budget time.Duration
	now    func() time.Time
	sleep  func(time.Duration)
}

type Option func(vm *VM)

// WithRand sets the random source used by the RND instruction.
func WithRand(r *rand.Rand) Option {
	return func(vm *VM) {
		vm.rand = r
	}
}

// WithBudget sets the duration of one scheduler cycle.
func WithBudget(d time.Duration) Option {
	return func(vm *VM) {
		vm.budget = d
	}
}

// WithClock replaces the wall clock and the idle wait used by Run.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(vm *VM) {
		vm.now = now
		vm.sleep = sleep
	}
}

// New creates a machine with the font and program loaded and PC at
// ProgramStart.
func New(program []byte, opts ...Option) (*VM, error) {
	vm := &VM{
		memory: newMemory(),
		pc:     ProgramStart,
		rand:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		budget: DefaultBudget,
		now:    time.Now,
		sleep:  time.Sleep,
	}

	for _, opt := range opts {
		opt(vm)
	}

	if err := vm.memory.Load(program); err != nil {
		return nil, err
	}

	return vm, nil
}

// Framebuffer returns a copy of the packed 64x32 display plane.
func (vm *VM) Framebuffer() []byte {
	return vm.display.Framebuffer()
}

// Cycles returns the number of cycles started so far.
func (vm *VM) Cycles() uint64 {
	return vm.cycles
}

// Step fetches and executes exactly one instruction. PC is advanced past
// the instruction before it executes, so control transfers simply assign
// PC and CALL pushes the address of the following instruction.
func (vm *VM) Step() error {
	vm.cycles++

	pc := vm.pc
	opcode, err := vm.fetchOpcode()
	if err != nil {
		return &Fault{Cycle: vm.cycles, PC: pc, Err: err}
	}

	vm.pc += InstructionSize

	if err := vm.executeOpcode(pc, opcode); err != nil {
		return &Fault{Cycle: vm.cycles, PC: pc, Opcode: opcode, Err: err}
	}

	return nil
}

func (vm *VM) fetchOpcode() (uint16, error) {
	return vm.memory.Read16(vm.pc)
}

func (vm *VM) tickTimers() {
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}

	// There is no audio output; the sound timer only counts down.
	if vm.soundTimer > 0 {
		vm.soundTimer--
	}
}
