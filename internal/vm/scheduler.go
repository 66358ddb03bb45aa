package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultBudget is the length of one scheduler cycle: one instruction and
// one timer tick per 60Hz frame.
const DefaultBudget = time.Second / 60

// Host requests a HAL may return from PollEvents.
var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")
)

// HAL is the host side of the machine: it presents frames and reports host
// events such as window close. Errors returned by a HAL stop Run and are
// passed through unchanged.
type HAL interface {
	Draw(gfx []byte) error
	PollEvents() error
}

// NopHAL discards frames and never reports events.
type NopHAL struct{}

func (NopHAL) Draw([]byte) error { return nil }

func (NopHAL) PollEvents() error { return nil }

// Run drives the machine until ctx is cancelled, the HAL reports an error or
// an instruction faults. Cancellation is observed between cycles only.
func (vm *VM) Run(ctx context.Context, hal HAL) error {
	// Show the initial blank screen.
	vm.display.dirty = true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := vm.runCycle(hal); err != nil {
			return err
		}
	}
}

func (vm *VM) runCycle(hal HAL) error {
	start := vm.now()

	vm.tickTimers()

	if err := vm.Step(); err != nil {
		return err
	}

	if vm.display.dirty {
		if err := hal.Draw(vm.display.Framebuffer()); err != nil {
			return err
		}
		vm.display.dirty = false
	}

	if err := hal.PollEvents(); err != nil {
		return err
	}

	elapsed := vm.now().Sub(start)
	if elapsed > vm.budget {
		slog.Warn("deadline missed",
			"cycle", vm.cycles,
			"pc", fmt.Sprintf("0x%04x", vm.pc),
			"elapsed", elapsed,
			"budget", vm.budget,
		)
		return nil
	}

	vm.sleep(vm.budget - elapsed)
	return nil
}
