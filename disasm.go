package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kapitanov/chip8tick/internal/vm"
	"github.com/spf13/cobra"
)

func newDisasmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm PATH_TO_ROM_FILE",
		Short: "Print the instruction listing of a ROM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			bs, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("unable to load file %q: %w", path, err)
			}

			if len(bs) > vm.MaxProgramSize {
				return fmt.Errorf("%w: %d bytes", vm.ErrProgramTooLarge, len(bs))
			}

			return writeListing(cmd.OutOrStdout(), bs)
		},
	}
}

// writeListing prints one line per instruction word as laid out in memory
// from vm.ProgramStart. A trailing odd byte is printed as data.
func writeListing(w io.Writer, program []byte) error {
	addr := vm.ProgramStart
	for i := 0; i+1 < len(program); i += vm.InstructionSize {
		opcode := uint16(program[i])<<8 | uint16(program[i+1])
		if _, err := fmt.Fprintf(w, "0x%04x  %04X  %s\n", addr, opcode, vm.Disassemble(opcode)); err != nil {
			return err
		}
		addr += vm.InstructionSize
	}

	if len(program)%2 == 1 {
		if _, err := fmt.Fprintf(w, "0x%04x  %02X    db 0x%02x\n", addr, program[len(program)-1], program[len(program)-1]); err != nil {
			return err
		}
	}
	return nil
}
