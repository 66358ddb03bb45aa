package vm

import (
	"context"
	"fmt"
	"log/slog"
)

func (vm *VM) executeOpcode(pc, opcode uint16) error {
	instr := decode(opcode)

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"cycle", vm.cycles,
			"pc", fmt.Sprintf("0x%04x", pc),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.Name(opcode),
			"v", fmt.Sprintf("% 02x", vm.registers[:]),
			"i", fmt.Sprintf("0x%04x", vm.index),
			"sp", vm.stack.Depth(),
		)
	}

	return instr.Execute(vm, opcode)
}

type instruction struct {
	Name    func(opcode uint16) string
	Execute func(vm *VM, opcode uint16) error
}

// Disassemble returns the mnemonic for opcode, or "unknown 0xNNNN" when the
// word is not a recognised instruction.
func Disassemble(opcode uint16) string {
	return decode(opcode).Name(opcode)
}

// decodeTable is keyed by the top nibble. A nil entry, or a family decoder
// that finds no match, yields unknownInstruction.
var decodeTable = [16]func(opcode uint16) instruction{
	0x0: decodeSystem,
	0x1: always(jmpInstruction),
	0x2: always(jsrInstruction),
	0x3: always(skeq1Instruction),
	0x4: always(skne1Instruction),
	0x5: decodeRegisterPair(skeq2Instruction),
	0x6: always(mov1Instruction),
	0x7: always(add1Instruction),
	0x8: decodeArithmetic,
	0x9: decodeRegisterPair(skne2Instruction),
	0xA: always(mviInstruction),
	0xB: always(jmiInstruction),
	0xC: always(randInstruction),
	0xD: always(spriteInstruction),
	0xF: decodeMisc,
}

func decode(opcode uint16) instruction {
	d := decodeTable[opcode>>12]
	if d == nil {
		return unknownInstruction
	}
	return d(opcode)
}

func always(instr instruction) func(uint16) instruction {
	return func(uint16) instruction {
		return instr
	}
}

// decodeRegisterPair matches 5XY0/9XY0, which require a zero low nibble.
func decodeRegisterPair(instr instruction) func(uint16) instruction {
	return func(opcode uint16) instruction {
		if opcode&0x000F != 0 {
			return unknownInstruction
		}
		return instr
	}
}

func decodeSystem(opcode uint16) instruction {
	switch opcode {
	case 0x00E0:
		// 00E0 - Clear screen
		return clsInstruction

	case 0x00EE:
		// 00EE - Return from subroutine
		return rtsInstruction
	}

	return unknownInstruction
}

func decodeArithmetic(opcode uint16) instruction {
	switch opcode & 0x000F {
	case 0x0000:
		// 8XY0 - Sets VX to the value of VY
		return mov2Instruction

	case 0x0001:
		// 8XY1 - Sets VX to (VX OR VY)
		return orInstruction

	case 0x0002:
		// 8XY2 - Sets VX to (VX AND VY)
		return andInstruction

	case 0x0003:
		// 8XY3 - Sets VX to (VX XOR VY)
		return xorInstruction

	case 0x0004:
		// 8XY4 - Adds VY to VX. VF is set to 1 when there's a carry, and to 0 when there isn't.
		return add2Instruction

	case 0x0005:
		// 8XY5 - VY is subtracted from VX. VF is set to 0 when there's a borrow, and 1 when there isn't.
		return subInstruction

	case 0x0006:
		// 8XY6 - Shifts VX right by one. VF is set to the least significant bit of VX before the shift.
		return shrInstruction

	case 0x0007:
		// 8XY7 - Sets VX to VY minus VX. VF is set to 0 when there's a borrow, and 1 when there isn't.
		return rsbInstruction

	case 0x000E:
		// 8XYE - Shifts VX left by one. VF is set to the most significant bit of VX before the shift.
		return shlInstruction
	}

	return unknownInstruction
}

func decodeMisc(opcode uint16) instruction {
	switch opcode & 0x00FF {
	case 0x0007:
		// FX07 - Sets VX to the value of the delay timer
		return gdelayInstruction

	case 0x0015:
		// FX15 - Sets the delay timer to VX
		return sdelayInstruction

	case 0x0018:
		// FX18 - Sets the sound timer to VX
		return ssoundInstruction

	case 0x001E:
		// FX1E - Adds VX to I, no flag
		return adiInstruction

	case 0x0029:
		// FX29 - Sets I to the font glyph for the digit in VX
		return fontInstruction

	case 0x0033:
		// FX33 - Stores the BCD representation of VX at I, I+1, I+2
		return bcdInstruction

	case 0x0055:
		// FX55 - Stores VX in memory at I
		return strInstruction

	case 0x0065:
		// FX65 - Loads VX from memory at I
		return ldrInstruction
	}

	return unknownInstruction
}

func regX(opcode uint16) uint16 {
	return (opcode & 0x0F00) >> 8
}

func regY(opcode uint16) uint16 {
	return (opcode & 0x00F0) >> 4
}

func constByte(opcode uint16) uint8 {
	return uint8(opcode & 0x00FF)
}

func constAddr(opcode uint16) uint16 {
	return opcode & 0x0FFF
}

func nameX(mnemonic string) func(uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s v%x", mnemonic, regX(opcode))
	}
}

func nameXY(mnemonic string) func(uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s v%x, v%x", mnemonic, regX(opcode), regY(opcode))
	}
}

func nameXKK(mnemonic string) func(uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s v%x, %d", mnemonic, regX(opcode), constByte(opcode))
	}
}

func nameAddr(mnemonic string) func(uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s 0x%04x", mnemonic, constAddr(opcode))
	}
}

// skipIf advances PC over the next instruction when cond holds.
func (vm *VM) skipIf(cond bool) {
	if cond {
		vm.pc += InstructionSize
	}
}

var (
	// 00E0	cls	Clear the screen
	clsInstruction = instruction{
		Name: func(uint16) string {
			return "cls"
		},
		Execute: func(vm *VM, _ uint16) error {
			vm.display.Clear()
			return nil
		},
	}

	// 00EE	rts	return from subroutine call
	rtsInstruction = instruction{
		Name: func(uint16) string {
			return "rts"
		},
		Execute: func(vm *VM, _ uint16) error {
			pc, err := vm.stack.Pop()
			if err != nil {
				return err
			}
			vm.pc = pc
			return nil
		},
	}

	// 1xxx	jmp xxx	jump to address xxx
	jmpInstruction = instruction{
		Name: nameAddr("jmp"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.pc = constAddr(opcode)
			return nil
		},
	}

	// 2xxx	jsr xxx	jump to subroutine at address xxx
	jsrInstruction = instruction{
		Name: nameAddr("jsr"),
		Execute: func(vm *VM, opcode uint16) error {
			if err := vm.stack.Push(vm.pc); err != nil {
				return err
			}
			vm.pc = constAddr(opcode)
			return nil
		},
	}

	// 3rxx	skeq vr,xx	skip if register r = constant
	skeq1Instruction = instruction{
		Name: nameXKK("skeq"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.skipIf(vm.registers[regX(opcode)] == constByte(opcode))
			return nil
		},
	}

	// 4rxx	skne vr,xx	skip if register r <> constant
	skne1Instruction = instruction{
		Name: nameXKK("skne"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.skipIf(vm.registers[regX(opcode)] != constByte(opcode))
			return nil
		},
	}

	// 5ry0	skeq vr,vy	skip if register r = register y
	skeq2Instruction = instruction{
		Name: nameXY("skeq"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.skipIf(vm.registers[regX(opcode)] == vm.registers[regY(opcode)])
			return nil
		},
	}

	// 6rxx	mov vr,xx	move constant to register r
	mov1Instruction = instruction{
		Name: nameXKK("mov"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[regX(opcode)] = constByte(opcode)
			return nil
		},
	}

	// 7rxx	add vr,xx	add constant to register r	No carry generated
	add1Instruction = instruction{
		Name: nameXKK("add"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[regX(opcode)] += constByte(opcode)
			return nil
		},
	}

	// 8ry0	mov vr,vy	move register vy into vr
	mov2Instruction = instruction{
		Name: nameXY("mov"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[regX(opcode)] = vm.registers[regY(opcode)]
			return nil
		},
	}

	// 8ry1	or rx,ry	or register vy into register vx
	orInstruction = instruction{
		Name: nameXY("or"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[regX(opcode)] |= vm.registers[regY(opcode)]
			return nil
		},
	}

	// 8ry2	and rx,ry	and register vy into register vx
	andInstruction = instruction{
		Name: nameXY("and"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[regX(opcode)] &= vm.registers[regY(opcode)]
			return nil
		},
	}

	// 8ry3	xor rx,ry	exclusive or register ry into register rx
	xorInstruction = instruction{
		Name: nameXY("xor"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[regX(opcode)] ^= vm.registers[regY(opcode)]
			return nil
		},
	}

	// 8ry4	add vr,vy	add register vy to vr,carry in vf
	add2Instruction = instruction{
		Name: nameXY("add"),
		Execute: func(vm *VM, opcode uint16) error {
			vX := regX(opcode)
			x := uint16(vm.registers[vX])
			y := uint16(vm.registers[regY(opcode)])

			sum := x + y
			vm.registers[vX] = uint8(sum)
			vm.registers[FlagRegister] = flag(sum > 0xFF)
			return nil
		},
	}

	// 8ry5	sub vr,vy	subtract register vy from vr,borrow in vf	vf set to 0 if borrows
	subInstruction = instruction{
		Name: nameXY("sub"),
		Execute: func(vm *VM, opcode uint16) error {
			vX := regX(opcode)
			x := vm.registers[vX]
			y := vm.registers[regY(opcode)]

			vm.registers[vX] = x - y
			vm.registers[FlagRegister] = flag(x >= y)
			return nil
		},
	}

	// 8r06	shr vr	shift register vr right, bit 0 goes into register vf
	shrInstruction = instruction{
		Name: nameX("shr"),
		Execute: func(vm *VM, opcode uint16) error {
			vX := regX(opcode)
			x := vm.registers[vX]

			vm.registers[vX] = x >> 1
			vm.registers[FlagRegister] = x & 0x1
			return nil
		},
	}

	// 8ry7	rsb vr,vy	subtract register vr from register vy, result in vr	vf set to 0 if borrows
	rsbInstruction = instruction{
		Name: nameXY("rsb"),
		Execute: func(vm *VM, opcode uint16) error {
			vX := regX(opcode)
			x := vm.registers[vX]
			y := vm.registers[regY(opcode)]

			vm.registers[vX] = y - x
			vm.registers[FlagRegister] = flag(y >= x)
			return nil
		},
	}

	// 8r0e	shl vr	shift register vr left,bit 7 goes into register vf
	shlInstruction = instruction{
		Name: nameX("shl"),
		Execute: func(vm *VM, opcode uint16) error {
			vX := regX(opcode)
			x := vm.registers[vX]

			vm.registers[vX] = x << 1
			vm.registers[FlagRegister] = x >> 7
			return nil
		},
	}

	// 9ry0	skne rx,ry	skip if register rx <> register ry
	skne2Instruction = instruction{
		Name: nameXY("skne"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.skipIf(vm.registers[regX(opcode)] != vm.registers[regY(opcode)])
			return nil
		},
	}

	// axxx	mvi xxx	Load index register with constant xxx
	mviInstruction = instruction{
		Name: nameAddr("mvi"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.index = constAddr(opcode)
			return nil
		},
	}

	// bxxx	jmi xxx	Jump to address xxx+register v0
	jmiInstruction = instruction{
		Name: nameAddr("jmi"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.pc = constAddr(opcode) + uint16(vm.registers[0])
			return nil
		},
	}

	// crxx	rand vr,xx	vr = random byte masked by xx
	randInstruction = instruction{
		Name: nameXKK("rand"),
		Execute: func(vm *VM, opcode uint16) error {
			x := uint8(vm.rand.IntN(256))
			vm.registers[regX(opcode)] = x & constByte(opcode)
			return nil
		},
	}

	// drys	sprite rx,ry,s	Draw sprite at screen location rx,ry height s
	// Sprites stored in memory at location in index register, 8 bits wide.
	// Wraps around the screen. All drawing is xor drawing; vf is set to 1
	// if a lit pixel was cleared, otherwise it is zero.
	spriteInstruction = instruction{
		Name: func(opcode uint16) string {
			return fmt.Sprintf("sprite v%x, v%x, %d", regX(opcode), regY(opcode), opcode&0x000F)
		},
		Execute: func(vm *VM, opcode uint16) error {
			height := opcode & 0x000F

			sprite := make([]byte, height)
			for row := uint16(0); row < height; row++ {
				b, err := vm.memory.ReadByte(vm.index + row)
				if err != nil {
					return err
				}
				sprite[row] = b
			}

			collision := vm.display.DrawSprite(vm.registers[regX(opcode)], vm.registers[regY(opcode)], sprite)
			vm.registers[FlagRegister] = flag(collision)
			return nil
		},
	}

	// fr07	gdelay vr	get delay timer into vr
	gdelayInstruction = instruction{
		Name: nameX("gdelay"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.registers[regX(opcode)] = vm.delayTimer
			return nil
		},
	}

	// fr15	sdelay vr	set the delay timer to vr
	sdelayInstruction = instruction{
		Name: nameX("sdelay"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.delayTimer = vm.registers[regX(opcode)]
			return nil
		},
	}

	// fr18	ssound vr	set the sound timer to vr
	ssoundInstruction = instruction{
		Name: nameX("ssound"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.soundTimer = vm.registers[regX(opcode)]
			return nil
		},
	}

	// fr1e	adi vr	add register vr to the index register	I must stay below 0x1000
	adiInstruction = instruction{
		Name: nameX("adi"),
		Execute: func(vm *VM, opcode uint16) error {
			index := vm.index + uint16(vm.registers[regX(opcode)])
			if int(index) >= MemorySize {
				return &AddressError{Op: "index", Addr: index}
			}

			vm.index = index
			return nil
		},
	}

	// fr29	font vr	point I to the sprite for hexadecimal character in vr	Sprite is 5 bytes high
	fontInstruction = instruction{
		Name: nameX("font"),
		Execute: func(vm *VM, opcode uint16) error {
			vm.index = FontStart + uint16(vm.registers[regX(opcode)])*FontGlyphSize
			return nil
		},
	}

	// fr33	bcd vr	store the bcd representation of register vr at location I,I+1,I+2	Doesn't change I
	bcdInstruction = instruction{
		Name: nameX("bcd"),
		Execute: func(vm *VM, opcode uint16) error {
			x := vm.registers[regX(opcode)]

			digits := [3]uint8{x / 100, (x / 10) % 10, x % 10}
			for i, d := range digits {
				if err := vm.memory.WriteByte(vm.index+uint16(i), d); err != nil {
					return err
				}
			}
			return nil
		},
	}

	// fr55	str vr	store register vr at location I	Doesn't change I
	strInstruction = instruction{
		Name: nameX("str"),
		Execute: func(vm *VM, opcode uint16) error {
			return vm.memory.WriteByte(vm.index, vm.registers[regX(opcode)])
		},
	}

	// fr65	ldr vr	load register vr from location I	Doesn't change I
	ldrInstruction = instruction{
		Name: nameX("ldr"),
		Execute: func(vm *VM, opcode uint16) error {
			b, err := vm.memory.ReadByte(vm.index)
			if err != nil {
				return err
			}
			vm.registers[regX(opcode)] = b
			return nil
		},
	}

	unknownInstruction = instruction{
		Name: func(opcode uint16) string {
			return fmt.Sprintf("unknown 0x%04X", opcode)
		},
		Execute: func(vm *VM, opcode uint16) error {
			return fmt.Errorf("%w 0x%04X", ErrUnknownInstruction, opcode)
		},
	}
)

func flag(set bool) uint8 {
	if set {
		return 1
	}
	return 0
}
