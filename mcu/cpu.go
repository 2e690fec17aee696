/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package mcu implements a small register machine whose arithmetic is
// routed through the compute engine. It demonstrates that the engine's
// operation set suffices to run arbitrary small programs uniformly over
// opaque words; it is not needed for the container contract.
package mcu

import (
	"errors"
	"fmt"

	"github.com/padsync/strata/compute"
)

var (
	// ErrInvalidInstruction halts the running program. It never
	// corrupts the host or any container state.
	ErrInvalidInstruction = errors.New("mcu: invalid instruction")

	// ErrStepLimit is returned by Run when the step budget runs out
	// before HALT.
	ErrStepLimit = errors.New("mcu: step limit exceeded")
)

// Flags is the CPU status register.
type Flags struct {
	Zero     bool
	Negative bool
}

// CPU is a fetch-decode-execute machine over fixed-width words. Not
// safe for concurrent use.
type CPU struct {
	engine    *compute.Engine
	registers *registerFile
	data      *dataMemory
	program   *programMemory
	pc        int
	halted    bool
	status    Flags
	wordSize  int
}

// DefaultRegisters and DefaultMemoryWords bound the nibble-addressable
// space of the two-byte instruction format.
const (
	DefaultRegisters   = 16
	DefaultMemoryWords = 16
)

// NewCPU builds a CPU around the given engine; the engine word size
// becomes the machine word size.
func NewCPU(engine *compute.Engine) *CPU {
	wordSize := engine.WordSize()
	return &CPU{
		engine:    engine,
		registers: newRegisterFile(DefaultRegisters, wordSize),
		data:      newDataMemory(DefaultMemoryWords, wordSize),
		program:   &programMemory{},
		wordSize:  wordSize,
	}
}

// WordSize returns the machine word size in bytes.
func (c *CPU) WordSize() int {
	return c.wordSize
}

// Flags returns the current status register.
func (c *CPU) Flags() Flags {
	return c.status
}

// PC returns the current program counter (instruction index).
func (c *CPU) PC() int {
	return c.pc
}

// Halted reports whether the program has executed HALT.
func (c *CPU) Halted() bool {
	return c.halted
}

// LoadProgram replaces program memory and resets the program counter.
func (c *CPU) LoadProgram(program []byte) error {
	if err := c.program.load(program); err != nil {
		return err
	}
	c.pc = 0
	c.halted = false
	c.status = Flags{}
	return nil
}

// LoadData writes a word into data memory.
func (c *CPU) LoadData(addr uint8, word []byte) error {
	return c.data.write(addr, word)
}

// ReadData returns a copy of the word at addr.
func (c *CPU) ReadData(addr uint8) ([]byte, error) {
	return c.data.read(addr)
}

// ReadRegister returns a copy of register r.
func (c *CPU) ReadRegister(r uint8) ([]byte, error) {
	return c.registers.read(r)
}

// Step executes one instruction. Fetching past the end of program
// memory is an error: well-formed programs end with HALT.
func (c *CPU) Step() error {
	if c.halted {
		return nil
	}
	opcode, operand, ok := c.program.fetch(c.pc)
	if !ok {
		return fmt.Errorf("%w: no instruction at pc %d", ErrInvalidInstruction, c.pc)
	}
	next := c.pc + 1

	switch opcode {
	case OpNop:

	case OpMov:
		value, err := c.registers.read(operandHi(operand))
		if err != nil {
			return err
		}
		if err := c.registers.write(operandLo(operand), value); err != nil {
			return err
		}

	case OpAdd, OpAnd, OpOr, OpXor:
		if err := c.alu(opcode, operandLo(operand), operandHi(operand)); err != nil {
			return err
		}

	case OpLoad:
		word, err := c.data.read(operandHi(operand))
		if err != nil {
			return err
		}
		if err := c.registers.write(operandLo(operand), word); err != nil {
			return err
		}

	case OpStore:
		word, err := c.registers.read(operandHi(operand))
		if err != nil {
			return err
		}
		if err := c.data.write(operandLo(operand), word); err != nil {
			return err
		}

	case OpJmp:
		target := int(operand)
		if target >= c.program.length() {
			return fmt.Errorf("%w: jump target %d out of range", ErrInvalidInstruction, target)
		}
		next = target

	case OpBreq:
		if c.status.Zero {
			target := c.pc + int(int8(operand))
			if target < 0 || target >= c.program.length() {
				return fmt.Errorf("%w: branch target %d out of range", ErrInvalidInstruction, target)
			}
			next = target
		}

	case OpHalt:
		c.halted = true
		return nil

	default:
		return fmt.Errorf("%w: opcode %#02x", ErrInvalidInstruction, opcode)
	}

	c.pc = next
	return nil
}

// alu computes rd <- rd op rs through the engine and updates the flags.
func (c *CPU) alu(opcode byte, rd, rs uint8) error {
	var op compute.Op
	switch opcode {
	case OpAdd:
		op = compute.ADD
	case OpAnd:
		op = compute.AND
	case OpOr:
		op = compute.OR
	case OpXor:
		op = compute.XOR
	}

	dst, err := c.registers.read(rd)
	if err != nil {
		return err
	}
	src, err := c.registers.read(rs)
	if err != nil {
		return err
	}
	if err := c.engine.Load(0, dst); err != nil {
		return err
	}
	if err := c.engine.Load(1, src); err != nil {
		return err
	}
	if err := c.engine.Apply(op, 0, 0, 1); err != nil {
		return err
	}
	result, err := c.engine.Read(0)
	if err != nil {
		return err
	}

	c.status.Zero = c.engine.Flags().Zero
	c.status.Negative = result[c.wordSize-1]&0x80 != 0

	return c.registers.write(rd, result)
}

// Run executes until HALT or until maxSteps instructions have run.
// A failing instruction halts the program and leaves memory as it was
// before that instruction.
func (c *CPU) Run(maxSteps int) error {
	for steps := 0; !c.halted; steps++ {
		if steps >= maxSteps {
			return ErrStepLimit
		}
		if err := c.Step(); err != nil {
			c.halted = true
			return err
		}
	}
	return nil
}
