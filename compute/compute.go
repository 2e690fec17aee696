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

// Package compute implements the slot-based engine used to mix entropy
// into container states. It operates uniformly on opaque fixed-width
// words: the engine never interprets slot contents, which is what lets
// every container layer be treated the same way.
package compute

import (
	"errors"
	"fmt"
)

// Op identifies one of the engine operations. All of them are total
// functions over fixed-width words.
type Op uint8

const (
	ADD Op = iota
	AND
	OR
	XOR
)

func (o Op) String() string {
	switch o {
	case ADD:
		return "ADD"
	case AND:
		return "AND"
	case OR:
		return "OR"
	case XOR:
		return "XOR"
	default:
		return fmt.Sprintf("OP(%d)", uint8(o))
	}
}

// OpFromString returns the Op named by s, or an error for an unknown name.
func OpFromString(s string) (Op, error) {
	switch s {
	case "ADD":
		return ADD, nil
	case "AND":
		return AND, nil
	case "OR":
		return OR, nil
	case "XOR":
		return XOR, nil
	default:
		return 0, fmt.Errorf("compute: unknown operation %q", s)
	}
}

var (
	// ErrSlotOutOfRange is returned when a slot index does not address
	// any engine slot. It signals a programmer error.
	ErrSlotOutOfRange = errors.New("compute: slot index out of range")

	// ErrLengthMismatch is returned when a loaded value does not match
	// the engine word size.
	ErrLengthMismatch = errors.New("compute: word length mismatch")
)

// Flags is the status record updated after every Apply. The zero flag is
// consumed by the mcu package's branch-if-equal.
type Flags struct {
	Zero  bool
	Carry bool
}

// Engine holds a fixed number of word slots. It is not safe for
// concurrent use; each container owns its engine.
type Engine struct {
	wordSize int
	slots    [][]byte
	flags    Flags
}

// DefaultSlots and DefaultWordSize match the container defaults: four
// working slots of one 32-byte state block each.
const (
	DefaultSlots    = 4
	DefaultWordSize = 32
)

// NewEngine creates an engine with the given number of slots, each
// wordSize bytes wide. Both values are fixed for the engine lifetime.
func NewEngine(numSlots, wordSize int) *Engine {
	slots := make([][]byte, numSlots)
	for i := range slots {
		slots[i] = make([]byte, wordSize)
	}
	return &Engine{
		wordSize: wordSize,
		slots:    slots,
	}
}

// NewDefaultEngine creates an engine with DefaultSlots slots of
// DefaultWordSize bytes.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultSlots, DefaultWordSize)
}

// WordSize returns the fixed slot width in bytes.
func (e *Engine) WordSize() int {
	return e.wordSize
}

// NumSlots returns the fixed number of slots.
func (e *Engine) NumSlots() int {
	return len(e.slots)
}

// Flags returns the status flags left by the last Apply.
func (e *Engine) Flags() Flags {
	return e.flags
}

// Load copies value into the addressed slot.
func (e *Engine) Load(slot int, value []byte) error {
	if slot < 0 || slot >= len(e.slots) {
		return ErrSlotOutOfRange
	}
	if len(value) != e.wordSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, len(value), e.wordSize)
	}
	copy(e.slots[slot], value)
	return nil
}

// Read returns a copy of the addressed slot.
func (e *Engine) Read(slot int) ([]byte, error) {
	if slot < 0 || slot >= len(e.slots) {
		return nil, ErrSlotOutOfRange
	}
	out := make([]byte, e.wordSize)
	copy(out, e.slots[slot])
	return out, nil
}

// Apply computes slots[a] op slots[b] and writes the result to
// slots[dst], updating the zero and carry flags. ADD is little-endian
// byte-wise addition with a carry chain; AND, OR and XOR are bitwise.
// Slots other than dst are left untouched.
func (e *Engine) Apply(op Op, dst, a, b int) error {
	if dst < 0 || dst >= len(e.slots) || a < 0 || a >= len(e.slots) || b < 0 || b >= len(e.slots) {
		return ErrSlotOutOfRange
	}

	result := make([]byte, e.wordSize)
	var carry uint16

	switch op {
	case ADD:
		for i := 0; i < e.wordSize; i++ {
			sum := uint16(e.slots[a][i]) + uint16(e.slots[b][i]) + carry
			result[i] = byte(sum)
			carry = sum >> 8
		}
	case AND:
		for i := 0; i < e.wordSize; i++ {
			result[i] = e.slots[a][i] & e.slots[b][i]
		}
	case OR:
		for i := 0; i < e.wordSize; i++ {
			result[i] = e.slots[a][i] | e.slots[b][i]
		}
	case XOR:
		for i := 0; i < e.wordSize; i++ {
			result[i] = e.slots[a][i] ^ e.slots[b][i]
		}
	default:
		return fmt.Errorf("compute: unknown operation %v", op)
	}

	copy(e.slots[dst], result)

	e.flags.Carry = carry > 0
	e.flags.Zero = true
	for _, x := range result {
		if x != 0 {
			e.flags.Zero = false
			break
		}
	}

	return nil
}

// Reset zeroes every slot and clears the flags.
func (e *Engine) Reset() {
	for _, s := range e.slots {
		for i := range s {
			s[i] = 0
		}
	}
	e.flags = Flags{}
}
