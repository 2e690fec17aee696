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

package mcu

import "fmt"

// registerFile holds fixed-width register words.
type registerFile struct {
	regs     [][]byte
	wordSize int
}

func newRegisterFile(count, wordSize int) *registerFile {
	regs := make([][]byte, count)
	for i := range regs {
		regs[i] = make([]byte, wordSize)
	}
	return &registerFile{regs: regs, wordSize: wordSize}
}

func (f *registerFile) read(r uint8) ([]byte, error) {
	if int(r) >= len(f.regs) {
		return nil, fmt.Errorf("%w: register r%d", ErrInvalidInstruction, r)
	}
	out := make([]byte, f.wordSize)
	copy(out, f.regs[r])
	return out, nil
}

func (f *registerFile) write(r uint8, value []byte) error {
	if int(r) >= len(f.regs) {
		return fmt.Errorf("%w: register r%d", ErrInvalidInstruction, r)
	}
	copy(f.regs[r], value)
	return nil
}

// dataMemory is a flat array of fixed-width words.
type dataMemory struct {
	cells    [][]byte
	wordSize int
}

func newDataMemory(words, wordSize int) *dataMemory {
	cells := make([][]byte, words)
	for i := range cells {
		cells[i] = make([]byte, wordSize)
	}
	return &dataMemory{cells: cells, wordSize: wordSize}
}

func (m *dataMemory) read(addr uint8) ([]byte, error) {
	if int(addr) >= len(m.cells) {
		return nil, fmt.Errorf("%w: memory address %d", ErrInvalidInstruction, addr)
	}
	out := make([]byte, m.wordSize)
	copy(out, m.cells[addr])
	return out, nil
}

func (m *dataMemory) write(addr uint8, value []byte) error {
	if int(addr) >= len(m.cells) {
		return fmt.Errorf("%w: memory address %d", ErrInvalidInstruction, addr)
	}
	if len(value) != m.wordSize {
		return fmt.Errorf("%w: word has %d bytes, want %d", ErrInvalidInstruction, len(value), m.wordSize)
	}
	copy(m.cells[addr], value)
	return nil
}

// programMemory holds the two-byte instruction stream.
type programMemory struct {
	code []byte
}

func (p *programMemory) load(program []byte) error {
	if len(program)%2 != 0 {
		return fmt.Errorf("%w: odd program length %d", ErrInvalidInstruction, len(program))
	}
	p.code = append([]byte(nil), program...)
	return nil
}

// fetch returns the instruction at the given index.
func (p *programMemory) fetch(index int) (opcode, operand byte, ok bool) {
	if index < 0 || 2*index+1 >= len(p.code) {
		return 0, 0, false
	}
	return p.code[2*index], p.code[2*index+1], true
}

func (p *programMemory) length() int {
	return len(p.code) / 2
}
