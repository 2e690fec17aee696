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

// Instructions are two bytes: an opcode and an operand. For register
// instructions the operand packs two 4-bit fields (high nibble first);
// for control flow it is an instruction index (JMP) or a signed
// instruction offset (BREQ).
const (
	OpNop   = 0x00
	OpMov   = 0x01 // rd <- rs
	OpAdd   = 0x03 // rd <- rd + rs
	OpAnd   = 0x04 // rd <- rd & rs
	OpOr    = 0x05 // rd <- rd | rs
	OpXor   = 0x06 // rd <- rd ^ rs
	OpLoad  = 0x80 // rd <- mem[addr]
	OpStore = 0x82 // mem[addr] <- rs
	OpJmp   = 0xe0 // pc <- operand
	OpBreq  = 0xf0 // pc <- pc + int8(operand) if zero flag set
	OpHalt  = 0xff
)

// Operand packs two 4-bit fields, high nibble first.
func Operand(hi, lo uint8) byte {
	return byte(hi<<4 | lo&0x0f)
}

func operandHi(operand byte) uint8 { return uint8(operand >> 4) }
func operandLo(operand byte) uint8 { return uint8(operand & 0x0f) }
