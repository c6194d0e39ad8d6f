// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package instruction

import (
	"errors"
	"fmt"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
)

var (
	// ErrNonZeroHighBit signals an instruction word whose top bit is set.
	ErrNonZeroHighBit = errors.New("instruction high bit is not zero")
	// ErrInvalidOp1Src signals an unrecognised op1 source encoding.
	ErrInvalidOp1Src = errors.New("invalid op1 source")
	// ErrInvalidResLogic signals an unrecognised result logic encoding.
	ErrInvalidResLogic = errors.New("invalid result logic")
	// ErrInvalidPcUpdate signals an unrecognised pc update encoding.
	ErrInvalidPcUpdate = errors.New("invalid pc update")
	// ErrInvalidApUpdate signals an unrecognised ap update encoding.
	ErrInvalidApUpdate = errors.New("invalid ap update")
	// ErrInvalidOpcode signals an unrecognised opcode encoding.
	ErrInvalidOpcode = errors.New("invalid opcode")
	// ErrInvalidJnz signals a conditional jump combined with incompatible flags.
	ErrInvalidJnz = errors.New("invalid conditional jump")
	// ErrInvalidCallApUpdate signals a call which also updates ap explicitly.
	ErrInvalidCallApUpdate = errors.New("call must not update ap")
	// ErrInvalidImmediateOffset signals an immediate operand whose offset is not
	// one.
	ErrInvalidImmediateOffset = errors.New("immediate requires op1 offset 1")
	// ErrImmediateTooLarge signals an instruction word which does not fit in 64
	// bits.
	ErrImmediateTooLarge = errors.New("instruction word exceeds 64 bits")
)

// Error reports a failure to decode a given instruction word.
type Error struct {
	Kind error
	Word uint64
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (word 0x%x)", e.Kind.Error(), e.Word)
}

// Unwrap provides access to the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}

const (
	offsetBias = 1 << 15
	// Flag positions
	dstRegBit   = 48
	op0RegBit   = 49
	op1SrcShift = 50
	resShift    = 53
	pcShift     = 55
	apShift     = 58
	opcodeShift = 60
	highBit     = 63
)

// DecodeFelt decodes an instruction held in a field element.
func DecodeFelt(word stark252.Element) (Instruction, error) {
	if !word.IsUint64() {
		return Instruction{}, &Error{ErrImmediateTooLarge, 0}
	}
	//
	return Decode(word.Uint64())
}

// Decode a 64-bit instruction word.
func Decode(word uint64) (Instruction, error) {
	var insn Instruction
	//
	if word>>highBit != 0 {
		return insn, &Error{ErrNonZeroHighBit, word}
	}
	//
	insn.OffDst = decodeOffset(word)
	insn.OffOp0 = decodeOffset(word >> 16)
	insn.OffOp1 = decodeOffset(word >> 32)
	insn.DstReg = Register((word >> dstRegBit) & 1)
	insn.Op0Reg = Register((word >> op0RegBit) & 1)
	//
	switch (word >> op1SrcShift) & 7 {
	case 0:
		insn.Op1Src = Op1SrcOp0
	case 1:
		insn.Op1Src = Op1SrcImm
	case 2:
		insn.Op1Src = Op1SrcFP
	case 4:
		insn.Op1Src = Op1SrcAP
	default:
		return insn, &Error{ErrInvalidOp1Src, word}
	}
	//
	switch (word >> pcShift) & 7 {
	case 0:
		insn.PcUpdate = PcRegular
	case 1:
		insn.PcUpdate = PcJumpAbs
	case 2:
		insn.PcUpdate = PcJumpRel
	case 4:
		insn.PcUpdate = PcJnz
	default:
		return insn, &Error{ErrInvalidPcUpdate, word}
	}
	//
	switch (word >> resShift) & 3 {
	case 0:
		if insn.PcUpdate == PcJnz {
			insn.Res = ResUnconstrained
		} else {
			insn.Res = ResOp1
		}
	case 1:
		insn.Res = ResAdd
	case 2:
		insn.Res = ResMul
	default:
		return insn, &Error{ErrInvalidResLogic, word}
	}
	//
	switch (word >> opcodeShift) & 7 {
	case 0:
		insn.Opcode = NOp
	case 1:
		insn.Opcode = Call
	case 2:
		insn.Opcode = Ret
	case 4:
		insn.Opcode = AssertEq
	default:
		return insn, &Error{ErrInvalidOpcode, word}
	}
	//
	switch ap := (word >> apShift) & 3; {
	case insn.Opcode == Call && ap != 0:
		return insn, &Error{ErrInvalidCallApUpdate, word}
	case insn.Opcode == Call:
		insn.ApUpdate = ApAdd2
	case ap == 0:
		insn.ApUpdate = ApRegular
	case ap == 1:
		insn.ApUpdate = ApAdd
	case ap == 2:
		insn.ApUpdate = ApAdd1
	default:
		return insn, &Error{ErrInvalidApUpdate, word}
	}
	//
	switch insn.Opcode {
	case Call:
		insn.FpUpdate = FpApPlus2
	case Ret:
		insn.FpUpdate = FpDst
	default:
		insn.FpUpdate = FpRegular
	}
	// Sanity checks
	if insn.PcUpdate == PcJnz && (insn.Res != ResUnconstrained || insn.Opcode != NOp || insn.ApUpdate == ApAdd) {
		return insn, &Error{ErrInvalidJnz, word}
	} else if insn.Op1Src == Op1SrcImm && insn.OffOp1 != 1 {
		return insn, &Error{ErrInvalidImmediateOffset, word}
	}
	//
	return insn, nil
}

// Encode an instruction as a 64-bit word.  This is the inverse of Decode for
// any instruction which Decode accepts.
func Encode(insn Instruction) uint64 {
	var (
		word   uint64
		op1Src = [...]uint64{0, 1, 2, 4}[insn.Op1Src]
		pc     = [...]uint64{0, 1, 2, 4}[insn.PcUpdate]
		opcode = [...]uint64{0, 1, 2, 4}[insn.Opcode]
		res    uint64
		ap     uint64
	)
	//
	switch insn.Res {
	case ResAdd:
		res = 1
	case ResMul:
		res = 2
	}
	//
	switch insn.ApUpdate {
	case ApAdd:
		ap = 1
	case ApAdd1:
		ap = 2
	}
	//
	word |= encodeOffset(insn.OffDst)
	word |= encodeOffset(insn.OffOp0) << 16
	word |= encodeOffset(insn.OffOp1) << 32
	word |= uint64(insn.DstReg) << dstRegBit
	word |= uint64(insn.Op0Reg) << op0RegBit
	word |= op1Src << op1SrcShift
	word |= res << resShift
	word |= pc << pcShift
	word |= ap << apShift
	word |= opcode << opcodeShift
	//
	return word
}

func decodeOffset(word uint64) int16 {
	return int16(int32(word&0xffff) - offsetBias)
}

func encodeOffset(offset int16) uint64 {
	return uint64(int32(offset) + offsetBias)
}
