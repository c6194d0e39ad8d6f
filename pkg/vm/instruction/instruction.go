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
	"fmt"
	"strings"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
)

// Register identifies one of the two base registers against which operand
// offsets are applied.
type Register uint8

const (
	// AP is the allocation pointer.
	AP Register = iota
	// FP is the frame pointer.
	FP
)

func (r Register) String() string {
	if r == FP {
		return "fp"
	}
	//
	return "ap"
}

// Op1Src determines where the second operand is read from.
type Op1Src uint8

const (
	// Op1SrcOp0 reads op1 from [op0 + off_op1].
	Op1SrcOp0 Op1Src = iota
	// Op1SrcImm reads op1 from the word following the instruction.
	Op1SrcImm
	// Op1SrcFP reads op1 from [fp + off_op1].
	Op1SrcFP
	// Op1SrcAP reads op1 from [ap + off_op1].
	Op1SrcAP
)

// ResLogic determines how the result is computed from the operands.
type ResLogic uint8

const (
	// ResOp1 means res = op1.
	ResOp1 ResLogic = iota
	// ResAdd means res = op0 + op1.
	ResAdd
	// ResMul means res = op0 * op1.
	ResMul
	// ResUnconstrained means res is not defined (conditional jumps).
	ResUnconstrained
)

// PcUpdate determines how the program counter is updated.
type PcUpdate uint8

const (
	// PcRegular advances past the instruction.
	PcRegular PcUpdate = iota
	// PcJumpAbs jumps to res.
	PcJumpAbs
	// PcJumpRel jumps by res.
	PcJumpRel
	// PcJnz jumps by op1 when dst is non-zero.
	PcJnz
)

// ApUpdate determines how the allocation pointer is updated.
type ApUpdate uint8

const (
	// ApRegular leaves ap unchanged.
	ApRegular ApUpdate = iota
	// ApAdd adds res to ap.
	ApAdd
	// ApAdd1 increments ap.
	ApAdd1
	// ApAdd2 adds two to ap (calls only).
	ApAdd2
)

// FpUpdate determines how the frame pointer is updated.
type FpUpdate uint8

const (
	// FpRegular leaves fp unchanged.
	FpRegular FpUpdate = iota
	// FpApPlus2 sets fp to ap + 2 (calls).
	FpApPlus2
	// FpDst sets fp to dst (returns).
	FpDst
)

// Opcode identifies the kind of instruction.
type Opcode uint8

const (
	// NOp has no assertions.
	NOp Opcode = iota
	// Call pushes the frame and return address, then jumps.
	Call
	// Ret restores the caller's frame and jumps back.
	Ret
	// AssertEq asserts that dst equals res.
	AssertEq
)

// Instruction is a decoded Cairo instruction.  Offsets are signed and relative
// to the register (or operand) selected by the corresponding flags.
type Instruction struct {
	OffDst   int16
	OffOp0   int16
	OffOp1   int16
	DstReg   Register
	Op0Reg   Register
	Op1Src   Op1Src
	Res      ResLogic
	PcUpdate PcUpdate
	ApUpdate ApUpdate
	FpUpdate FpUpdate
	Opcode   Opcode
}

// Size returns the number of words occupied by this instruction, including its
// immediate (if any).
func (p *Instruction) Size() uint64 {
	if p.Op1Src == Op1SrcImm {
		return 2
	}
	//
	return 1
}

func (p *Instruction) String() string {
	return p.Format(nil)
}

// Format returns a human-readable (assembly-like) form of this instruction.  If
// an immediate value is provided it is used in place of the op1 operand.
func (p *Instruction) Format(imm *stark252.Element) string {
	var (
		builder strings.Builder
		res     = p.resString(imm)
	)
	//
	switch p.Opcode {
	case AssertEq:
		builder.WriteString(fmt.Sprintf("%s = %s", deref(p.DstReg.String(), p.OffDst), res))
	case Call:
		if p.PcUpdate == PcJumpAbs {
			builder.WriteString("call abs " + res)
		} else {
			builder.WriteString("call rel " + res)
		}
	case Ret:
		builder.WriteString("ret")
	case NOp:
		switch p.PcUpdate {
		case PcJumpAbs:
			builder.WriteString("jmp abs " + res)
		case PcJumpRel:
			builder.WriteString("jmp rel " + res)
		case PcJnz:
			builder.WriteString(fmt.Sprintf("jmp rel %s if %s != 0", p.op1String(imm),
				deref(p.DstReg.String(), p.OffDst)))
		case PcRegular:
			if p.ApUpdate == ApAdd {
				return "ap += " + res
			}
		}
	}
	//
	switch p.ApUpdate {
	case ApAdd:
		builder.WriteString("; ap += " + res)
	case ApAdd1:
		builder.WriteString("; ap++")
	}
	//
	return builder.String()
}

func (p *Instruction) resString(imm *stark252.Element) string {
	var (
		op0 = deref(p.Op0Reg.String(), p.OffOp0)
		op1 = p.op1String(imm)
	)
	//
	switch p.Res {
	case ResAdd:
		return op0 + " + " + op1
	case ResMul:
		return op0 + " * " + op1
	}
	//
	return op1
}

func (p *Instruction) op1String(imm *stark252.Element) string {
	switch p.Op1Src {
	case Op1SrcImm:
		if imm == nil {
			return "imm"
		}
		//
		return imm.Signed().String()
	case Op1SrcFP:
		return deref("fp", p.OffOp1)
	case Op1SrcAP:
		return deref("ap", p.OffOp1)
	}
	//
	return deref(deref(p.Op0Reg.String(), p.OffOp0), p.OffOp1)
}

func deref(base string, offset int16) string {
	switch {
	case offset == 0:
		return "[" + base + "]"
	case offset < 0:
		return fmt.Sprintf("[%s - %d]", base, -int(offset))
	}
	//
	return fmt.Sprintf("[%s + %d]", base, offset)
}
