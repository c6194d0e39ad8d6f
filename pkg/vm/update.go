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
package vm

import (
	"github.com/consensys/go-cairovm/pkg/vm/instruction"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// updateRegisters computes the next fp, ap and pc (in that order), each from
// the registers as they were before the instruction executed.
func (p *VirtualMachine) updateRegisters(insn *instruction.Instruction, ops *operands) error {
	fp, err := p.nextFP(insn, ops)
	if err != nil {
		return err
	}
	//
	ap, err := p.nextAP(insn, ops)
	if err != nil {
		return err
	}
	//
	pc, err := p.nextPC(insn, ops)
	if err != nil {
		return err
	}
	//
	p.Context = RunContext{PC: pc, AP: ap, FP: fp}
	//
	return nil
}

func (p *VirtualMachine) nextFP(insn *instruction.Instruction, ops *operands) (memory.Relocatable, error) {
	switch insn.FpUpdate {
	case instruction.FpApPlus2:
		return p.Context.AP.AddUint(2), nil
	case instruction.FpDst:
		if addr, ok := ops.dst.Address(); ok {
			return addr, nil
		}
		// A field element is treated as an offset from the current fp.
		if f, ok := ops.dst.Felt(); ok {
			return p.Context.FP.AddFelt(f)
		}
		//
		return memory.Relocatable{}, ErrInvalidFpUpdate
	}
	//
	return p.Context.FP, nil
}

func (p *VirtualMachine) nextAP(insn *instruction.Instruction, ops *operands) (memory.Relocatable, error) {
	switch insn.ApUpdate {
	case instruction.ApAdd:
		if ops.res == nil {
			return memory.Relocatable{}, ErrUnconstrainedResAdd
		}
		//
		f, ok := ops.res.Felt()
		if !ok {
			return memory.Relocatable{}, operandError(ErrUnconstrainedResAdd, "relocatable res", p.Context.AP)
		}
		//
		return p.Context.AP.AddFelt(f)
	case instruction.ApAdd1:
		return p.Context.AP.AddUint(1), nil
	case instruction.ApAdd2:
		return p.Context.AP.AddUint(2), nil
	}
	//
	return p.Context.AP, nil
}

func (p *VirtualMachine) nextPC(insn *instruction.Instruction, ops *operands) (memory.Relocatable, error) {
	pc := p.Context.PC
	//
	switch insn.PcUpdate {
	case instruction.PcJumpAbs:
		if ops.res == nil {
			return pc, ErrUnconstrainedResJump
		}
		//
		addr, ok := ops.res.Address()
		if !ok {
			return pc, ErrJumpToFelt
		}
		//
		return addr, nil
	case instruction.PcJumpRel:
		if ops.res == nil {
			return pc, ErrUnconstrainedResJump
		}
		//
		f, ok := ops.res.Felt()
		if !ok {
			return pc, ErrJumpRelByAddress
		}
		//
		return pc.AddFelt(f)
	case instruction.PcJnz:
		if ops.dst.IsZero() {
			return pc.AddUint(insn.Size()), nil
		}
		//
		f, ok := ops.op1.Felt()
		if !ok {
			return pc, ErrJumpRelByAddress
		}
		//
		return pc.AddFelt(f)
	}
	//
	return pc.AddUint(insn.Size()), nil
}
