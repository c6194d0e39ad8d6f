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

// operands captures the resolved operands of an instruction, along with their
// addresses and which of them were deduced (and therefore must be written).
type operands struct {
	dst, op0, op1             memory.Value
	res                       *memory.Value
	dstAddr, op0Addr, op1Addr memory.Relocatable
	dstNew, op0New, op1New    bool
}

// computeOperands resolves the dst, op0 and op1 operands of an instruction,
// deducing any which are not yet in memory.
func (p *VirtualMachine) computeOperands(insn *instruction.Instruction) (operands, error) {
	var (
		ops operands
		mem = p.Memory()
		ok  bool
		err error
	)
	//
	if ops.dstAddr, err = p.Context.Base(insn.DstReg).AddInt(int64(insn.OffDst)); err != nil {
		return ops, err
	} else if ops.op0Addr, err = p.Context.Base(insn.Op0Reg).AddInt(int64(insn.OffOp0)); err != nil {
		return ops, err
	}
	// op0 first, since op1 may be addressed through it.
	if ops.op0, ok = mem.Lookup(ops.op0Addr); !ok {
		if ops.op0, err = p.deduceOp0(insn, ops.op0Addr, mem, &ops); err != nil {
			return ops, err
		}
		//
		ops.op0New = true
	}
	//
	if ops.op1Addr, err = p.op1Address(insn, ops.op0); err != nil {
		return ops, err
	}
	//
	if ops.op1, ok = mem.Lookup(ops.op1Addr); !ok {
		if ops.op1, err = p.deduceOp1(insn, ops.op1Addr, mem, &ops); err != nil {
			return ops, err
		}
		//
		ops.op1New = true
	}
	//
	if ops.res, err = computeRes(insn, ops.op0, ops.op1); err != nil {
		return ops, err
	}
	//
	if ops.dst, ok = mem.Lookup(ops.dstAddr); !ok {
		switch {
		case insn.Opcode == instruction.AssertEq && ops.res != nil:
			ops.dst = *ops.res
		case insn.Opcode == instruction.Call:
			ops.dst = memory.AddressValue(p.Context.FP)
		default:
			return ops, operandError(ErrDeductionFailed, "dst", ops.dstAddr)
		}
		//
		ops.dstNew = true
	}
	//
	return ops, nil
}

func (p *VirtualMachine) op1Address(insn *instruction.Instruction, op0 memory.Value) (memory.Relocatable, error) {
	var base memory.Relocatable
	//
	switch insn.Op1Src {
	case instruction.Op1SrcImm:
		base = p.Context.PC
	case instruction.Op1SrcFP:
		base = p.Context.FP
	case instruction.Op1SrcAP:
		base = p.Context.AP
	default:
		addr, ok := op0.Address()
		if !ok {
			return memory.Relocatable{}, ErrOp0NotRelocatable
		}
		//
		base = addr
	}
	//
	return base.AddInt(int64(insn.OffOp1))
}

// deduceOp0 determines op0 when it has not been written.  Builtins are
// consulted first, followed by the constraints implied by the opcode.
func (p *VirtualMachine) deduceOp0(insn *instruction.Instruction, addr memory.Relocatable, mem *memory.Memory,
	ops *operands) (memory.Value, error) {
	if v, ok, err := p.deduceBuiltin(addr); err != nil || ok {
		return v, err
	}
	//
	switch insn.Opcode {
	case instruction.Call:
		return memory.AddressValue(p.Context.PC.AddUint(insn.Size())), nil
	case instruction.AssertEq:
		dst, dok := mem.Lookup(ops.dstAddr)
		// op1 can only be read here when it is not addressed through op0.
		op1, ook := memory.Value{}, false
		//
		if insn.Op1Src != instruction.Op1SrcOp0 {
			if a, err := p.op1Address(insn, memory.Value{}); err == nil {
				op1, ook = mem.Lookup(a)
			}
		}
		//
		if dok && ook {
			switch insn.Res {
			case instruction.ResAdd:
				return dst.Sub(op1)
			case instruction.ResMul:
				df, dfok := dst.Felt()
				of, ofok := op1.Felt()
				//
				if dfok && ofok && !of.IsZero() {
					q, err := df.Div(of)
					return memory.FeltValue(q), err
				}
			}
		}
	}
	//
	return memory.Value{}, operandError(ErrDeductionFailed, "op0", addr)
}

// deduceOp1 determines op1 when it has not been written, in the same manner as
// deduceOp0.
func (p *VirtualMachine) deduceOp1(insn *instruction.Instruction, addr memory.Relocatable, mem *memory.Memory,
	ops *operands) (memory.Value, error) {
	if v, ok, err := p.deduceBuiltin(addr); err != nil || ok {
		return v, err
	}
	//
	if insn.Opcode == instruction.AssertEq {
		if dst, ok := mem.Lookup(ops.dstAddr); ok {
			switch insn.Res {
			case instruction.ResOp1:
				return dst, nil
			case instruction.ResAdd:
				return dst.Sub(ops.op0)
			case instruction.ResMul:
				df, dfok := dst.Felt()
				of, ofok := ops.op0.Felt()
				//
				if dfok && ofok && !of.IsZero() {
					q, err := df.Div(of)
					return memory.FeltValue(q), err
				}
			}
		}
	}
	//
	return memory.Value{}, operandError(ErrDeductionFailed, "op1", addr)
}

func (p *VirtualMachine) deduceBuiltin(addr memory.Relocatable) (memory.Value, bool, error) {
	if r, ok := p.owners[addr.Segment]; ok {
		return r.Deduce(addr, p.Memory())
	}
	//
	return memory.Value{}, false, nil
}

// computeRes determines the result of an instruction, returning nil when it is
// unconstrained.
func computeRes(insn *instruction.Instruction, op0, op1 memory.Value) (*memory.Value, error) {
	var (
		res memory.Value
		err error
	)
	//
	switch insn.Res {
	case instruction.ResOp1:
		res = op1
	case instruction.ResAdd:
		res, err = op0.Add(op1)
	case instruction.ResMul:
		if op0.IsAddress() || op1.IsAddress() {
			return nil, ErrMulRelocatable
		}
		//
		res, err = op0.Mul(op1)
	default:
		return nil, nil
	}
	//
	if err != nil {
		return nil, err
	}
	//
	return &res, nil
}

// checkOpcode enforces the assertions implied by the opcode.
func (p *VirtualMachine) checkOpcode(insn *instruction.Instruction, ops *operands) error {
	switch insn.Opcode {
	case instruction.AssertEq:
		if ops.res == nil {
			return ErrUnconstrainedResAssertEq
		} else if !ops.dst.Equal(*ops.res) {
			return operandError(ErrAssertEqFailed, ops.dst.String()+" != "+ops.res.String(), ops.dstAddr)
		}
	case instruction.Call:
		ret := memory.AddressValue(p.Context.PC.AddUint(insn.Size()))
		//
		if !ops.op0.Equal(ret) {
			return operandError(ErrCallOp0Mismatch, ops.op0.String(), ops.op0Addr)
		} else if !ops.dst.Equal(memory.AddressValue(p.Context.FP)) {
			return operandError(ErrCallDstMismatch, ops.dst.String(), ops.dstAddr)
		}
	}
	//
	return nil
}

// writeDeduced inserts any deduced operands into memory.
func (p *VirtualMachine) writeDeduced(ops *operands) error {
	mem := p.Memory()
	//
	if ops.op0New {
		if err := mem.Insert(ops.op0Addr, ops.op0); err != nil {
			return err
		}
	}
	//
	if ops.op1New {
		if err := mem.Insert(ops.op1Addr, ops.op1); err != nil {
			return err
		}
	}
	//
	if ops.dstNew {
		if err := mem.Insert(ops.dstAddr, ops.dst); err != nil {
			return err
		}
	}
	//
	return nil
}
