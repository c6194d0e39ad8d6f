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
	"errors"
	"testing"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/consensys/go-cairovm/pkg/vm/instruction"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fibonacci computes the tenth Fibonacci number using a counter-driven loop,
// ending at pc 12.
func fibonacci() []memory.Value {
	var (
		pushImm = word(instruction.Instruction{OffDst: 0, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, Res: instruction.ResOp1,
			ApUpdate: instruction.ApAdd1, Opcode: instruction.AssertEq})
		copyB = word(instruction.Instruction{OffDst: 0, OffOp0: -1, OffOp1: -2, DstReg: instruction.AP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcAP, Res: instruction.ResOp1,
			ApUpdate: instruction.ApAdd1, Opcode: instruction.AssertEq})
		sum = word(instruction.Instruction{OffDst: 0, OffOp0: -4, OffOp1: -3, DstReg: instruction.AP,
			Op0Reg: instruction.AP, Op1Src: instruction.Op1SrcAP, Res: instruction.ResAdd,
			ApUpdate: instruction.ApAdd1, Opcode: instruction.AssertEq})
		decrement = word(instruction.Instruction{OffDst: 0, OffOp0: -3, OffOp1: 1, DstReg: instruction.AP,
			Op0Reg: instruction.AP, Op1Src: instruction.Op1SrcImm, Res: instruction.ResAdd,
			ApUpdate: instruction.ApAdd1, Opcode: instruction.AssertEq})
		jnz = word(instruction.Instruction{OffDst: -1, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, Res: instruction.ResUnconstrained,
			PcUpdate: instruction.PcJnz, Opcode: instruction.NOp})
	)
	//
	return []memory.Value{
		pushImm, memory.Uint64Value(1),
		pushImm, memory.Uint64Value(1),
		pushImm, memory.Uint64Value(8),
		copyB,
		sum,
		decrement, memory.FeltValue(stark252.FromInt64(-1)),
		jnz, memory.FeltValue(stark252.FromInt64(-4)),
	}
}

func word(insn instruction.Instruction) memory.Value {
	return memory.Uint64Value(instruction.Encode(insn))
}

// setup loads a program into a fresh machine.  The execution segment starts
// with a dummy frame, and ap and fp point just after it.  The returned address
// is that of the initial ap.
func setup(t *testing.T, program []memory.Value) (*VirtualMachine, memory.Relocatable, memory.Relocatable) {
	vm, err := New(DefaultOptions())
	require.NoError(t, err)
	//
	base, err := vm.Segments.AddWith(program)
	require.NoError(t, err)
	//
	exec, err := vm.Segments.AddWith([]memory.Value{memory.Uint64Value(0), memory.Uint64Value(0)})
	require.NoError(t, err)
	//
	start := exec.AddUint(2)
	vm.Context = RunContext{PC: base, AP: start, FP: start}
	//
	return vm, base, start
}

func run(t *testing.T, vm *VirtualMachine, end memory.Relocatable) {
	for vm.Context.PC != end {
		require.NoError(t, vm.Step(nil))
	}
}

func Test_VM_Fibonacci(t *testing.T) {
	vm, base, exec := setup(t, fibonacci())
	run(t, vm, base.AddUint(12))
	//
	assert.Equal(t, uint64(35), vm.CurrentStep())
	assert.Equal(t, exec.AddUint(3+8*3), vm.Context.AP)
	//
	f, err := vm.Memory().GetFelt(exec.AddUint(3 + 8*3 - 2))
	require.NoError(t, err)
	assert.Equal(t, uint64(55), f.Uint64())
	//
	counter, err := vm.Memory().GetFelt(exec.AddUint(3 + 8*3 - 1))
	require.NoError(t, err)
	assert.True(t, counter.IsZero())
	// One trace entry per step, recorded before each update.
	require.Len(t, vm.Trace(), 35)
	assert.Equal(t, base, vm.Trace()[0].PC)
	assert.Equal(t, exec, vm.Trace()[0].AP)
	assert.Equal(t, base.AddUint(10), vm.Trace()[34].PC)
}

func Test_VM_Deterministic(t *testing.T) {
	vm1, base1, _ := setup(t, fibonacci())
	vm2, base2, _ := setup(t, fibonacci())
	//
	run(t, vm1, base1.AddUint(12))
	run(t, vm2, base2.AddUint(12))
	//
	assert.Equal(t, vm1.Trace(), vm2.Trace())
	assert.Equal(t, vm1.Context, vm2.Context)
}

func Test_VM_TraceDisabled(t *testing.T) {
	vm, base, _ := setup(t, fibonacci())
	vm.traceOn = false
	run(t, vm, base.AddUint(12))
	//
	assert.Empty(t, vm.Trace())
	assert.Equal(t, uint64(35), vm.CurrentStep())
}

func Test_VM_CallRet(t *testing.T) {
	program := []memory.Value{
		memory.Uint64Value(0x1104800180018000), memory.Uint64Value(4), // call rel 4
		memory.Uint64Value(0x10780017fff7fff), memory.Uint64Value(0), // jmp rel 0
		word(instruction.Instruction{OffDst: 0, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, Res: instruction.ResOp1,
			ApUpdate: instruction.ApAdd1, Opcode: instruction.AssertEq}), memory.Uint64Value(7),
		memory.Uint64Value(0x208b7fff7fff7ffe), // ret
	}
	vm, base, exec := setup(t, program)
	// call
	require.NoError(t, vm.Step(nil))
	assert.Equal(t, base.AddUint(4), vm.Context.PC)
	assert.Equal(t, exec.AddUint(2), vm.Context.FP)
	assert.Equal(t, exec.AddUint(2), vm.Context.AP)
	// Saved frame
	saved, err := vm.Memory().GetAddress(exec)
	require.NoError(t, err)
	assert.Equal(t, exec, saved)
	//
	ret, err := vm.Memory().GetAddress(exec.AddUint(1))
	require.NoError(t, err)
	assert.Equal(t, base.AddUint(2), ret)
	// body, then ret
	require.NoError(t, vm.Step(nil))
	require.NoError(t, vm.Step(nil))
	assert.Equal(t, base.AddUint(2), vm.Context.PC)
	assert.Equal(t, exec, vm.Context.FP)
	assert.Equal(t, exec.AddUint(3), vm.Context.AP)
}

func Test_VM_DeduceOp0Mul(t *testing.T) {
	program := []memory.Value{
		word(instruction.Instruction{OffDst: 0, OffOp0: 1, OffOp1: 2, DstReg: instruction.FP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcFP, Res: instruction.ResMul,
			Opcode: instruction.AssertEq}),
	}
	vm, base, exec := setup(t, program)
	// fp and ap coincide initially
	require.NoError(t, vm.Memory().Insert(exec, memory.Uint64Value(12)))
	require.NoError(t, vm.Memory().Insert(exec.AddUint(2), memory.Uint64Value(3)))
	//
	require.NoError(t, vm.Step(nil))
	//
	op0, err := vm.Memory().GetFelt(exec.AddUint(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), op0.Uint64())
	assert.Equal(t, base.AddUint(1), vm.Context.PC)
}

func Test_VM_DeduceFromBuiltin(t *testing.T) {
	vm, err := New(DefaultOptions())
	require.NoError(t, err)
	//
	program := []memory.Value{
		word(instruction.Instruction{OffDst: 0, OffOp0: 0, OffOp1: 2, DstReg: instruction.AP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcFP, Res: instruction.ResOp1,
			ApUpdate: instruction.ApAdd1, Opcode: instruction.AssertEq}),
	}
	base, err := vm.Segments.AddWith(program)
	require.NoError(t, err)
	//
	bitwise, err := builtin.NewRunner(builtin.Bitwise, 256)
	require.NoError(t, err)
	bitwise.InitializeSegments(vm.Segments)
	vm.AddBuiltin(bitwise)
	//
	exec := vm.Segments.Add()
	require.NoError(t, vm.Memory().Insert(bitwise.Base(), memory.Uint64Value(0b1100)))
	require.NoError(t, vm.Memory().Insert(bitwise.Base().AddUint(1), memory.Uint64Value(0b1010)))
	// fp points at the builtin instance, so op1 is its "and" cell.
	vm.Context = RunContext{PC: base, AP: exec, FP: bitwise.Base()}
	require.NoError(t, vm.Step(nil))
	//
	and, err := vm.Memory().GetFelt(exec)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1000), and.Uint64())
	assert.NoError(t, vm.VerifyAutoDeductions())
}

func Test_VM_AssertEqFailed(t *testing.T) {
	program := []memory.Value{
		word(instruction.Instruction{OffDst: 0, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, Res: instruction.ResOp1,
			Opcode: instruction.AssertEq}), memory.Uint64Value(3),
	}
	vm, base, exec := setup(t, program)
	require.NoError(t, vm.Memory().Insert(exec, memory.Uint64Value(5)))
	//
	err := vm.Step(nil)
	require.Error(t, err)
	//
	var exception *Exception
	require.True(t, errors.As(err, &exception))
	assert.Equal(t, base, exception.PC)
	assert.ErrorIs(t, err, ErrAssertEqFailed)
	assert.Equal(t, Faulted, vm.State())
	// No further progress
	assert.ErrorIs(t, vm.Step(nil), ErrNotRunning)
	assert.Empty(t, vm.Trace())
}

func Test_VM_UnknownPC(t *testing.T) {
	vm, base, _ := setup(t, nil)
	//
	err := vm.Step(nil)
	assert.ErrorIs(t, err, ErrUnknownPC)
	//
	var exception *Exception
	require.True(t, errors.As(err, &exception))
	assert.Equal(t, base, exception.PC)
}

func Test_VM_UnconstrainedDst(t *testing.T) {
	// jmp rel 2 if [ap] != 0, with [ap] never written.
	program := []memory.Value{
		word(instruction.Instruction{OffDst: 0, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, Res: instruction.ResUnconstrained,
			PcUpdate: instruction.PcJnz, Opcode: instruction.NOp}), memory.Uint64Value(2),
	}
	vm, _, _ := setup(t, program)
	assert.ErrorIs(t, vm.Step(nil), ErrDeductionFailed)
}

func Test_VM_HintsRunFirst(t *testing.T) {
	program := []memory.Value{
		word(instruction.Instruction{OffDst: 0, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
			Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, Res: instruction.ResOp1,
			ApUpdate: instruction.ApAdd1, Opcode: instruction.AssertEq}), memory.Uint64Value(9),
	}
	vm, _, exec := setup(t, program)
	// A hint which writes the value the instruction then asserts.
	hints := hintFunc(func(vm *VirtualMachine) error {
		return vm.Memory().Insert(vm.Context.AP, memory.Uint64Value(9))
	})
	require.NoError(t, vm.Step(hints))
	assert.Equal(t, exec.AddUint(1), vm.Context.AP)
	// A failing hint faults the machine.
	failing := hintFunc(func(*VirtualMachine) error { return errors.New("boom") })
	vm, base, _ := setup(t, program)
	err := vm.Step(failing)
	assert.Equal(t, Faulted, vm.State())
	// The failure identifies the instruction at which the hint ran.
	var exception *Exception
	require.True(t, errors.As(err, &exception))
	assert.Equal(t, base, exception.PC)
	//
	expected, _ := program[0].Felt()
	assert.Equal(t, expected.Uint64(), exception.Instruction)
	assert.NotZero(t, exception.Instruction)
	// As does stepping a faulted machine.
	err = vm.Step(nil)
	require.True(t, errors.As(err, &exception))
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.Equal(t, expected.Uint64(), exception.Instruction)
}

type hintFunc func(vm *VirtualMachine) error

func (f hintFunc) ExecuteHints(vm *VirtualMachine) error {
	return f(vm)
}
