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
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm"
	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/consensys/go-cairovm/pkg/vm/hint"
	"github.com/consensys/go-cairovm/pkg/vm/instruction"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test assembler
// ============================================================================

type testHint struct {
	code string
	ids  map[string]string
}

// assembler builds compiled programs for tests.
type assembler struct {
	data     []string
	builtins []string
	labels   map[string]uint64
	hints    map[uint64][]testHint
	attrs    []program.Attribute
}

func newAssembler(builtins ...string) *assembler {
	return &assembler{builtins: builtins, labels: make(map[string]uint64), hints: make(map[uint64][]testHint)}
}

func (a *assembler) pc() uint64 {
	return uint64(len(a.data))
}

func (a *assembler) label(name string) {
	a.labels[name] = a.pc()
}

func (a *assembler) hint(code string, ids map[string]string) {
	a.hints[a.pc()] = append(a.hints[a.pc()], testHint{code, ids})
}

func (a *assembler) emit(insn instruction.Instruction, imm ...int64) {
	a.data = append(a.data, fmt.Sprintf("0x%x", instruction.Encode(insn)))
	//
	for _, v := range imm {
		a.data = append(a.data, "0x"+stark252.FromInt64(v).Text(16))
	}
}

// [ap] = imm; ap++
func (a *assembler) push(v int64) {
	a.emit(instruction.Instruction{OffDst: 0, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
		Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, ApUpdate: instruction.ApAdd1,
		Opcode: instruction.AssertEq}, v)
}

// [ap] = [reg + off] + imm; ap++
func (a *assembler) pushSum(reg instruction.Register, off int16, v int64) {
	a.emit(instruction.Instruction{OffDst: 0, OffOp0: off, OffOp1: 1, DstReg: instruction.AP,
		Op0Reg: reg, Op1Src: instruction.Op1SrcImm, Res: instruction.ResAdd, ApUpdate: instruction.ApAdd1,
		Opcode: instruction.AssertEq}, v)
}

// [dreg + doff] = [[preg + poff] + off], i.e. a store through a pointer.
func (a *assembler) store(dreg instruction.Register, doff int16, preg instruction.Register, poff int16, off int16) {
	a.emit(instruction.Instruction{OffDst: doff, OffOp0: poff, OffOp1: off, DstReg: dreg,
		Op0Reg: preg, Op1Src: instruction.Op1SrcOp0, Opcode: instruction.AssertEq})
}

// ap += imm
func (a *assembler) alloc(n int64) {
	a.emit(instruction.Instruction{OffDst: -1, OffOp0: -1, OffOp1: 1, DstReg: instruction.FP,
		Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, ApUpdate: instruction.ApAdd,
		Opcode: instruction.NOp}, n)
}

// jmp rel imm if [ap + off] != 0
func (a *assembler) jnz(off int16, rel int64) {
	a.emit(instruction.Instruction{OffDst: off, OffOp0: -1, OffOp1: 1, DstReg: instruction.AP,
		Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, Res: instruction.ResUnconstrained,
		PcUpdate: instruction.PcJnz, Opcode: instruction.NOp}, rel)
}

// jmp rel imm
func (a *assembler) jmp(rel int64) {
	a.emit(instruction.Instruction{OffDst: -1, OffOp0: -1, OffOp1: 1, DstReg: instruction.FP,
		Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, PcUpdate: instruction.PcJumpRel,
		Opcode: instruction.NOp}, rel)
}

// call rel imm
func (a *assembler) call(rel int64) {
	a.data = append(a.data, "0x1104800180018000")
	a.data = append(a.data, "0x"+stark252.FromInt64(rel).Text(16))
}

func (a *assembler) ret() {
	a.data = append(a.data, "0x208b7fff7fff7ffe")
}

// build the JSON form of the program and parse it.
func (a *assembler) build(t *testing.T) *program.Program {
	var (
		identifiers = make(map[string]any)
		hints       = make(map[string]any)
		references  []any
	)
	//
	for name, pc := range a.labels {
		identifiers["__main__."+name] = map[string]any{"type": "label", "pc": pc}
	}
	//
	for pc, hs := range a.hints {
		var entries []any
		//
		for _, h := range hs {
			ids := make(map[string]int)
			//
			for name, expr := range h.ids {
				ids["__main__.main."+name] = len(references)
				references = append(references, map[string]any{
					"ap_tracking_data": map[string]int{"group": 0, "offset": 0},
					"pc":               pc,
					"value":            expr,
				})
			}
			//
			entries = append(entries, map[string]any{
				"code":              h.code,
				"accessible_scopes": []string{"__main__", "__main__.main"},
				"flow_tracking_data": map[string]any{
					"ap_tracking":   map[string]int{"group": 0, "offset": 0},
					"reference_ids": ids,
				},
			})
		}
		//
		hints[fmt.Sprintf("%d", pc)] = entries
	}
	//
	raw := map[string]any{
		"attributes":        a.attrs,
		"builtins":          a.builtins,
		"data":              a.data,
		"hints":             hints,
		"identifiers":       identifiers,
		"main_scope":        "__main__",
		"prime":             "0x800000000000011000000000000000000000000000000000000000000000001",
		"reference_manager": map[string]any{"references": references},
	}
	//
	bytes, err := json.Marshal(raw)
	require.NoError(t, err)
	//
	prog, err := program.Parse(bytes)
	require.NoError(t, err)
	//
	return prog
}

// ============================================================================
// Programs
// ============================================================================

// fibonacci computes the tenth Fibonacci number, leaving it at [ap - 2].
func fibonacci(t *testing.T) *program.Program {
	a := newAssembler()
	a.label("main")
	a.push(1)
	a.push(1)
	a.push(8)
	// loop
	a.emit(instruction.Instruction{OffDst: 0, OffOp0: -1, OffOp1: -2, DstReg: instruction.AP,
		Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcAP, ApUpdate: instruction.ApAdd1,
		Opcode: instruction.AssertEq})
	a.emit(instruction.Instruction{OffDst: 0, OffOp0: -4, OffOp1: -3, DstReg: instruction.AP,
		Op0Reg: instruction.AP, Op1Src: instruction.Op1SrcAP, Res: instruction.ResAdd,
		ApUpdate: instruction.ApAdd1, Opcode: instruction.AssertEq})
	a.pushSum(instruction.AP, -3, -1)
	a.jnz(-1, -4)
	a.ret()
	//
	return a.build(t)
}

// output writes 7 to the output builtin and returns the updated pointer.
func output(t *testing.T) *program.Program {
	a := newAssembler(builtin.Output)
	a.label("main")
	a.push(7)
	a.store(instruction.AP, -1, instruction.FP, -3, 0)
	a.pushSum(instruction.FP, -3, 1)
	a.ret()
	//
	return a.build(t)
}

// searchKeys are placed in a fresh array by the search program.
var searchKeys = []int64{10, 20, 30, 40, 50}

// searchHintPC is the offset of the find_element hint in the search program.
var searchHintPC = uint64(2 + 3*len(searchKeys) + 6)

// search places searchKeys in a fresh array, locates key using find_element,
// and outputs its index.
func search(t *testing.T, key int64) *program.Program {
	var (
		a = newAssembler(builtin.Output)
		n = int16(len(searchKeys))
	)
	//
	a.label("main")
	a.hint(hint.AddSegment, nil)
	a.alloc(1)
	//
	for i, k := range searchKeys {
		a.push(k)
		a.store(instruction.AP, -1, instruction.FP, 0, int16(i))
	}
	//
	a.push(1)        // elm_size
	a.push(int64(n)) // n_elms
	a.push(key)      // key
	a.hint(hint.FindElement, map[string]string{
		"array_ptr": "[cast(fp, felt**)]",
		"elm_size":  fmt.Sprintf("[cast(fp + %d, felt*)]", n+1),
		"n_elms":    fmt.Sprintf("[cast(fp + %d, felt*)]", n+2),
		"key":       fmt.Sprintf("[cast(fp + %d, felt*)]", n+3),
		"index":     fmt.Sprintf("[cast(fp + %d, felt*)]", n+4),
	})
	a.alloc(1)
	a.store(instruction.FP, n+4, instruction.FP, -3, 0)
	a.pushSum(instruction.FP, -3, 1)
	a.ret()
	//
	return a.build(t)
}

// assertNN stores a value into the range check builtin, optionally guarded by
// the assert_nn hint, and returns the updated pointer.
func assertNN(t *testing.T, value int64, guarded bool) *program.Program {
	a := newAssembler(builtin.RangeCheck)
	a.label("main")
	a.push(value)
	//
	if guarded {
		a.hint(hint.AssertNN, map[string]string{"a": "[cast(fp, felt*)]"})
	}
	// [[fp - 3]] = [fp]
	a.store(instruction.FP, 0, instruction.FP, -3, 0)
	a.pushSum(instruction.FP, -3, 1)
	a.ret()
	//
	return a.build(t)
}

// entry pushes three values in main, which is reached either directly or
// through __start__ (which calls main and then loops at __end__).
func entry(t *testing.T) *program.Program {
	a := newAssembler()
	a.label("__start__")
	a.call(4)
	a.label("__end__")
	a.jmp(0)
	a.label("main")
	a.push(1)
	a.push(2)
	a.push(3)
	a.ret()
	//
	return a.build(t)
}

// proof pushes three values, then loops at __end__.
func proof(t *testing.T) *program.Program {
	a := newAssembler()
	a.label("__start__")
	a.push(1)
	a.push(2)
	a.push(3)
	a.label("__end__")
	a.jmp(0)
	//
	return a.build(t)
}

// ============================================================================
// Tests
// ============================================================================

func Test_Runner_Fibonacci(t *testing.T) {
	prog := fibonacci(t)
	res, err := Run(context.Background(), prog, DefaultConfig())
	require.NoError(t, err)
	//
	runner := res.Runner
	assert.Equal(t, uint64(36), res.Resources.Steps)
	assert.Equal(t, uint64(0), res.Resources.MemoryHoles)
	assert.Equal(t, vm.Stopped, runner.VM.State())
	//
	ap := runner.VM.Context.AP
	f, err := runner.VM.Memory().GetFelt(memory.NewRelocatable(ap.Segment, ap.Offset-2))
	require.NoError(t, err)
	assert.Equal(t, uint64(55), f.Uint64())
	// Program at 1, execution segment straight after, starting with the frame
	// [return_fp, end].
	trace := res.Relocated.Trace
	require.Len(t, trace, 36)
	//
	execBase := 1 + uint64(len(prog.Data))
	assert.Equal(t, uint64(1), trace[0].PC)
	assert.Equal(t, execBase+2, trace[0].AP)
	assert.Equal(t, execBase+2, trace[0].FP)
	// ret is the final step
	assert.Equal(t, uint64(len(prog.Data)), trace[35].PC)
	// Memory is sorted and contains the result.
	cells := res.Relocated.Memory
	require.NotEmpty(t, cells)
	assert.Equal(t, uint64(1), cells[0].Address)
	//
	for i := 1; i < len(cells); i++ {
		assert.Less(t, cells[i-1].Address, cells[i].Address)
	}
	//
	assert.Empty(t, res.Output)
}

func Test_Runner_Deterministic(t *testing.T) {
	r1, err := Run(context.Background(), fibonacci(t), DefaultConfig())
	require.NoError(t, err)
	//
	r2, err := Run(context.Background(), fibonacci(t), DefaultConfig())
	require.NoError(t, err)
	//
	assert.Equal(t, r1.Relocated, r2.Relocated)
}

func Test_Runner_Output(t *testing.T) {
	config := DefaultConfig()
	config.Layout, _ = builtin.LookupLayout("small")
	//
	res, err := Run(context.Background(), output(t), config)
	require.NoError(t, err)
	//
	require.Len(t, res.Output, 1)
	assert.True(t, res.Output[0].Equal(memory.Uint64Value(7)))
	assert.Equal(t, uint64(1), res.Resources.BuiltinInstances[builtin.Output])
	// Stop pointer read from the returned values
	stop, ok := res.Runner.VM.Builtins()[0].StopPointer()
	require.True(t, ok)
	assert.Equal(t, uint64(1), stop.Offset)
}

func Test_Runner_BuiltinNotInLayout(t *testing.T) {
	_, err := Run(context.Background(), output(t), DefaultConfig())
	assert.ErrorIs(t, err, builtin.ErrBuiltinNotInLayout)
}

func Test_Runner_LinearSearch(t *testing.T) {
	config := DefaultConfig()
	config.Layout, _ = builtin.LookupLayout("small")
	//
	res, err := Run(context.Background(), search(t, 40), config)
	require.NoError(t, err)
	//
	require.Len(t, res.Output, 1)
	assert.True(t, res.Output[0].Equal(memory.Uint64Value(3)))
	// Absent key
	_, err = Run(context.Background(), search(t, 25), config)
	require.Error(t, err)
	assert.ErrorIs(t, err, hint.ErrKeyNotFound)
	//
	var herr *hint.Error
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, hint.FindElement, herr.Code)
	//
	var exception *vm.Exception
	require.True(t, errors.As(err, &exception))
	assert.Equal(t, searchHintPC, exception.PC.Offset)
}

func Test_Runner_RangeCheck(t *testing.T) {
	config := DefaultConfig()
	config.Layout, _ = builtin.LookupLayout("small")
	//
	for _, v := range []int64{0, 5, 65535, 1 << 40} {
		res, err := Run(context.Background(), assertNN(t, v, true), config)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, uint64(1), res.Resources.BuiltinInstances[builtin.RangeCheck])
		//
		lo, hi, ok := res.Runner.RangeCheckUsage()
		require.True(t, ok)
		assert.LessOrEqual(t, lo, uint64(0xffff&v))
		assert.GreaterOrEqual(t, hi, uint64(0xffff&v))
	}
	// Negative values are caught by the hint
	_, err := Run(context.Background(), assertNN(t, -1, true), config)
	assert.ErrorIs(t, err, hint.ErrValueOutOfRange)
	// Otherwise, by the builtin itself
	_, err = Run(context.Background(), assertNN(t, -1, false), config)
	assert.ErrorIs(t, err, builtin.ErrRangeCheckOutOfBounds)
	//
	var exception *vm.Exception
	require.True(t, errors.As(err, &exception))
	assert.Equal(t, uint64(2), exception.PC.Offset)
}

func Test_Runner_UnknownHint(t *testing.T) {
	a := newAssembler()
	a.label("main")
	a.hint("print('hello')", nil)
	a.ret()
	//
	_, err := New(a.build(t), DefaultConfig())
	assert.ErrorIs(t, err, hint.ErrUnknownHint)
}

func Test_Runner_ErrorMessage(t *testing.T) {
	a := newAssembler()
	a.label("main")
	// [fp - 1] holds the return address, so this fails.
	a.emit(instruction.Instruction{OffDst: -1, OffOp0: -1, OffOp1: 1, DstReg: instruction.FP,
		Op0Reg: instruction.FP, Op1Src: instruction.Op1SrcImm, Opcode: instruction.AssertEq}, 5)
	a.ret()
	a.attrs = []program.Attribute{{Name: "error_message", StartPC: 0, EndPC: 2, Value: "bad frame"}}
	//
	_, err := Run(context.Background(), a.build(t), DefaultConfig())
	assert.ErrorIs(t, err, vm.ErrAssertEqFailed)
	//
	var exception *vm.Exception
	require.True(t, errors.As(err, &exception))
	assert.Equal(t, "bad frame", exception.Attribute)
}

func Test_Runner_ProofMode(t *testing.T) {
	config := DefaultConfig()
	config.ProofMode = true
	//
	prog := proof(t)
	res, err := Run(context.Background(), prog, config)
	require.NoError(t, err)
	// Three pushes, padded to four steps by looping at __end__.
	assert.Equal(t, uint64(4), res.Resources.Steps)
	require.Len(t, res.Relocated.Trace, 4)
	assert.Equal(t, uint64(1+6), res.Relocated.Trace[3].PC)
	// Execution segment: two prefix cells then three values, padded to eight.
	sizes := res.Runner.VM.Segments.ComputeEffectiveSizes()
	assert.Equal(t, uint64(len(prog.Data)), sizes[0])
	assert.Equal(t, uint64(8), sizes[1])
	// Entry frame
	first := res.Relocated.Trace[0]
	execBase := 1 + uint64(len(prog.Data))
	assert.Equal(t, execBase+2, first.AP)
	assert.Equal(t, execBase+2, first.FP)
}

func Test_Runner_ProofModeVersusNormal(t *testing.T) {
	prog := entry(t)
	proofConfig := DefaultConfig()
	proofConfig.ProofMode = true
	// call, three pushes and ret reach __end__, then loop until eight steps.
	proofRes, err := Run(context.Background(), prog, proofConfig)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), proofRes.Resources.Steps)
	assert.Equal(t, uint64(1+2), proofRes.Relocated.Trace[7].PC)
	// Execution segment: prefix, saved frame and three values, padded.
	proofSizes := proofRes.Runner.VM.Segments.ComputeEffectiveSizes()
	assert.Equal(t, uint64(8), proofSizes[1])
	// main is entered directly, and returns to the end segment.
	normalRes, err := Run(context.Background(), prog, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), normalRes.Resources.Steps)
	//
	normalSizes := normalRes.Runner.VM.Segments.ComputeEffectiveSizes()
	assert.Equal(t, uint64(5), normalSizes[1])
	// No padding, and a smaller memory image.
	assert.Less(t, normalSizes[1], proofSizes[1])
	assert.Less(t, len(normalRes.Relocated.Memory), len(proofRes.Relocated.Memory))
	assert.Len(t, normalRes.Relocated.Memory, len(prog.Data)+5)
	assert.Len(t, proofRes.Relocated.Memory, len(prog.Data)+7)
}

func Test_Runner_ProofModeWithoutLabels(t *testing.T) {
	config := DefaultConfig()
	config.ProofMode = true
	//
	_, err := Run(context.Background(), fibonacci(t), config)
	assert.ErrorIs(t, err, ErrMissingProofLabels)
}

func Test_Runner_MissingMain(t *testing.T) {
	_, err := Run(context.Background(), proof(t), DefaultConfig())
	assert.ErrorIs(t, err, ErrMissingMain)
}

func Test_Runner_StepLimit(t *testing.T) {
	config := DefaultConfig()
	config.MaxSteps = 10
	//
	_, err := Run(context.Background(), fibonacci(t), config)
	assert.ErrorIs(t, err, ErrStepLimit)
}

func Test_Runner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	//
	_, err := Run(ctx, fibonacci(t), DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Runner_StepByStep(t *testing.T) {
	runner, err := New(fibonacci(t), DefaultConfig())
	require.NoError(t, err)
	// Operations requiring a completed run
	assert.ErrorIs(t, runner.ReadReturnValues(), ErrRunNotEnded)
	_, err = runner.Relocate()
	assert.ErrorIs(t, err, ErrRunNotEnded)
	assert.ErrorIs(t, runner.RunUntilPC(context.Background(), memory.Relocatable{}), ErrNotInitialized)
	//
	end, err := runner.Initialize()
	require.NoError(t, err)
	require.NoError(t, runner.RunUntilPC(context.Background(), end))
	require.NoError(t, runner.EndRun())
	assert.ErrorIs(t, runner.EndRun(), ErrRunAlreadyEnded)
	require.NoError(t, runner.VerifySecureRunner())
}

func Test_Runner_RangeCheckUsage(t *testing.T) {
	res, err := Run(context.Background(), fibonacci(t), DefaultConfig())
	require.NoError(t, err)
	//
	lo, hi, ok := res.Runner.RangeCheckUsage()
	require.True(t, ok)
	assert.Equal(t, uint64(offsetBias-4), lo)
	assert.Equal(t, uint64(offsetBias+1), hi)
}

func Test_Runner_Batch(t *testing.T) {
	config := DefaultConfig()
	config.MaxSteps = 100
	//
	programs := []*program.Program{fibonacci(t), fibonacci(t), proof(t), fibonacci(t)}
	results, err := RunBatch(context.Background(), programs, config, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)
	//
	for i, r := range results {
		if i == 2 {
			assert.ErrorIs(t, r.Err, ErrMissingMain)
			continue
		}
		//
		require.NoError(t, r.Err)
		assert.Equal(t, uint64(36), r.Result.Resources.Steps)
		assert.Equal(t, results[0].Result.Relocated, r.Result.Relocated)
	}
}

func Test_Runner_PowerOfTwo(t *testing.T) {
	assert.False(t, isPowerOfTwo(0))
	assert.True(t, isPowerOfTwo(1))
	assert.False(t, isPowerOfTwo(6))
	assert.Equal(t, uint64(1), nextPowerOfTwo(0))
	assert.Equal(t, uint64(8), nextPowerOfTwo(5))
	assert.Equal(t, uint64(8), nextPowerOfTwo(8))
}
