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
package hint

import (
	"errors"
	"fmt"
	"testing"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm"
	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/program"
	"github.com/consensys/go-cairovm/pkg/vm/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness holds a machine whose frame starts at fp, with ap ten cells further
// on.  Variable i of a hint lives at [fp + i].
type harness struct {
	t       *testing.T
	machine *vm.VirtualMachine
	proc    *Processor
	scopes  *scope.Stack
}

func newHarness(t *testing.T) *harness {
	machine, err := vm.New(vm.DefaultOptions())
	require.NoError(t, err)
	//
	pc := machine.Segments.Add()
	exec := machine.Segments.Add()
	machine.Context = vm.RunContext{PC: pc, AP: exec.AddUint(10), FP: exec}
	//
	return &harness{t, machine, NewProcessor(), scope.NewStack()}
}

// fp returns the address of [fp + offset].
func (h *harness) fp(offset uint64) memory.Relocatable {
	return h.machine.Context.FP.AddUint(offset)
}

func (h *harness) write(offset uint64, value memory.Value) {
	require.NoError(h.t, h.machine.Memory().Insert(h.fp(offset), value))
}

func (h *harness) read(addr memory.Relocatable) uint64 {
	f, err := h.machine.Memory().GetFelt(addr)
	require.NoError(h.t, err)
	//
	return f.Uint64()
}

// compile a hint whose variables are the given names, allocated at [fp],
// [fp + 1], and so on.
func (h *harness) compile(code string, names ...string) *Hint {
	refs := make(map[string]string)
	//
	for i, name := range names {
		refs[name] = fmt.Sprintf("[cast(fp + %d, felt*)]", i)
	}
	//
	return h.compileRefs(code, refs, program.ApTracking{})
}

func (h *harness) compileRefs(code string, refs map[string]string, tracking program.ApTracking) *Hint {
	ids := make(map[string]reference)
	//
	for name, text := range refs {
		expr, err := program.ParseExpression(text)
		require.NoError(h.t, err)
		//
		ids[name] = reference{expr, program.ApTracking{Group: tracking.Group}}
	}
	//
	fn, ok := h.proc.funcs[code]
	require.True(h.t, ok, code)
	//
	return &Hint{Code: code, fn: fn, ids: ids, tracking: tracking}
}

func (h *harness) exec(hint *Hint) error {
	return h.proc.Execute(h.machine, hint, h.scopes, nil)
}

func Test_Hint_AddSegment(t *testing.T) {
	h := newHarness(t)
	before := h.machine.Segments.NumSegments()
	//
	require.NoError(t, h.exec(h.compile(AddSegment)))
	//
	addr, err := h.machine.Memory().GetAddress(h.machine.Context.AP)
	require.NoError(t, err)
	assert.Equal(t, memory.NewRelocatable(before, 0), addr)
}

func Test_Hint_IsNN(t *testing.T) {
	tests := []struct {
		a    int64
		flag uint64
	}{
		{0, 0}, {5, 0}, {-1, 1},
	}
	//
	for _, test := range tests {
		h := newHarness(t)
		h.write(0, memory.FeltValue(stark252.FromInt64(test.a)))
		require.NoError(t, h.exec(h.compile(IsNN, "a")))
		assert.Equal(t, test.flag, h.read(h.machine.Context.AP), "a = %d", test.a)
	}
}

func Test_Hint_IsNNOutOfRange(t *testing.T) {
	h := newHarness(t)
	// -a - 1 = 0 for a = -1
	h.write(0, memory.FeltValue(stark252.FromInt64(-1)))
	require.NoError(t, h.exec(h.compile(IsNNOutOfRange, "a")))
	assert.Equal(t, uint64(0), h.read(h.machine.Context.AP))
	//
	h = newHarness(t)
	h.write(0, memory.Uint64Value(1))
	require.NoError(t, h.exec(h.compile(IsNNOutOfRange, "a")))
	assert.Equal(t, uint64(1), h.read(h.machine.Context.AP))
}

func Test_Hint_IsLeFelt(t *testing.T) {
	h := newHarness(t)
	h.write(0, memory.Uint64Value(3))
	h.write(1, memory.Uint64Value(7))
	require.NoError(t, h.exec(h.compile(IsLeFelt, "a", "b")))
	assert.Equal(t, uint64(0), h.read(h.machine.Context.AP))
}

func Test_Hint_AssertNN(t *testing.T) {
	h := newHarness(t)
	h.write(0, memory.Uint64Value(12))
	assert.NoError(t, h.exec(h.compile(AssertNN, "a")))
	//
	h = newHarness(t)
	h.write(0, memory.FeltValue(stark252.FromInt64(-12)))
	err := h.exec(h.compile(AssertNN, "a"))
	assert.ErrorIs(t, err, ErrValueOutOfRange)
	//
	var herr *Error
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, AssertNN, herr.Code)
}

func Test_Hint_AssertNotZero(t *testing.T) {
	h := newHarness(t)
	h.write(0, memory.Uint64Value(0))
	assert.ErrorIs(t, h.exec(h.compile(AssertNotZero, "value")), ErrAssertionFailed)
}

func Test_Hint_AssertNotEqual(t *testing.T) {
	h := newHarness(t)
	h.write(0, memory.Uint64Value(4))
	h.write(1, memory.Uint64Value(5))
	assert.NoError(t, h.exec(h.compile(AssertNotEqual, "a", "b")))
	//
	h = newHarness(t)
	h.write(0, memory.Uint64Value(4))
	h.write(1, memory.Uint64Value(4))
	assert.ErrorIs(t, h.exec(h.compile(AssertNotEqual, "a", "b")), ErrAssertionFailed)
	// Values of different kinds cannot be compared.
	h = newHarness(t)
	h.write(0, memory.AddressValue(h.fp(0)))
	h.write(1, memory.Uint64Value(4))
	assert.ErrorIs(t, h.exec(h.compile(AssertNotEqual, "a", "b")), ErrAssertionFailed)
}

func Test_Hint_UnsignedDivRem(t *testing.T) {
	h := newHarness(t)
	h.write(0, memory.Uint64Value(17))
	h.write(1, memory.Uint64Value(5))
	require.NoError(t, h.exec(h.compile(UnsignedDivRem, "value", "div", "q", "r")))
	assert.Equal(t, uint64(3), h.read(h.fp(2)))
	assert.Equal(t, uint64(2), h.read(h.fp(3)))
	//
	h = newHarness(t)
	h.write(0, memory.Uint64Value(17))
	h.write(1, memory.Uint64Value(0))
	assert.ErrorIs(t, h.exec(h.compile(UnsignedDivRem, "value", "div", "q", "r")), ErrValueOutOfRange)
}

func Test_Hint_Sqrt(t *testing.T) {
	h := newHarness(t)
	h.write(0, memory.Uint64Value(17))
	require.NoError(t, h.exec(h.compile(Sqrt, "value", "root")))
	assert.Equal(t, uint64(4), h.read(h.fp(1)))
	//
	h = newHarness(t)
	h.write(0, memory.FeltValue(stark252.FromInt64(-1)))
	assert.ErrorIs(t, h.exec(h.compile(Sqrt, "value", "root")), ErrValueOutOfRange)
}

func Test_Hint_MemcpyLoop(t *testing.T) {
	var (
		h        = newHarness(t)
		tracking = program.ApTracking{Group: 1}
		enter    = h.compile(MemcpyEnter, "len")
		refs     = map[string]string{"continue_copying": "[cast(ap + (-1), felt*)]"}
	)
	//
	h.write(0, memory.Uint64Value(2))
	require.NoError(t, h.exec(enter))
	assert.Equal(t, uint(2), h.scopes.Depth())
	// Each iteration writes its flag to a fresh [ap - 1].
	for i, flag := range []uint64{1, 0} {
		cell := h.fp(10 + uint64(i))
		h.machine.Context.AP = cell.AddUint(1)
		require.NoError(t, h.exec(h.compileRefs(MemcpyContinue, refs, tracking)))
		assert.Equal(t, flag, h.read(cell))
	}
	//
	require.NoError(t, h.exec(h.compile(VMExitScope)))
	assert.ErrorIs(t, h.exec(h.compile(VMExitScope)), ErrExitMainScope)
}

func Test_Hint_ScopeVariableMissing(t *testing.T) {
	h := newHarness(t)
	h.write(0, memory.Uint64Value(0))
	// No enclosing memset scope
	assert.ErrorIs(t, h.exec(h.compile(MemsetContinue, "continue_loop")), ErrVariableNotInScope)
}

// array writes a list of keys into a new segment, storing its pointer at
// [fp].
func (h *harness) array(elmSize uint64, keys ...uint64) memory.Relocatable {
	base := h.machine.Segments.Add()
	//
	for i, k := range keys {
		require.NoError(h.t, h.machine.Memory().Insert(base.AddUint(uint64(i)*elmSize), memory.Uint64Value(k)))
	}
	//
	h.write(0, memory.AddressValue(base))
	//
	return base
}

func Test_Hint_FindElement(t *testing.T) {
	names := []string{"array_ptr", "elm_size", "n_elms", "key", "index"}
	//
	h := newHarness(t)
	h.array(2, 10, 20, 30)
	h.write(1, memory.Uint64Value(2))
	h.write(2, memory.Uint64Value(3))
	h.write(3, memory.Uint64Value(30))
	require.NoError(t, h.exec(h.compile(FindElement, names...)))
	assert.Equal(t, uint64(2), h.read(h.fp(4)))
	// Absent key
	h = newHarness(t)
	h.array(1, 10, 20, 30)
	h.write(1, memory.Uint64Value(1))
	h.write(2, memory.Uint64Value(3))
	h.write(3, memory.Uint64Value(25))
	assert.ErrorIs(t, h.exec(h.compile(FindElement, names...)), ErrKeyNotFound)
	// Index supplied through the scope
	h = newHarness(t)
	h.array(1, 10, 20, 30)
	h.write(1, memory.Uint64Value(1))
	h.write(2, memory.Uint64Value(3))
	h.write(3, memory.Uint64Value(20))
	h.scopes.Set(findElementIndex, scope.Uint(1))
	require.NoError(t, h.exec(h.compile(FindElement, names...)))
	assert.Equal(t, uint64(1), h.read(h.fp(4)))
	assert.False(t, h.scopes.Has(findElementIndex))
	// Bounded search
	h = newHarness(t)
	h.array(1, 10, 20, 30)
	h.write(1, memory.Uint64Value(1))
	h.write(2, memory.Uint64Value(3))
	h.write(3, memory.Uint64Value(20))
	h.scopes.Set(findElementMaxSize, scope.Uint(2))
	assert.ErrorIs(t, h.exec(h.compile(FindElement, names...)), ErrValueOutOfRange)
}

func Test_Hint_SearchSortedLower(t *testing.T) {
	names := []string{"array_ptr", "elm_size", "n_elms", "key", "index"}
	tests := []struct {
		key   uint64
		index uint64
	}{
		{5, 0}, {20, 1}, {25, 2}, {31, 3},
	}
	//
	for _, test := range tests {
		h := newHarness(t)
		h.array(1, 10, 20, 30)
		h.write(1, memory.Uint64Value(1))
		h.write(2, memory.Uint64Value(3))
		h.write(3, memory.Uint64Value(test.key))
		require.NoError(t, h.exec(h.compile(SearchSortedLower, names...)))
		assert.Equal(t, test.index, h.read(h.fp(4)), "key %d", test.key)
	}
}

func Test_Hint_VerifyEcdsaSignature(t *testing.T) {
	h := newHarness(t)
	ecdsa := builtin.NewEcdsaRunner(2048)
	ecdsa.InitializeSegments(h.machine.Segments)
	h.machine.AddBuiltin(ecdsa)
	//
	h.write(0, memory.AddressValue(ecdsa.Base()))
	h.write(1, memory.Uint64Value(7))
	h.write(2, memory.Uint64Value(11))
	//
	refs := map[string]string{
		"ecdsa_ptr":   "[cast(fp, starkware.cairo.common.cairo_builtins.SignatureBuiltin**)]",
		"signature_r": "[cast(fp + 1, felt*)]",
		"signature_s": "[cast(fp + 2, felt*)]",
	}
	require.NoError(t, h.exec(h.compileRefs(VerifyEcdsaSignature, refs, program.ApTracking{})))
	// Without the builtin
	h = newHarness(t)
	h.write(0, memory.AddressValue(h.fp(0)))
	h.write(1, memory.Uint64Value(7))
	h.write(2, memory.Uint64Value(11))
	assert.ErrorIs(t, h.exec(h.compileRefs(VerifyEcdsaSignature, refs, program.ApTracking{})),
		builtin.ErrBuiltinNotInLayout)
}

func Test_Hint_ApTracking(t *testing.T) {
	h := newHarness(t)
	// x was defined at [ap] when the group offset was 0; ap has since advanced
	// by two.
	h.machine.Context.AP = h.machine.Context.FP.AddUint(2)
	h.write(0, memory.Uint64Value(42))
	//
	ids := &Ids{
		refs: map[string]reference{
			"x": {mustParse(t, "[cast(ap, felt*)]"), program.ApTracking{Group: 3, Offset: 0}},
			"y": {mustParse(t, "[cast(ap, felt*)]"), program.ApTracking{Group: 2, Offset: 0}},
		},
		tracking: program.ApTracking{Group: 3, Offset: 2},
		machine:  h.machine,
	}
	x, err := ids.GetFelt("x")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), x.Uint64())
	//
	_, err = ids.Get("y")
	assert.ErrorIs(t, err, ErrInvalidApTracking)
	//
	_, err = ids.Get("z")
	assert.ErrorIs(t, err, ErrUnknownIdentifier)
}

func Test_Hint_CompileUnknown(t *testing.T) {
	proc := NewProcessor()
	_, err := proc.Compile(&program.Program{}, 3, program.HintParams{Code: "print('hello')"})
	//
	assert.ErrorIs(t, err, ErrUnknownHint)
	assert.False(t, proc.Supports("print('hello')"))
	assert.True(t, proc.Supports(AddSegment+"\n"))
}

func Test_Hint_Register(t *testing.T) {
	h := newHarness(t)
	h.proc.Register("ids.x = 9", func(ctx *Context) error {
		return ctx.Ids.SetFelt("x", stark252.New(9))
	})
	//
	require.NoError(t, h.exec(h.compile("ids.x = 9", "x")))
	assert.Equal(t, uint64(9), h.read(h.fp(0)))
}

func mustParse(t *testing.T, text string) program.Expression {
	expr, err := program.ParseExpression(text)
	require.NoError(t, err)
	//
	return expr
}
