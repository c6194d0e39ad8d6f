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
	"math/big"
	"strings"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm"
	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/program"
	"github.com/consensys/go-cairovm/pkg/vm/scope"
	log "github.com/sirupsen/logrus"
)

// Context provides a hint implementation with everything it may access.
type Context struct {
	// Machine on which the hint is executing.
	VM *vm.VirtualMachine
	// Cairo variables visible to the hint.
	Ids *Ids
	// Execution scopes.
	Scopes *scope.Stack
	// Program constants, by full name.
	Constants map[string]stark252.Element
}

// Memory returns the memory of the executing machine.
func (c *Context) Memory() *memory.Memory {
	return c.VM.Memory()
}

// Builtin returns the runner of a named builtin, if the program uses it.
func (c *Context) Builtin(name string) (builtin.Runner, bool) {
	for _, r := range c.VM.Builtins() {
		if r.Name() == name {
			return r, true
		}
	}
	//
	return nil, false
}

// RangeCheckBound returns the bound of the range check builtin, defaulting to
// 2^128 when the program does not use it.
func (c *Context) RangeCheckBound() *big.Int {
	if r, ok := c.Builtin(builtin.RangeCheck); ok {
		if rc, ok := r.(*builtin.RangeCheckRunner); ok {
			return rc.Bound()
		}
	}
	//
	return new(big.Int).Lsh(big.NewInt(1), 128)
}

// Func implements a hint.
type Func func(ctx *Context) error

// Hint is a hint compiled against the program to which it belongs.
type Hint struct {
	// Offset of the instruction to which the hint is attached.
	PC uint64
	// Source code of the hint.
	Code string
	fn   Func
	ids  map[string]reference
	// Ap tracking at the hint.
	tracking program.ApTracking
}

// Processor maps hint code to implementations.
type Processor struct {
	funcs map[string]Func
}

// NewProcessor constructs a processor with all the standard hints registered.
func NewProcessor() *Processor {
	p := &Processor{make(map[string]Func)}
	//
	for code, fn := range standardHints {
		p.Register(code, fn)
	}
	//
	return p
}

// Register an implementation for a given hint code, replacing any existing
// one.  Codes are matched exactly, ignoring surrounding whitespace.
func (p *Processor) Register(code string, fn Func) {
	p.funcs[strings.TrimSpace(code)] = fn
}

// Supports checks whether a given hint code has an implementation.
func (p *Processor) Supports(code string) bool {
	_, ok := p.funcs[strings.TrimSpace(code)]
	return ok
}

// Compile a hint attached to a given pc, resolving its code and the variables
// visible to it.
func (p *Processor) Compile(prog *program.Program, pc uint64, params program.HintParams) (Hint, error) {
	fn, ok := p.funcs[strings.TrimSpace(params.Code)]
	if !ok {
		return Hint{}, &Error{PC: memory.NewRelocatable(0, pc), Code: params.Code, Err: ErrUnknownHint}
	}
	//
	ids := make(map[string]reference, len(params.FlowTrackingData.ReferenceIds))
	//
	for fullName, id := range params.FlowTrackingData.ReferenceIds {
		if id < 0 || id >= len(prog.References) {
			return Hint{}, &Error{PC: memory.NewRelocatable(0, pc), Code: params.Code,
				Err: failf(ErrUnknownIdentifier, "reference %d of %s", id, fullName)}
		}
		//
		ref := &prog.References[id]
		expr, err := ref.Expression()
		// Unparseable references only matter if the hint uses them.
		if err != nil {
			log.Debugf("ignoring reference %s: %s", fullName, err)
			continue
		}
		//
		ids[shortName(fullName)] = reference{expr, ref.ApTrackingData}
	}
	//
	return Hint{pc, params.Code, fn, ids, params.FlowTrackingData.ApTracking}, nil
}

// Execute a compiled hint on a given machine.
func (p *Processor) Execute(machine *vm.VirtualMachine, hint *Hint, scopes *scope.Stack,
	constants map[string]stark252.Element) error {
	ctx := Context{
		VM:        machine,
		Ids:       &Ids{hint.ids, hint.tracking, machine},
		Scopes:    scopes,
		Constants: constants,
	}
	//
	if err := hint.fn(&ctx); err != nil {
		return &Error{PC: machine.Context.PC, Code: hint.Code, Err: err}
	}
	//
	return nil
}

// shortName strips the scope from a variable name, e.g. "__main__.main.x"
// becomes "x".
func shortName(fullName string) string {
	if i := strings.LastIndexByte(fullName, '.'); i >= 0 {
		return fullName[i+1:]
	}
	//
	return fullName
}
