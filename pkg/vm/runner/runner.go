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
	"errors"
	"fmt"
	"math/bits"

	"github.com/consensys/go-cairovm/pkg/vm"
	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/consensys/go-cairovm/pkg/vm/hint"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/program"
	"github.com/consensys/go-cairovm/pkg/vm/scope"
	"github.com/consensys/go-cairovm/pkg/vm/trace"
	log "github.com/sirupsen/logrus"
)

// CairoRunner executes a single program on its own machine.  It is
// responsible for laying out memory, running hints, and post-processing the
// execution (verification and relocation).
type CairoRunner struct {
	// Machine executing the program.
	VM      *vm.VirtualMachine
	program *program.Program
	config  Config
	// Hints compiled against the program, indexed by pc offset.
	hints     map[uint64][]hint.Hint
	processor *hint.Processor
	scopes    *scope.Stack
	// Base of the program and execution segments.
	programBase   memory.Relocatable
	executionBase memory.Relocatable
	// Address at which execution completes.
	finalPC     memory.Relocatable
	initialized bool
	runEnded    bool
	relocated   *Relocated
}

// Relocated holds the flat (relocated) view of an execution.
type Relocated struct {
	// Relocated register trace (empty if tracing was disabled).
	Trace []trace.RelocatedEntry
	// Relocated memory, in increasing address order.
	Memory []memory.Cell
}

// New constructs a runner for a given program, using the standard hints.
func New(prog *program.Program, config Config) (*CairoRunner, error) {
	return NewWithProcessor(prog, config, hint.NewProcessor())
}

// NewWithProcessor constructs a runner for a given program, using a given hint
// processor.  Every hint of the program must be supported.
func NewWithProcessor(prog *program.Program, config Config, processor *hint.Processor) (*CairoRunner, error) {
	machine, err := vm.New(config.vmOptions())
	if err != nil {
		return nil, err
	}
	//
	hints := make(map[uint64][]hint.Hint)
	//
	for _, pc := range prog.HintPCs() {
		for _, params := range prog.Hints[pc] {
			h, err := processor.Compile(prog, pc, params)
			if err != nil {
				return nil, err
			}
			//
			hints[pc] = append(hints[pc], h)
		}
	}
	//
	return &CairoRunner{
		VM:        machine,
		program:   prog,
		config:    config,
		hints:     hints,
		processor: processor,
		scopes:    scope.NewStack(),
	}, nil
}

// Program returns the program being executed.
func (p *CairoRunner) Program() *program.Program {
	return p.program
}

// Scopes returns the execution scopes visible to hints.
func (p *CairoRunner) Scopes() *scope.Stack {
	return p.scopes
}

// ProgramBase returns the address at which the program is loaded.
func (p *CairoRunner) ProgramBase() memory.Relocatable {
	return p.programBase
}

// ExecutionBase returns the base of the execution segment.
func (p *CairoRunner) ExecutionBase() memory.Relocatable {
	return p.executionBase
}

// Initialize lays out memory for execution, returning the pc at which
// execution completes.  The program and execution segments are created first,
// followed by one segment per builtin (in program order).  In proof mode, the
// program is entered at __start__ and completes at __end__; otherwise, main
// is called with the builtin pointers as arguments and returns to a dedicated
// end segment.
func (p *CairoRunner) Initialize() (memory.Relocatable, error) {
	var (
		segments = p.VM.Segments
		stack    []memory.Value
		pc       uint64
		err      error
	)
	//
	if p.initialized {
		return p.finalPC, nil
	}
	//
	runners, err := p.config.Layout.Runners(p.program.Builtins)
	if err != nil {
		return p.finalPC, err
	}
	//
	p.programBase = segments.Add()
	p.executionBase = segments.Add()
	//
	for _, r := range runners {
		r.InitializeSegments(segments)
		p.VM.AddBuiltin(r)
		stack = append(stack, r.InitialStack()...)
	}
	//
	if _, err = segments.Memory.Load(p.programBase, p.program.DataValues()); err != nil {
		return p.finalPC, err
	}
	//
	if p.config.ProofMode {
		start, sok := p.program.Start()
		end, eok := p.program.End()
		//
		if !sok || !eok {
			return p.finalPC, ErrMissingProofLabels
		}
		//
		prefix := []memory.Value{memory.AddressValue(p.executionBase.AddUint(2)), memory.Uint64Value(0)}
		stack = append(prefix, stack...)
		pc, p.finalPC = start, p.programBase.AddUint(end)
		// Registers point just past the two prefix cells.
		p.VM.Context.AP = p.executionBase.AddUint(2)
	} else {
		main, ok := p.program.Main()
		if !ok {
			return p.finalPC, ErrMissingMain
		}
		//
		returnFP := segments.Add()
		end := segments.Add()
		stack = append(stack, memory.AddressValue(returnFP), memory.AddressValue(end))
		pc, p.finalPC = main, end
		p.VM.Context.AP = p.executionBase.AddUint(uint64(len(stack)))
	}
	//
	if _, err = segments.Memory.Load(p.executionBase, stack); err != nil {
		return p.finalPC, err
	}
	//
	p.VM.Context.FP = p.VM.Context.AP
	p.VM.Context.PC = p.programBase.AddUint(pc)
	//
	for _, r := range runners {
		if err = builtin.AddValidationRule(r, segments.Memory); err != nil {
			return p.finalPC, err
		}
	}
	//
	p.initialized = true
	//
	log.Debugf("initialised %d segments (%d builtins), pc=%s ap=%s end=%s", segments.NumSegments(), len(runners),
		p.VM.Context.PC.String(), p.VM.Context.AP.String(), p.finalPC.String())
	//
	return p.finalPC, nil
}

// ExecuteHints implementation for the vm.HintExecutor interface.
func (p *CairoRunner) ExecuteHints(machine *vm.VirtualMachine) error {
	pc := machine.Context.PC
	//
	if pc.Segment != p.programBase.Segment {
		return nil
	}
	//
	hints := p.hints[pc.Offset]
	//
	for i := range hints {
		if err := p.processor.Execute(machine, &hints[i], p.scopes, p.program.Constants); err != nil {
			return err
		}
	}
	//
	return nil
}

// RunUntilPC executes until pc reaches a given address.  Cancellation of the
// context and the step budget are checked between steps.
func (p *CairoRunner) RunUntilPC(ctx context.Context, end memory.Relocatable) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	//
	for p.VM.Context.PC != end {
		if err := p.step(ctx); err != nil {
			return err
		}
	}
	//
	log.Debugf("reached %s after %d steps", end.String(), p.VM.CurrentStep())
	//
	return nil
}

// RunUntilNextPowerOfTwo continues execution until the number of steps is a
// power of two.  This is only meaningful for proof mode programs, which loop
// forever at __end__.
func (p *CairoRunner) RunUntilNextPowerOfTwo(ctx context.Context) error {
	for !isPowerOfTwo(p.VM.CurrentStep()) {
		if err := p.step(ctx); err != nil {
			return err
		}
	}
	//
	return nil
}

func (p *CairoRunner) step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	} else if p.config.MaxSteps != 0 && p.VM.CurrentStep() >= p.config.MaxSteps {
		return fmt.Errorf("%w (%d)", ErrStepLimit, p.config.MaxSteps)
	}
	//
	err := p.VM.Step(p)
	//
	var exception *vm.Exception
	// Attach any error message the program provides for this pc.
	if errors.As(err, &exception) && exception.PC.Segment == p.programBase.Segment {
		if msg, ok := p.program.ErrorMessage(exception.PC.Offset); ok {
			exception.Attribute = msg
		}
	}
	//
	return err
}

// EndRun completes execution, verifying builtin deductions and performing any
// deferred builtin validation.  In proof mode, builtin usage is also checked
// against the capacity implied by the number of steps.
func (p *CairoRunner) EndRun() error {
	if p.runEnded {
		return ErrRunAlreadyEnded
	} else if err := p.VM.VerifyAutoDeductions(); err != nil {
		return err
	}
	//
	for _, r := range p.VM.Builtins() {
		if err := r.FinalizeRun(p.VM.Memory()); err != nil {
			return err
		}
	}
	//
	if p.config.ProofMode {
		if err := p.checkUsedCells(); err != nil {
			return err
		}
	}
	//
	p.VM.Stop()
	p.runEnded = true
	//
	return nil
}

func (p *CairoRunner) checkUsedCells() error {
	for _, r := range p.VM.Builtins() {
		if _, err := r.AllocatedCells(p.VM.Segments, p.VM.CurrentStep()); err != nil {
			return err
		}
	}
	//
	return nil
}

// ReadReturnValues reads the builtin pointers returned by the program, which
// are found immediately below the final ap (in reverse program order).  Each
// must match the usage of the corresponding builtin segment.
func (p *CairoRunner) ReadReturnValues() error {
	if !p.runEnded {
		return ErrRunNotEnded
	}
	//
	var (
		pointer  = p.VM.Context.AP
		builtins = p.VM.Builtins()
		err      error
	)
	//
	for i := len(builtins) - 1; i >= 0; i-- {
		if pointer, err = builtins[i].FinalStack(p.VM.Segments, pointer); err != nil {
			return err
		}
	}
	//
	return nil
}

// VerifySecureRunner checks that the run stayed within its segments, did not
// extend the program segment, and used every builtin consistently.
func (p *CairoRunner) VerifySecureRunner() error {
	var (
		segments = p.VM.Segments
		mem      = segments.Memory
		size     = uint64(len(p.program.Data))
		failure  error
	)
	//
	if !p.runEnded {
		return ErrRunNotEnded
	}
	//
	for seg := range segments.NumSegments() {
		limit := segments.SegmentSize(seg)
		//
		if seg == p.programBase.Segment {
			limit = size
		}
		//
		mem.ForEach(seg, func(offset uint64, _ memory.Value) {
			if failure == nil && offset >= limit {
				failure = fmt.Errorf("%w: access to %s out of bounds (size %d)", ErrSecurityCheck,
					memory.NewRelocatable(seg, offset).String(), limit)
			}
		})
		//
		if failure != nil {
			return failure
		}
	}
	//
	for _, r := range p.VM.Builtins() {
		if err := r.SecurityCheck(mem); err != nil {
			return fmt.Errorf("%w: %w", ErrSecurityCheck, err)
		}
	}
	//
	return p.VM.VerifyAutoDeductions()
}

// Relocate flattens memory and the trace into a single address space.  In
// proof mode, the execution segment is padded to the next power of two and
// each builtin segment is sized to its allocated capacity.
func (p *CairoRunner) Relocate() (*Relocated, error) {
	if !p.runEnded {
		return nil, ErrRunNotEnded
	} else if p.relocated != nil {
		return p.relocated, nil
	}
	//
	if p.config.ProofMode {
		if err := p.finalizeSegments(); err != nil {
			return nil, err
		}
	}
	//
	var (
		segments = p.VM.Segments
		table    = segments.RelocationTable()
		result   Relocated
		err      error
	)
	//
	if result.Memory, err = segments.RelocateMemory(table); err != nil {
		return nil, err
	} else if result.Trace, err = trace.Relocate(p.VM.Trace(), table); err != nil {
		return nil, err
	}
	//
	log.Debugf("relocated %d memory cells and %d trace entries", len(result.Memory), len(result.Trace))
	//
	p.relocated = &result
	//
	return p.relocated, nil
}

func (p *CairoRunner) finalizeSegments() error {
	var (
		segments = p.VM.Segments
		exec     = p.executionBase.Segment
	)
	//
	if err := segments.Finalize(p.programBase.Segment, uint64(len(p.program.Data))); err != nil {
		return err
	} else if err := segments.Finalize(exec, nextPowerOfTwo(segments.SegmentUsedSize(exec))); err != nil {
		return err
	}
	//
	for _, r := range p.VM.Builtins() {
		size, err := r.AllocatedCells(segments, p.VM.CurrentStep())
		if err != nil {
			return err
		} else if err = segments.Finalize(r.Base().Segment, size); err != nil {
			return err
		}
	}
	//
	return nil
}

// Output returns the values written to the output builtin (if used).
func (p *CairoRunner) Output() []memory.Value {
	for _, r := range p.VM.Builtins() {
		if out, ok := r.(*builtin.OutputRunner); ok {
			return out.Output(p.VM.Segments)
		}
	}
	//
	return nil
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	//
	return 1 << bits.Len64(n-1)
}
