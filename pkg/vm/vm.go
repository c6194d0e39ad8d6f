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
	"fmt"

	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/consensys/go-cairovm/pkg/vm/instruction"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/trace"
)

// State describes whether a machine is executing, has finished, or has failed.
type State uint8

const (
	// Running machines can be stepped.
	Running State = iota
	// Stopped machines reached their end pc.
	Stopped
	// Faulted machines encountered an error.
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	//
	return "faulted"
}

// RunContext holds the three registers of the machine.
type RunContext struct {
	PC memory.Relocatable
	AP memory.Relocatable
	FP memory.Relocatable
}

// Base returns the value of a given base register.
func (c *RunContext) Base(reg instruction.Register) memory.Relocatable {
	if reg == instruction.FP {
		return c.FP
	}
	//
	return c.AP
}

// HintExecutor runs any hints attached to the current pc, immediately before
// the instruction at that pc is executed.
type HintExecutor interface {
	ExecuteHints(vm *VirtualMachine) error
}

// Options configures a virtual machine.
type Options struct {
	// TraceEnabled determines whether register states are recorded.
	TraceEnabled bool
	// DecodeCacheSize is the number of decoded instructions retained (zero
	// disables caching).
	DecodeCacheSize int
}

// DefaultOptions returns the options used unless otherwise configured.
func DefaultOptions() Options {
	return Options{TraceEnabled: true, DecodeCacheSize: instruction.DefaultCacheSize}
}

// VirtualMachine executes Cairo instructions over a segmented, write-once
// memory.  Each step decodes the instruction at pc, runs its hints, resolves
// (or deduces) its operands, checks its assertions and updates the registers.
type VirtualMachine struct {
	// Registers
	Context RunContext
	// Memory segments
	Segments *memory.Segments
	// Builtins, in program order
	builtins []builtin.Runner
	// Builtins indexed by segment
	owners      map[int]builtin.Runner
	decoder     *instruction.Decoder
	trace       []trace.Entry
	traceOn     bool
	currentStep uint64
	state       State
}

// New constructs a machine with empty memory.
func New(opts Options) (*VirtualMachine, error) {
	decoder, err := instruction.NewDecoder(opts.DecodeCacheSize)
	if err != nil {
		return nil, err
	}
	//
	return &VirtualMachine{
		Segments: memory.NewSegments(),
		owners:   make(map[int]builtin.Runner),
		decoder:  decoder,
		traceOn:  opts.TraceEnabled,
	}, nil
}

// Memory returns the memory of this machine.
func (p *VirtualMachine) Memory() *memory.Memory {
	return p.Segments.Memory
}

// AddBuiltin registers a builtin whose segment has already been initialised.
func (p *VirtualMachine) AddBuiltin(runner builtin.Runner) {
	p.builtins = append(p.builtins, runner)
	p.owners[runner.Base().Segment] = runner
}

// Builtins returns the builtins of this machine, in program order.
func (p *VirtualMachine) Builtins() []builtin.Runner {
	return p.builtins
}

// BuiltinFor returns the builtin owning a given segment, if any.
func (p *VirtualMachine) BuiltinFor(segment int) (builtin.Runner, bool) {
	r, ok := p.owners[segment]
	return r, ok
}

// State returns the execution state of this machine.
func (p *VirtualMachine) State() State {
	return p.state
}

// Stop marks this machine as having finished successfully.
func (p *VirtualMachine) Stop() {
	if p.state == Running {
		p.state = Stopped
	}
}

// CurrentStep returns the number of steps executed so far.
func (p *VirtualMachine) CurrentStep() uint64 {
	return p.currentStep
}

// TraceEnabled checks whether this machine records a trace.
func (p *VirtualMachine) TraceEnabled() bool {
	return p.traceOn
}

// Trace returns the register states recorded so far, one per step.
func (p *VirtualMachine) Trace() []trace.Entry {
	return p.trace
}

// Step executes a single instruction.  Any failure leaves the machine faulted,
// and is reported as an Exception.
func (p *VirtualMachine) Step(hints HintExecutor) error {
	var (
		pc   = p.Context.PC
		word = p.instructionWord()
	)
	//
	if p.state != Running {
		return &Exception{PC: pc, Instruction: word, Err: ErrNotRunning}
	}
	// Hints run before decoding, but failures still identify the instruction.
	if hints != nil {
		if err := hints.ExecuteHints(p); err != nil {
			return p.fault(pc, word, err)
		}
	}
	//
	insn, word, err := p.decode()
	if err != nil {
		return p.fault(pc, word, err)
	} else if err = p.execute(&insn); err != nil {
		return p.fault(pc, word, err)
	}
	//
	return nil
}

// instructionWord returns the word at pc, or zero if it is unknown or does
// not fit in 64 bits.
func (p *VirtualMachine) instructionWord() uint64 {
	if v, ok := p.Memory().Lookup(p.Context.PC); ok {
		if f, ok := v.Felt(); ok && f.IsUint64() {
			return f.Uint64()
		}
	}
	//
	return 0
}

func (p *VirtualMachine) fault(pc memory.Relocatable, word uint64, err error) error {
	p.state = Faulted
	//
	return &Exception{PC: pc, Instruction: word, Err: err}
}

func (p *VirtualMachine) decode() (instruction.Instruction, uint64, error) {
	pc := p.Context.PC
	v, ok := p.Memory().Lookup(pc)
	//
	if !ok {
		return instruction.Instruction{}, 0, fmt.Errorf("%w %s", ErrUnknownPC, pc.String())
	}
	//
	f, ok := v.Felt()
	if !ok {
		return instruction.Instruction{}, 0, fmt.Errorf("%w: instruction at %s is an address", ErrUnknownPC,
			pc.String())
	}
	//
	insn, err := p.decoder.Decode(f)
	//
	return insn, f.Uint64(), err
}

// execute a decoded instruction at the current pc.
func (p *VirtualMachine) execute(insn *instruction.Instruction) error {
	ops, err := p.computeOperands(insn)
	if err != nil {
		return err
	} else if err = p.checkOpcode(insn, &ops); err != nil {
		return err
	} else if err = p.writeDeduced(&ops); err != nil {
		return err
	}
	//
	if p.traceOn {
		p.trace = append(p.trace, trace.Entry{PC: p.Context.PC, AP: p.Context.AP, FP: p.Context.FP})
	}
	//
	if err = p.updateRegisters(insn, &ops); err != nil {
		return err
	}
	//
	p.currentStep++
	//
	return nil
}

// VerifyAutoDeductions checks that every cell of every builtin segment which
// the builtin can deduce holds the deduced value.
func (p *VirtualMachine) VerifyAutoDeductions() error {
	mem := p.Memory()
	//
	for _, r := range p.builtins {
		var err error
		//
		mem.ForEach(r.Base().Segment, func(offset uint64, value memory.Value) {
			if err != nil {
				return
			}
			//
			addr := r.Base().AddUint(offset)
			deduced, ok, derr := r.Deduce(addr, mem)
			//
			if derr != nil {
				err = derr
			} else if ok && !deduced.Equal(value) {
				err = &builtin.Error{Kind: builtin.ErrInconsistentAutoDeduction, Builtin: r.Name(), Address: addr,
					Detail: fmt.Sprintf("holds %s, deduced %s", value.String(), deduced.String())}
			}
		})
		//
		if err != nil {
			return err
		}
	}
	//
	return nil
}
