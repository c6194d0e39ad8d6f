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
package builtin

import (
	"fmt"

	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// Names of the supported builtins, as they appear in program artifacts.
const (
	Output       = "output"
	Pedersen     = "pedersen"
	RangeCheck   = "range_check"
	RangeCheck96 = "range_check96"
	Ecdsa        = "ecdsa"
	Bitwise      = "bitwise"
	EcOp         = "ec_op"
)

// Runner represents a builtin: a memory segment whose cells are bound by a
// fixed relation.  Cells may be deduced by the builtin (outputs from inputs) or
// validated upon write.
type Runner interface {
	// Name of this builtin (e.g. "pedersen").
	Name() string
	// Base address of this builtin's segment.
	Base() memory.Relocatable
	// InitializeSegments creates the builtin's segment.
	InitializeSegments(segments *memory.Segments)
	// InitialStack returns the values pushed onto the stack for this builtin
	// when calling the entrypoint.
	InitialStack() []memory.Value
	// Ratio is the number of steps per builtin instance (zero if unbounded).
	Ratio() uint64
	// CellsPerInstance is the number of cells occupied by each instance.
	CellsPerInstance() uint64
	// InputCells is the number of input cells of each instance.
	InputCells() uint64
	// Deduce attempts to determine the value of a cell in this builtin's
	// segment.  This returns false if the cell cannot be deduced (e.g. because
	// it is an input, or its inputs are not yet known).
	Deduce(address memory.Relocatable, mem *memory.Memory) (memory.Value, bool, error)
	// UsedCells returns the number of cells used in this builtin's segment.
	UsedCells(segments *memory.Segments) uint64
	// UsedInstances returns the number of (possibly partial) instances used.
	UsedInstances(segments *memory.Segments) uint64
	// AllocatedCells returns the capacity of this builtin for a run of a given
	// number of steps, failing if usage exceeds it.
	AllocatedCells(segments *memory.Segments, steps uint64) (uint64, error)
	// FinalizeRun performs any validation deferred until the end of execution.
	FinalizeRun(mem *memory.Memory) error
	// SecurityCheck ensures every used instance has all of its input cells.
	SecurityCheck(mem *memory.Memory) error
	// FinalStack reads the stop pointer for this builtin from the cell
	// preceding a given stack pointer, returning the address of that cell.
	FinalStack(segments *memory.Segments, pointer memory.Relocatable) (memory.Relocatable, error)
	// StopPointer returns the stop pointer, once read.
	StopPointer() (memory.Relocatable, bool)
	// SetStopPointer records the stop pointer, which must lie in this
	// builtin's segment.
	SetStopPointer(stop memory.Relocatable) error
}

// AddValidationRule registers a builtin's write validation with memory, if it
// has any.
func AddValidationRule(runner Runner, mem *memory.Memory) error {
	if v, ok := runner.(memory.Validator); ok {
		return mem.AddValidator(runner.Base().Segment, v)
	}
	//
	return nil
}

// NewRunner constructs a builtin runner by name, using a given ratio.
func NewRunner(name string, ratio uint64) (Runner, error) {
	switch name {
	case Output:
		return NewOutputRunner(), nil
	case Pedersen:
		return NewPedersenRunner(ratio), nil
	case RangeCheck:
		return NewRangeCheckRunner(ratio, 8), nil
	case RangeCheck96:
		return NewRangeCheck96Runner(ratio), nil
	case Ecdsa:
		return NewEcdsaRunner(ratio), nil
	case Bitwise:
		return NewBitwiseRunner(ratio), nil
	case EcOp:
		return NewEcOpRunner(ratio), nil
	}
	//
	return nil, fmt.Errorf("unknown builtin %q", name)
}

// Instance returns the index of the instance containing a given address, and
// the offset of the address within that instance.
func Instance(runner Runner, address memory.Relocatable) (uint64, uint64) {
	n := runner.CellsPerInstance()
	return address.Offset / n, address.Offset % n
}

// Functionality common to all builtin runners.
type baseRunner struct {
	name             string
	ratio            uint64
	cellsPerInstance uint64
	inputCells       uint64
	base             memory.Relocatable
	stop             *memory.Relocatable
}

func (p *baseRunner) Name() string {
	return p.name
}

func (p *baseRunner) Base() memory.Relocatable {
	return p.base
}

func (p *baseRunner) InitializeSegments(segments *memory.Segments) {
	p.base = segments.Add()
}

func (p *baseRunner) InitialStack() []memory.Value {
	return []memory.Value{memory.AddressValue(p.base)}
}

func (p *baseRunner) Ratio() uint64 {
	return p.ratio
}

func (p *baseRunner) CellsPerInstance() uint64 {
	return p.cellsPerInstance
}

func (p *baseRunner) InputCells() uint64 {
	return p.inputCells
}

func (p *baseRunner) Deduce(memory.Relocatable, *memory.Memory) (memory.Value, bool, error) {
	return memory.Value{}, false, nil
}

func (p *baseRunner) UsedCells(segments *memory.Segments) uint64 {
	return segments.SegmentUsedSize(p.base.Segment)
}

func (p *baseRunner) UsedInstances(segments *memory.Segments) uint64 {
	used := p.UsedCells(segments)
	//
	return (used + p.cellsPerInstance - 1) / p.cellsPerInstance
}

func (p *baseRunner) AllocatedCells(segments *memory.Segments, steps uint64) (uint64, error) {
	used := p.UsedCells(segments)
	//
	if p.ratio == 0 {
		return used, nil
	}
	//
	allocated := (steps / p.ratio) * p.cellsPerInstance
	//
	if used > allocated {
		return allocated, newError(ErrInsufficientAllocatedCells, p.name, p.base, "used %d, allocated %d", used,
			allocated)
	}
	//
	return allocated, nil
}

func (p *baseRunner) FinalizeRun(*memory.Memory) error {
	return nil
}

func (p *baseRunner) SecurityCheck(mem *memory.Memory) error {
	var (
		written = make(map[uint64]bool)
		last    uint64
		found   bool
	)
	//
	mem.ForEach(p.base.Segment, func(offset uint64, _ memory.Value) {
		written[offset] = true
		last, found = offset, true
	})
	//
	if !found {
		return nil
	}
	//
	n := last/p.cellsPerInstance + 1
	//
	if n > uint64(len(written))/p.inputCells {
		return newError(ErrMissingInputCells, p.name, p.base, "%d instances, %d cells", n, len(written))
	}
	//
	for i := range n {
		for j := range p.inputCells {
			if offset := i*p.cellsPerInstance + j; !written[offset] {
				return newError(ErrMissingInputCells, p.name, p.base.AddUint(offset), "")
			}
		}
	}
	//
	return nil
}

func (p *baseRunner) FinalStack(segments *memory.Segments, pointer memory.Relocatable) (memory.Relocatable, error) {
	if pointer.Offset == 0 {
		return pointer, newError(ErrInvalidStopPointer, p.name, pointer, "no stack")
	}
	//
	addr := memory.NewRelocatable(pointer.Segment, pointer.Offset-1)
	stop, err := segments.Memory.GetAddress(addr)
	//
	if err != nil {
		return addr, newError(ErrInvalidStopPointer, p.name, addr, "%s", err.Error())
	} else if stop.Segment != p.base.Segment {
		return addr, newError(ErrInvalidStopPointer, p.name, stop, "wrong segment")
	} else if used := p.UsedCells(segments); stop.Offset != used {
		return addr, newError(ErrInvalidStopPointer, p.name, stop, "expected offset %d", used)
	}
	//
	return addr, p.SetStopPointer(stop)
}

func (p *baseRunner) SetStopPointer(stop memory.Relocatable) error {
	if stop.Segment != p.base.Segment {
		return newError(ErrInvalidStopPointer, p.name, stop, "wrong segment")
	}
	//
	p.stop = &stop
	//
	return nil
}

func (p *baseRunner) StopPointer() (memory.Relocatable, bool) {
	if p.stop == nil {
		return memory.Relocatable{}, false
	}
	//
	return *p.stop, true
}

// readInputs reads the n input cells of the instance containing a given
// address, returning false if any are unknown.
func (p *baseRunner) readInputs(address memory.Relocatable, mem *memory.Memory) ([]memory.Felt, bool, error) {
	var (
		start  = address.Offset - address.Offset%p.cellsPerInstance
		inputs = make([]memory.Felt, p.inputCells)
	)
	//
	for i := range p.inputCells {
		addr := memory.NewRelocatable(address.Segment, start+i)
		v, ok := mem.Lookup(addr)
		//
		if !ok {
			return nil, false, nil
		} else if f, ok := v.Felt(); !ok {
			return nil, false, newError(ErrNotAFelt, p.name, addr, "found %s", v.String())
		} else {
			inputs[i] = f
		}
	}
	//
	return inputs, true, nil
}
