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
package memory

// Validator checks writes to a given segment before they are committed.  This
// is how builtins enforce properties of the cells they own (e.g. range checks
// or signature existence).
type Validator interface {
	ValidateWrite(address Relocatable, value Value, mem *Memory) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(address Relocatable, value Value, mem *Memory) error

// ValidateWrite implementation for the Validator interface.
func (f ValidatorFunc) ValidateWrite(address Relocatable, value Value, mem *Memory) error {
	return f(address, value, mem)
}

type cell struct {
	value   Value
	written bool
}

// Memory is a write-once, segmented address space.  Each cell is either
// unknown or holds exactly one value which can never be changed.  Segments are
// created through a Segments manager.
type Memory struct {
	data       [][]cell
	validators map[int]Validator
	validated  map[Relocatable]struct{}
	// Number of cells written in each segment.
	written []uint64
}

// NewMemory constructs an empty memory (i.e. without any segments).
func NewMemory() *Memory {
	return &Memory{validators: make(map[int]Validator), validated: make(map[Relocatable]struct{})}
}

// NumSegments returns the number of segments which have been created.
func (p *Memory) NumSegments() int {
	return len(p.data)
}

func (p *Memory) addSegment() int {
	p.data = append(p.data, nil)
	p.written = append(p.written, 0)
	//
	return len(p.data) - 1
}

// Lookup returns the value at a given address, or false if the cell is
// unknown.
func (p *Memory) Lookup(address Relocatable) (Value, bool) {
	if address.Segment < 0 || address.Segment >= len(p.data) {
		return Value{}, false
	}
	//
	seg := p.data[address.Segment]
	//
	if address.Offset >= uint64(len(seg)) || !seg[address.Offset].written {
		return Value{}, false
	}
	//
	return seg[address.Offset].value, true
}

// IsWritten checks whether a given cell is known.
func (p *Memory) IsWritten(address Relocatable) bool {
	_, ok := p.Lookup(address)
	return ok
}

// IsValidated checks whether a given cell was accepted by the validator of its
// segment.
func (p *Memory) IsValidated(address Relocatable) bool {
	_, ok := p.validated[address]
	return ok
}

// Get returns the value at a given address, failing if it is unknown.
func (p *Memory) Get(address Relocatable) (Value, error) {
	if v, ok := p.Lookup(address); ok {
		return v, nil
	}
	//
	return Value{}, newError(ErrUnknownAddress, address, "")
}

// GetFelt returns the field element at a given address.
func (p *Memory) GetFelt(address Relocatable) (Felt, error) {
	v, err := p.Get(address)
	//
	if err != nil {
		return Felt{}, err
	} else if f, ok := v.Felt(); ok {
		return f, nil
	}
	//
	return Felt{}, newError(ErrNotFelt, address, "found %s", v.String())
}

// GetAddress returns the relocatable address at a given address.
func (p *Memory) GetAddress(address Relocatable) (Relocatable, error) {
	v, err := p.Get(address)
	//
	if err != nil {
		return Relocatable{}, err
	} else if r, ok := v.Address(); ok {
		return r, nil
	}
	//
	return Relocatable{}, newError(ErrNotRelocatable, address, "found %s", v.String())
}

// GetRange returns n consecutive values starting from a given address, all of
// which must be known.
func (p *Memory) GetRange(address Relocatable, n uint64) ([]Value, error) {
	values := make([]Value, n)
	//
	for i := range n {
		v, err := p.Get(address.AddUint(i))
		if err != nil {
			return nil, err
		}
		//
		values[i] = v
	}
	//
	return values, nil
}

// GetFeltRange returns n consecutive field elements starting from a given
// address.
func (p *Memory) GetFeltRange(address Relocatable, n uint64) ([]Felt, error) {
	values := make([]Felt, n)
	//
	for i := range n {
		v, err := p.GetFelt(address.AddUint(i))
		if err != nil {
			return nil, err
		}
		//
		values[i] = v
	}
	//
	return values, nil
}

// Insert writes a value at a given address.  Writing the same value twice is
// permitted, whilst writing a different value to a known cell is an error.  If
// a validator is registered for the segment, it must accept the value before
// the write is committed.
func (p *Memory) Insert(address Relocatable, value Value) error {
	if address.Segment < 0 || address.Segment >= len(p.data) {
		return newError(ErrUnknownSegment, address, "")
	} else if address.Offset >= maxSegmentOffset {
		return newError(ErrOffsetOverflow, address, "")
	}
	//
	seg := p.data[address.Segment]
	//
	if address.Offset < uint64(len(seg)) && seg[address.Offset].written {
		if existing := seg[address.Offset].value; !existing.Equal(value) {
			return newError(ErrWriteOnceConflict, address, "holds %s, cannot write %s", existing.String(),
				value.String())
		}
		//
		return nil
	}
	//
	if v, ok := p.validators[address.Segment]; ok {
		if err := v.ValidateWrite(address, value, p); err != nil {
			return err
		}
		//
		p.validated[address] = struct{}{}
	}
	//
	if address.Offset >= uint64(len(seg)) {
		n := address.Offset + 1
		// grow geometrically to amortise appends
		if uint64(cap(seg)) < n {
			nseg := make([]cell, n, max(n, 2*uint64(cap(seg))))
			copy(nseg, seg)
			seg = nseg
		} else {
			seg = seg[:n]
		}
	}
	//
	seg[address.Offset] = cell{value, true}
	p.data[address.Segment] = seg
	p.written[address.Segment]++
	//
	return nil
}

// Load writes a sequence of values to consecutive addresses starting from a
// given base, returning the address immediately following the last value.
func (p *Memory) Load(base Relocatable, values []Value) (Relocatable, error) {
	for i, v := range values {
		if err := p.Insert(base.AddUint(uint64(i)), v); err != nil {
			return base, err
		}
	}
	//
	return base.AddUint(uint64(len(values))), nil
}

// AddValidator registers a validator for a given segment.  Cells already
// written to the segment are checked immediately.
func (p *Memory) AddValidator(segment int, validator Validator) error {
	p.validators[segment] = validator
	//
	if segment < 0 || segment >= len(p.data) {
		return nil
	}
	//
	for i, c := range p.data[segment] {
		if c.written {
			addr := NewRelocatable(segment, uint64(i))
			if err := validator.ValidateWrite(addr, c.value, p); err != nil {
				return err
			}
			//
			p.validated[addr] = struct{}{}
		}
	}
	//
	return nil
}

// UsedSize returns one more than the largest written offset within a segment,
// or zero for an empty (or unknown) segment.
func (p *Memory) UsedSize(segment int) uint64 {
	if segment < 0 || segment >= len(p.data) {
		return 0
	}
	//
	return uint64(len(p.data[segment]))
}

// WrittenCells returns the number of cells which have been written in a given
// segment.
func (p *Memory) WrittenCells(segment int) uint64 {
	if segment < 0 || segment >= len(p.written) {
		return 0
	}
	//
	return p.written[segment]
}

// ForEach applies a function to every known cell of a segment, in increasing
// order of offset.
func (p *Memory) ForEach(segment int, fn func(offset uint64, value Value)) {
	if segment < 0 || segment >= len(p.data) {
		return
	}
	//
	for i, c := range p.data[segment] {
		if c.written {
			fn(uint64(i), c.value)
		}
	}
}
