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

import (
	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
)

// RelocationBase is the flat address assigned to the first cell of the first
// segment.
const RelocationBase uint64 = 1

// Cell is a relocated memory cell, as written to a memory file.
type Cell struct {
	Address uint64
	Value   Felt
}

// Segments manages the creation and sizing of memory segments, and their
// eventual relocation into a single flat address space.
type Segments struct {
	Memory *Memory
	// Final sizes assigned to specific segments (e.g. by builtins in proof
	// mode).
	finalSizes map[int]uint64
}

// NewSegments constructs a segment manager over an empty memory.
func NewSegments() *Segments {
	return &Segments{NewMemory(), make(map[int]uint64)}
}

// Add creates a new, empty segment and returns its base address.
func (p *Segments) Add() Relocatable {
	return NewRelocatable(p.Memory.addSegment(), 0)
}

// AddWith creates a new segment initialised with the given values, returning
// its base address.
func (p *Segments) AddWith(values []Value) (Relocatable, error) {
	base := p.Add()
	//
	if _, err := p.Memory.Load(base, values); err != nil {
		return base, err
	}
	//
	return base, nil
}

// NumSegments returns the number of segments created so far.
func (p *Segments) NumSegments() int {
	return p.Memory.NumSegments()
}

// Finalize fixes the size of a segment, which must be no smaller than the
// portion of the segment actually used.
func (p *Segments) Finalize(segment int, size uint64) error {
	if used := p.Memory.UsedSize(segment); size < used {
		return newError(ErrRelocation, NewRelocatable(segment, size), "segment uses %d cells", used)
	}
	//
	p.finalSizes[segment] = size
	//
	return nil
}

// SegmentUsedSize returns the used size of a segment (i.e. one more than its
// largest written offset).
func (p *Segments) SegmentUsedSize(segment int) uint64 {
	return p.Memory.UsedSize(segment)
}

// SegmentSize returns the size of a segment for relocation purposes: its final
// size if one was assigned, otherwise its used size.
func (p *Segments) SegmentSize(segment int) uint64 {
	if size, ok := p.finalSizes[segment]; ok {
		return size
	}
	//
	return p.Memory.UsedSize(segment)
}

// ComputeEffectiveSizes determines the size of every segment.
func (p *Segments) ComputeEffectiveSizes() []uint64 {
	sizes := make([]uint64, p.NumSegments())
	//
	for i := range sizes {
		sizes[i] = p.SegmentSize(i)
	}
	//
	return sizes
}

// RelocationTable returns the flat base address of each segment.  Segments are
// laid out contiguously in creation order, starting from RelocationBase.
func (p *Segments) RelocationTable() []uint64 {
	var (
		sizes = p.ComputeEffectiveSizes()
		table = make([]uint64, len(sizes))
		next  = RelocationBase
	)
	//
	for i, size := range sizes {
		table[i] = next
		next += size
	}
	//
	return table
}

// RelocateAddress maps a relocatable address into the flat address space
// using a given relocation table.
func RelocateAddress(r Relocatable, table []uint64) (uint64, error) {
	if r.Segment < 0 || r.Segment >= len(table) {
		return 0, newError(ErrRelocation, r, "segment has no base")
	}
	//
	return table[r.Segment] + r.Offset, nil
}

// RelocateValue maps a memory value into the flat address space.  Field
// elements are unchanged, whilst addresses become field elements.
func RelocateValue(v Value, table []uint64) (Felt, error) {
	if f, ok := v.Felt(); ok {
		return f, nil
	}
	//
	addr, _ := v.Address()
	flat, err := RelocateAddress(addr, table)
	//
	return stark252.New(flat), err
}

// RelocateMemory produces the relocated memory, ordered by increasing address.
// Unknown cells are omitted.
func (p *Segments) RelocateMemory(table []uint64) ([]Cell, error) {
	var (
		cells []Cell
		err   error
	)
	//
	for seg := range p.NumSegments() {
		p.Memory.ForEach(seg, func(offset uint64, value Value) {
			if err != nil {
				return
			}
			//
			var f Felt
			//
			if f, err = RelocateValue(value, table); err == nil {
				cells = append(cells, Cell{table[seg] + offset, f})
			}
		})
		//
		if err != nil {
			return nil, err
		}
	}
	//
	return cells, nil
}

// MemoryHoles counts cells which lie within the used portion of a segment, but
// which were never written.  Segments for which skip returns true (e.g. those
// owned by builtins) are ignored.
func (p *Segments) MemoryHoles(skip func(segment int) bool) uint64 {
	var holes uint64
	//
	for seg := range p.NumSegments() {
		if skip != nil && skip(seg) {
			continue
		}
		//
		holes += p.SegmentSize(seg) - p.Memory.WrittenCells(seg)
	}
	//
	return holes
}
