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
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/consensys/go-cairovm/pkg/vm/instruction"
)

// offsetBias is added to instruction offsets when they are range checked.
const offsetBias = 1 << 15

// ExecutionResources summarises the resources consumed by a run.
type ExecutionResources struct {
	// Number of steps executed.
	Steps uint64
	// Number of unwritten cells within used (non-builtin) segments.
	MemoryHoles uint64
	// Number of instances used, per builtin.
	BuiltinInstances map[string]uint64
}

func (r ExecutionResources) String() string {
	var builder strings.Builder
	//
	fmt.Fprintf(&builder, "steps: %d\nmemory holes: %d\n", r.Steps, r.MemoryHoles)
	//
	for _, name := range slices.Sorted(maps.Keys(r.BuiltinInstances)) {
		fmt.Fprintf(&builder, "%s: %d\n", name, r.BuiltinInstances[name])
	}
	//
	return builder.String()
}

// ExecutionResources returns the resources consumed so far.
func (p *CairoRunner) ExecutionResources() ExecutionResources {
	var (
		segments  = p.VM.Segments
		instances = make(map[string]uint64)
		owned     = make(map[int]bool)
	)
	//
	for _, r := range p.VM.Builtins() {
		instances[r.Name()] = r.UsedInstances(segments)
		owned[r.Base().Segment] = true
	}
	//
	return ExecutionResources{
		Steps:            p.VM.CurrentStep(),
		MemoryHoles:      segments.MemoryHoles(func(seg int) bool { return owned[seg] }),
		BuiltinInstances: instances,
	}
}

// RangeCheckUsage returns the smallest and largest values range checked during
// the run.  This covers the (biased) offsets of every executed instruction,
// along with the 16-bit parts of every range checked value.  Usage is only
// available when the trace is enabled.
func (p *CairoRunner) RangeCheckUsage() (uint64, uint64, bool) {
	var (
		lo, hi uint64
		found  bool
		mem    = p.VM.Memory()
	)
	//
	include := func(a, b uint64) {
		if !found {
			lo, hi, found = a, b, true
		} else {
			lo, hi = min(lo, a), max(hi, b)
		}
	}
	//
	for _, entry := range p.VM.Trace() {
		word, err := mem.GetFelt(entry.PC)
		if err != nil {
			continue
		}
		//
		insn, err := instruction.DecodeFelt(word)
		if err != nil {
			continue
		}
		//
		for _, off := range []int16{insn.OffDst, insn.OffOp0, insn.OffOp1} {
			v := uint64(int64(off) + offsetBias)
			include(v, v)
		}
	}
	//
	for _, r := range p.VM.Builtins() {
		if rc, ok := r.(*builtin.RangeCheckRunner); ok {
			if a, b, ok := rc.Usage(mem); ok {
				include(a, b)
			}
		}
	}
	//
	return lo, hi, found
}
