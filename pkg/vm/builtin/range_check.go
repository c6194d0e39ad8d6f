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
	"math/big"

	"github.com/consensys/go-cairovm/pkg/util/field"
	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// Each range-checked value is split into parts of this many bits.
const innerRangeCheckBits = 16

// RangeCheckRunner is the range check builtin, which requires each cell to hold
// a field element in [0, 2^(16*n_parts)).
type RangeCheckRunner struct {
	baseRunner
	nParts uint
	bound  *big.Int
}

// NewRangeCheckRunner constructs a range check builtin with a given number of
// 16-bit parts.
func NewRangeCheckRunner(ratio uint64, nParts uint) *RangeCheckRunner {
	return newRangeCheckRunner(RangeCheck, ratio, nParts)
}

// NewRangeCheck96Runner constructs a range check builtin bounded by 2^96.
func NewRangeCheck96Runner(ratio uint64) *RangeCheckRunner {
	return newRangeCheckRunner(RangeCheck96, ratio, 6)
}

func newRangeCheckRunner(name string, ratio uint64, nParts uint) *RangeCheckRunner {
	bound := field.TwoPowN[stark252.Element](innerRangeCheckBits * nParts).BigInt()
	//
	return &RangeCheckRunner{baseRunner{name: name, ratio: ratio, cellsPerInstance: 1, inputCells: 1}, nParts, bound}
}

// Bound returns the exclusive upper bound on range-checked values.
func (p *RangeCheckRunner) Bound() *big.Int {
	return new(big.Int).Set(p.bound)
}

// ValidateWrite implementation for the memory.Validator interface.
func (p *RangeCheckRunner) ValidateWrite(address memory.Relocatable, value memory.Value, _ *memory.Memory) error {
	f, ok := value.Felt()
	//
	if !ok {
		return newError(ErrNotAFelt, p.name, address, "found %s", value.String())
	} else if f.BitLen() > int(innerRangeCheckBits*p.nParts) {
		return newError(ErrRangeCheckOutOfBounds, p.name, address, "%s exceeds %s", f.String(), p.bound.String())
	}
	//
	return nil
}

// Usage returns the smallest and largest 16-bit parts of all range-checked
// values.  This returns false if no values were checked.
func (p *RangeCheckRunner) Usage(mem *memory.Memory) (uint64, uint64, bool) {
	var (
		lo, hi uint64
		found  bool
	)
	//
	mem.ForEach(p.base.Segment, func(_ uint64, value memory.Value) {
		f, ok := value.Felt()
		if !ok {
			return
		}
		//
		val := f.BigInt()
		//
		for i := range p.nParts {
			part := new(big.Int).Rsh(val, innerRangeCheckBits*i).Uint64() & 0xffff
			//
			if !found {
				lo, hi, found = part, part, true
			} else {
				lo, hi = min(lo, part), max(hi, part)
			}
		}
	})
	//
	return lo, hi, found
}
