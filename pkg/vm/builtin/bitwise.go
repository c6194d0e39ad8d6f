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
	"github.com/holiman/uint256"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// Operands of the bitwise builtin must be strictly less than 2^totalNBits.
const bitwiseTotalNBits = 251

// BitwiseRunner is the bitwise builtin, where each instance (x, y, x&y, x^y,
// x|y) relates two inputs to their bitwise combinations.
type BitwiseRunner struct {
	baseRunner
}

// NewBitwiseRunner constructs a bitwise builtin.
func NewBitwiseRunner(ratio uint64) *BitwiseRunner {
	return &BitwiseRunner{baseRunner{name: Bitwise, ratio: ratio, cellsPerInstance: 5, inputCells: 2}}
}

// Deduce implementation for Runner interface.
func (p *BitwiseRunner) Deduce(address memory.Relocatable, mem *memory.Memory) (memory.Value, bool, error) {
	var (
		index  = address.Offset % p.cellsPerInstance
		x, y   uint256.Int
		result uint256.Int
	)
	//
	if index < p.inputCells {
		return memory.Value{}, false, nil
	}
	//
	inputs, ok, err := p.readInputs(address, mem)
	if !ok || err != nil {
		return memory.Value{}, false, err
	}
	//
	for i, in := range inputs {
		if in.BitLen() > bitwiseTotalNBits {
			addr := memory.NewRelocatable(address.Segment, address.Offset-index+uint64(i))
			return memory.Value{}, false, newError(ErrBitwiseInputTooLarge, p.name, addr, "%s", in.String())
		}
	}
	//
	xb, yb := inputs[0].Bytes32(), inputs[1].Bytes32()
	x.SetBytes32(xb[:])
	y.SetBytes32(yb[:])
	//
	switch index {
	case 2:
		result.And(&x, &y)
	case 3:
		result.Xor(&x, &y)
	default:
		result.Or(&x, &y)
	}
	//
	rb := result.Bytes32()
	//
	return memory.FeltValue(stark252.Element{}.SetBytes(rb[:])), true, nil
}

// DilutedUnits returns the number of diluted check units used per instance,
// for a given diluted spacing and number of bits.
func (p *BitwiseRunner) DilutedUnits(spacing, nBits uint64) uint64 {
	var partition []uint64
	//
	if spacing == 0 || nBits == 0 {
		return 0
	}
	//
	for i := uint64(0); i < bitwiseTotalNBits; i += spacing * nBits {
		for j := range spacing {
			if i+j < bitwiseTotalNBits {
				partition = append(partition, i+j)
			}
		}
	}
	//
	trimmed := uint64(0)
	//
	for _, e := range partition {
		if e+spacing*(nBits-1)+1 > bitwiseTotalNBits {
			trimmed++
		}
	}
	//
	return 4*uint64(len(partition)) + trimmed
}
