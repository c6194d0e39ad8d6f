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
	pedersenhash "github.com/consensys/gnark-crypto/ecc/stark-curve/pedersen-hash"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// PedersenRunner is the hash builtin, where each instance (x, y, h) satisfies
// h = Pedersen(x, y).
type PedersenRunner struct {
	baseRunner
}

// NewPedersenRunner constructs a pedersen builtin.
func NewPedersenRunner(ratio uint64) *PedersenRunner {
	return &PedersenRunner{baseRunner{name: Pedersen, ratio: ratio, cellsPerInstance: 3, inputCells: 2}}
}

// Deduce implementation for Runner interface.
func (p *PedersenRunner) Deduce(address memory.Relocatable, mem *memory.Memory) (memory.Value, bool, error) {
	if address.Offset%p.cellsPerInstance != 2 {
		return memory.Value{}, false, nil
	}
	//
	inputs, ok, err := p.readInputs(address, mem)
	if !ok || err != nil {
		return memory.Value{}, false, err
	}
	//
	return memory.FeltValue(PedersenHash(inputs[0], inputs[1])), true, nil
}

// PedersenHash computes the Pedersen hash of two field elements.
func PedersenHash(x, y stark252.Element) stark252.Element {
	return stark252.Element{Element: pedersenhash.Pedersen(&x.Element, &y.Element)}
}
