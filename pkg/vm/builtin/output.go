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
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// OutputRunner is the output builtin, whose cells hold the public output of a
// program.  Its cells are bound by no relation.
type OutputRunner struct {
	baseRunner
}

// NewOutputRunner constructs an output builtin.
func NewOutputRunner() *OutputRunner {
	return &OutputRunner{baseRunner{name: Output, cellsPerInstance: 1, inputCells: 1}}
}

// SecurityCheck implementation for Runner interface.  Output cells are
// unconstrained, hence gaps are permitted.
func (p *OutputRunner) SecurityCheck(*memory.Memory) error {
	return nil
}

// Output returns the values written to the output segment, in order.  Cells
// which were never written are reported as zero.
func (p *OutputRunner) Output(segments *memory.Segments) []memory.Value {
	var (
		n      = p.UsedCells(segments)
		values = make([]memory.Value, n)
	)
	//
	for i := range n {
		if v, ok := segments.Memory.Lookup(p.base.AddUint(i)); ok {
			values[i] = v
		}
	}
	//
	return values
}
