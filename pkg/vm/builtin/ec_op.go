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
	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// EcOpRunner is the elliptic curve operation builtin, where each instance (P,
// Q, m, R) satisfies R = P + m*Q on the STARK curve.
type EcOpRunner struct {
	baseRunner
}

// NewEcOpRunner constructs an ec_op builtin.
func NewEcOpRunner(ratio uint64) *EcOpRunner {
	return &EcOpRunner{baseRunner{name: EcOp, ratio: ratio, cellsPerInstance: 7, inputCells: 5}}
}

// Deduce implementation for Runner interface.
func (p *EcOpRunner) Deduce(address memory.Relocatable, mem *memory.Memory) (memory.Value, bool, error) {
	index := address.Offset % p.cellsPerInstance
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
	start := memory.NewRelocatable(address.Segment, address.Offset-index)
	//
	if !OnCurve(inputs[0], inputs[1]) {
		return memory.Value{}, false, newError(ErrInvalidPoint, p.name, start, "P")
	} else if !OnCurve(inputs[2], inputs[3]) {
		return memory.Value{}, false, newError(ErrInvalidPoint, p.name, start.AddUint(2), "Q")
	}
	//
	r := ecOp(inputs)
	if r.IsInfinity() {
		return memory.Value{}, false, newError(ErrInvalidPoint, p.name, start, "result at infinity")
	}
	//
	if index == 5 {
		return memory.FeltValue(stark252.Element{Element: r.X}), true, nil
	}
	//
	return memory.FeltValue(stark252.Element{Element: r.Y}), true, nil
}

// ecOp computes P + m*Q from the inputs of an instance.
func ecOp(inputs []memory.Felt) starkcurve.G1Affine {
	var (
		P, Q, mQ, R starkcurve.G1Affine
	)
	//
	P.X, P.Y = inputs[0].Element, inputs[1].Element
	Q.X, Q.Y = inputs[2].Element, inputs[3].Element
	//
	mQ.ScalarMultiplication(&Q, inputs[4].BigInt())
	//
	if mQ.IsInfinity() {
		R = P
	} else {
		R.Add(&P, &mQ)
	}
	//
	return R
}

// OnCurve checks whether (x, y) lies on the STARK curve y^2 = x^3 + alpha*x +
// beta.  The point at infinity is not considered on the curve.
func OnCurve(x, y stark252.Element) bool {
	var (
		alpha, beta = starkcurve.CurveCoefficients()
		lhs, rhs    fp.Element
		tmp         fp.Element
	)
	//
	lhs.Square(&y.Element)
	rhs.Square(&x.Element).Mul(&rhs, &x.Element)
	tmp.Mul(&alpha, &x.Element)
	rhs.Add(&rhs, &tmp).Add(&rhs, &beta)
	//
	return lhs.Equal(&rhs)
}
