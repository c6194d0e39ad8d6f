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
	"sort"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/ecdsa"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// Signature is an ECDSA signature (r, s) over the STARK curve.
type Signature struct {
	R stark252.Element
	S stark252.Element
}

// EcdsaRunner is the signature builtin, where each instance (public key,
// message) must be accompanied by a signature registered through a hint.
// Signatures are verified once execution has finished.
type EcdsaRunner struct {
	baseRunner
	signatures map[uint64]Signature
}

// NewEcdsaRunner constructs an ecdsa builtin.
func NewEcdsaRunner(ratio uint64) *EcdsaRunner {
	return &EcdsaRunner{
		baseRunner{name: Ecdsa, ratio: ratio, cellsPerInstance: 2, inputCells: 2},
		make(map[uint64]Signature),
	}
}

// AddSignature registers the signature for the instance whose public key is
// at a given address.
func (p *EcdsaRunner) AddSignature(address memory.Relocatable, sig Signature) error {
	if address.Segment != p.base.Segment {
		return newError(ErrSignatureNotFound, p.name, address, "address outside builtin segment")
	} else if address.Offset%p.cellsPerInstance != 0 {
		return newError(ErrSignatureNotFound, p.name, address, "not the start of an instance")
	}
	//
	p.signatures[address.Offset] = sig
	//
	return nil
}

// ValidateWrite implementation for the memory.Validator interface.
func (p *EcdsaRunner) ValidateWrite(address memory.Relocatable, value memory.Value, _ *memory.Memory) error {
	if !value.IsFelt() {
		return newError(ErrNotAFelt, p.name, address, "found %s", value.String())
	}
	//
	return nil
}

// FinalizeRun implementation for Runner interface.  Every complete instance
// must carry a valid signature.
func (p *EcdsaRunner) FinalizeRun(mem *memory.Memory) error {
	var offsets []uint64
	//
	mem.ForEach(p.base.Segment, func(offset uint64, _ memory.Value) {
		if offset%p.cellsPerInstance == 0 {
			offsets = append(offsets, offset)
		}
	})
	//
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	//
	for _, offset := range offsets {
		addr := p.base.AddUint(offset)
		//
		inputs, ok, err := p.readInputs(addr, mem)
		if err != nil {
			return err
		} else if !ok {
			continue
		}
		//
		sig, ok := p.signatures[offset]
		if !ok {
			return newError(ErrSignatureNotFound, p.name, addr, "")
		} else if !VerifySignature(inputs[0], inputs[1], sig) {
			return newError(ErrInvalidSignature, p.name, addr, "public key %s, message %s", inputs[0].String(),
				inputs[1].String())
		}
	}
	//
	return nil
}

// VerifySignature checks an ECDSA signature of a given message hash against a
// public key, of which only the x-coordinate is known.  Both candidate
// y-coordinates are tried.
func VerifySignature(publicKey, message stark252.Element, sig Signature) bool {
	var (
		alpha, beta = starkcurve.CurveCoefficients()
		x           = publicKey.Element
		y2, tmp, y  fp.Element
		sigBytes    = make([]byte, 0, 2*stark252.Bytes)
		msg         = message.Bytes32()
	)
	//
	if message.BitLen() > bitwiseTotalNBits {
		return false
	}
	// y^2 = x^3 + alpha*x + beta
	y2.Square(&x).Mul(&y2, &x)
	tmp.Mul(&alpha, &x)
	y2.Add(&y2, &tmp).Add(&y2, &beta)
	//
	if y.Sqrt(&y2) == nil {
		return false
	}
	//
	r, s := sig.R.Bytes32(), sig.S.Bytes32()
	sigBytes = append(append(sigBytes, r[:]...), s[:]...)
	//
	for range 2 {
		key := ecdsa.PublicKey{A: starkcurve.G1Affine{X: x, Y: y}}
		//
		if ok, err := key.Verify(sigBytes, msg[:], nil); err == nil && ok {
			return true
		}
		//
		y.Neg(&y)
	}
	//
	return false
}
