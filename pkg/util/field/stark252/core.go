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
package stark252

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Bytes is the fixed width (in bytes) of the big-endian encoding of an element.
const Bytes = fp.Bytes

// ErrDivisionByZero is returned when dividing by the zero element.
var ErrDivisionByZero = errors.New("division by zero")

var (
	modulus = fp.Modulus()
	// half is (P-1)/2, used to map elements onto signed integers.
	half = new(big.Int).Rsh(fp.Modulus(), 1)
)

// Element wraps fp.Element (i.e. the field of the STARK curve, whose modulus is
// 2^251 + 17*2^192 + 1) to conform to the field.Element interface.
type Element struct {
	fp.Element
}

// New constructs an element from a given unsigned integer.
func New(val uint64) Element {
	return Element{fp.NewElement(val)}
}

// FromInt64 constructs an element from a (possibly negative) integer, where
// negative values wrap around the modulus.
func FromInt64(val int64) Element {
	var elem fp.Element
	//
	elem.SetInt64(val)
	//
	return Element{elem}
}

// FromBigInt constructs an element from an arbitrary integer, reducing modulo
// the field prime (negative values wrap around).
func FromBigInt(val *big.Int) Element {
	var elem fp.Element
	//
	elem.SetBigInt(val)
	//
	return Element{elem}
}

// FromString parses an element from its decimal or hexadecimal ("0x" prefixed)
// representation.  A leading "-" denotes a negative value.
func FromString(text string) (Element, error) {
	var (
		val      big.Int
		negative = strings.HasPrefix(text, "-")
	)
	//
	if negative {
		text = text[1:]
	}
	//
	if _, ok := val.SetString(text, 0); !ok {
		return Element{}, fmt.Errorf("invalid field element \"%s\"", text)
	}
	//
	if negative {
		val.Neg(&val)
	}
	//
	return FromBigInt(&val), nil
}

// Modulus returns the field prime.
func Modulus() *big.Int {
	return new(big.Int).Set(modulus)
}

// Modulus implementation for the field.Element interface.
func (x Element) Modulus() *big.Int {
	return Modulus()
}

// Add x + y
func (x Element) Add(y Element) Element {
	var res fp.Element
	//
	res.Add(&x.Element, &y.Element)
	//
	return Element{res}
}

// Sub x - y
func (x Element) Sub(y Element) Element {
	var elem fp.Element
	//
	elem.Sub(&x.Element, &y.Element)
	//
	return Element{elem}
}

// Mul x * y
func (x Element) Mul(y Element) Element {
	var elem fp.Element
	//
	elem.Mul(&x.Element, &y.Element)
	//
	return Element{elem}
}

// Div x / y, which fails when y is zero.
func (x Element) Div(y Element) (Element, error) {
	if y.IsZero() {
		return Element{}, ErrDivisionByZero
	}
	//
	return x.Mul(y.Inverse()), nil
}

// Neg -x
func (x Element) Neg() Element {
	var elem fp.Element
	//
	elem.Neg(&x.Element)
	//
	return Element{elem}
}

// Inverse x⁻¹, or 0 if x = 0.
func (x Element) Inverse() Element {
	var elem fp.Element
	//
	elem.Inverse(&x.Element)
	//
	return Element{elem}
}

// Cmp returns 1 if x > y, 0 if x = y, and -1 if x < y.
func (x Element) Cmp(y Element) int {
	return x.Element.Cmp(&y.Element)
}

// Equal returns true if x == y.
func (x Element) Equal(y Element) bool {
	return x.Element.Equal(&y.Element)
}

// IsOne implementation for the Element interface
func (x Element) IsOne() bool {
	return x.Element.IsOne()
}

// IsZero implementation for the Element interface
func (x Element) IsZero() bool {
	return x.Element.IsZero()
}

// IsUint64 checks whether the canonical value of x fits in a uint64.
func (x Element) IsUint64() bool {
	return x.Element.IsUint64()
}

// Uint64 returns the canonical value of x, assuming it fits in a uint64.
func (x Element) Uint64() uint64 {
	return x.Element.Uint64()
}

// ToUint64 returns the canonical value of x, or an error if it does not fit
// in a uint64.
func (x Element) ToUint64() (uint64, error) {
	if !x.IsUint64() {
		return 0, fmt.Errorf("cannot convert to uint64: %s", x.String())
	}
	//
	return x.Uint64(), nil
}

// BigInt returns the canonical value of x, i.e. within [0, P).
func (x Element) BigInt() *big.Int {
	var res big.Int
	//
	return x.Element.BigInt(&res)
}

// Signed returns the value of x as an integer within (-P/2, P/2].
func (x Element) Signed() *big.Int {
	val := x.BigInt()
	//
	if val.Cmp(half) > 0 {
		val.Sub(val, modulus)
	}
	//
	return val
}

// BitLen returns the minimal number of bits needed to represent the canonical
// value of x (i.e. not its Montgomery form).
func (x Element) BitLen() int {
	return x.BigInt().BitLen()
}

// SetBytes implementation for Element.
func (x Element) SetBytes(bytes []byte) Element {
	x.Element.SetBytes(bytes)
	//
	return x
}

// SetUint64 implementation for Element.
func (x Element) SetUint64(val uint64) Element {
	x.Element.SetUint64(val)
	//
	return x
}

// Bytes returns the big-endian encoded value of the Element, with leading zeros.
func (x Element) Bytes() []byte {
	return x.Marshal()
}

// Bytes32 returns the fixed-width big-endian encoding of x.
func (x Element) Bytes32() [Bytes]byte {
	return x.Element.Bytes()
}

func (x Element) String() string {
	return x.Element.String()
}

// Text implementation for the Element interface
func (x Element) Text(base int) string {
	return x.Element.Text(base)
}
