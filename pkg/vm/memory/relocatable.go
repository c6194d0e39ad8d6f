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
	"fmt"
	"math"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
)

// Felt is the field element type held in memory cells.
type Felt = stark252.Element

// Relocatable is an address expressed as a (segment, offset) pair.  Segment
// indices are assigned in creation order, whilst offsets are bounded by the
// field.
type Relocatable struct {
	Segment int
	Offset  uint64
}

// NewRelocatable constructs a relocatable address.
func NewRelocatable(segment int, offset uint64) Relocatable {
	return Relocatable{segment, offset}
}

// AddUint returns the address n cells beyond this address.
func (r Relocatable) AddUint(n uint64) Relocatable {
	return Relocatable{r.Segment, r.Offset + n}
}

// AddInt returns this address offset by a signed amount, failing if the
// result would precede the segment base.
func (r Relocatable) AddInt(n int64) (Relocatable, error) {
	if n >= 0 {
		return Relocatable{r.Segment, r.Offset + uint64(n)}, nil
	} else if uint64(-n) > r.Offset {
		return r, newError(ErrOffsetOverflow, r, "cannot subtract %d", -n)
	}
	//
	return Relocatable{r.Segment, r.Offset - uint64(-n)}, nil
}

// AddFelt returns this address offset by a field element, where the new offset
// is computed modulo the prime.  The resulting offset must be representable.
func (r Relocatable) AddFelt(f Felt) (Relocatable, error) {
	offset := stark252.New(r.Offset).Add(f)
	//
	if !offset.IsUint64() {
		return r, newError(ErrOffsetOverflow, r, "cannot add %s", f.String())
	}
	//
	return Relocatable{r.Segment, offset.Uint64()}, nil
}

// SubFelt returns this address offset backwards by a field element.
func (r Relocatable) SubFelt(f Felt) (Relocatable, error) {
	return r.AddFelt(f.Neg())
}

// Sub returns the distance between two addresses in the same segment.
func (r Relocatable) Sub(o Relocatable) (uint64, error) {
	if r.Segment != o.Segment {
		return 0, newError(ErrSegmentMismatch, r, "cannot subtract %s", o.String())
	} else if o.Offset > r.Offset {
		return 0, newError(ErrOffsetOverflow, r, "cannot subtract %s", o.String())
	}
	//
	return r.Offset - o.Offset, nil
}

// Cmp orders addresses first by segment, then by offset.
func (r Relocatable) Cmp(o Relocatable) int {
	switch {
	case r.Segment < o.Segment:
		return -1
	case r.Segment > o.Segment:
		return 1
	case r.Offset < o.Offset:
		return -1
	case r.Offset > o.Offset:
		return 1
	}
	//
	return 0
}

func (r Relocatable) String() string {
	return fmt.Sprintf("%d:%d", r.Segment, r.Offset)
}

// maxSegmentOffset bounds the offsets at which cells can be written.
const maxSegmentOffset = math.MaxUint32

// ============================================================================
// Values
// ============================================================================

type valueKind uint8

const (
	feltKind valueKind = iota
	addressKind
)

// Value is the content of a memory cell: either a field element or a
// relocatable address.  The zero value is the field element zero.
type Value struct {
	kind    valueKind
	felt    Felt
	address Relocatable
}

// FeltValue constructs a value holding a field element.
func FeltValue(f Felt) Value {
	return Value{kind: feltKind, felt: f}
}

// Uint64Value constructs a value holding a small field element.
func Uint64Value(n uint64) Value {
	return FeltValue(stark252.New(n))
}

// AddressValue constructs a value holding a relocatable address.
func AddressValue(r Relocatable) Value {
	return Value{kind: addressKind, address: r}
}

// IsFelt checks whether this value is a field element.
func (v Value) IsFelt() bool {
	return v.kind == feltKind
}

// IsAddress checks whether this value is a relocatable address.
func (v Value) IsAddress() bool {
	return v.kind == addressKind
}

// Felt returns the field element held by this value, if it is one.
func (v Value) Felt() (Felt, bool) {
	return v.felt, v.kind == feltKind
}

// Address returns the relocatable address held by this value, if it is one.
func (v Value) Address() (Relocatable, bool) {
	return v.address, v.kind == addressKind
}

// IsZero checks whether this value is the field element zero.
func (v Value) IsZero() bool {
	return v.kind == feltKind && v.felt.IsZero()
}

// Equal checks whether two values are identical.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	} else if v.kind == feltKind {
		return v.felt.Equal(o.felt)
	}
	//
	return v.address == o.address
}

// Add two values.  Adding two addresses is not permitted.
func (v Value) Add(o Value) (Value, error) {
	switch {
	case v.kind == feltKind && o.kind == feltKind:
		return FeltValue(v.felt.Add(o.felt)), nil
	case v.kind == addressKind && o.kind == feltKind:
		r, err := v.address.AddFelt(o.felt)
		return AddressValue(r), err
	case v.kind == feltKind && o.kind == addressKind:
		r, err := o.address.AddFelt(v.felt)
		return AddressValue(r), err
	}
	//
	return v, &Error{ErrInvalidOperation, v.address, fmt.Sprintf("cannot add %s and %s", v, o)}
}

// Sub subtracts one value from another.  An address minus an address (in the
// same segment) gives a field element.
func (v Value) Sub(o Value) (Value, error) {
	switch {
	case v.kind == feltKind && o.kind == feltKind:
		return FeltValue(v.felt.Sub(o.felt)), nil
	case v.kind == addressKind && o.kind == feltKind:
		r, err := v.address.SubFelt(o.felt)
		return AddressValue(r), err
	case v.kind == addressKind && o.kind == addressKind:
		d, err := v.address.Sub(o.address)
		return Uint64Value(d), err
	}
	//
	return v, &Error{ErrInvalidOperation, o.address, fmt.Sprintf("cannot subtract %s from %s", o, v)}
}

// Mul multiplies two values, which must both be field elements.
func (v Value) Mul(o Value) (Value, error) {
	if v.kind != feltKind || o.kind != feltKind {
		return v, &Error{ErrInvalidOperation, v.address, fmt.Sprintf("cannot multiply %s and %s", v, o)}
	}
	//
	return FeltValue(v.felt.Mul(o.felt)), nil
}

func (v Value) String() string {
	if v.kind == addressKind {
		return v.address.String()
	}
	//
	return v.felt.String()
}
