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
package scope

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// Kind identifies the type of a scope variable.
type Kind uint8

const (
	// FeltKind is a field element.
	FeltKind Kind = iota
	// AddressKind is a relocatable address.
	AddressKind
	// IntKind is an arbitrary precision integer.
	IntKind
	// ListKind is a list of values.
	ListKind
	// MapKind is a map from names to values.
	MapKind
)

var kindNames = [...]string{"felt", "address", "int", "list", "map"}

func (k Kind) String() string {
	return kindNames[k]
}

// Value is a variable held in an execution scope.  Hints use these to pass
// state between one another (e.g. loop counters).
type Value struct {
	kind    Kind
	felt    stark252.Element
	address memory.Relocatable
	integer *big.Int
	list    []Value
	entries map[string]Value
}

// Felt constructs a field element variable.
func Felt(f stark252.Element) Value {
	return Value{kind: FeltKind, felt: f}
}

// Address constructs a relocatable address variable.
func Address(r memory.Relocatable) Value {
	return Value{kind: AddressKind, address: r}
}

// Int constructs an integer variable.
func Int(n *big.Int) Value {
	return Value{kind: IntKind, integer: new(big.Int).Set(n)}
}

// Uint constructs an integer variable from a machine integer.
func Uint(n uint64) Value {
	return Value{kind: IntKind, integer: new(big.Int).SetUint64(n)}
}

// List constructs a list variable.
func List(items ...Value) Value {
	return Value{kind: ListKind, list: items}
}

// Map constructs a map variable.
func Map(entries map[string]Value) Value {
	return Value{kind: MapKind, entries: entries}
}

// FromMemory converts a memory value into a scope variable.
func FromMemory(v memory.Value) Value {
	if f, ok := v.Felt(); ok {
		return Felt(f)
	}
	//
	r, _ := v.Address()
	//
	return Address(r)
}

// Kind returns the type of this variable.
func (v Value) Kind() Kind {
	return v.kind
}

// AsFelt returns this variable as a field element.  Integers are reduced into
// the field.
func (v Value) AsFelt() (stark252.Element, bool) {
	switch v.kind {
	case FeltKind:
		return v.felt, true
	case IntKind:
		return stark252.FromBigInt(v.integer), true
	}
	//
	return stark252.Element{}, false
}

// AsAddress returns this variable as a relocatable address.
func (v Value) AsAddress() (memory.Relocatable, bool) {
	return v.address, v.kind == AddressKind
}

// AsInt returns this variable as an integer.  Field elements are returned as
// their canonical (non-negative) representative.
func (v Value) AsInt() (*big.Int, bool) {
	switch v.kind {
	case IntKind:
		return new(big.Int).Set(v.integer), true
	case FeltKind:
		return v.felt.BigInt(), true
	}
	//
	return nil, false
}

// AsList returns this variable as a list.
func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == ListKind
}

// AsMap returns this variable as a map.
func (v Value) AsMap() (map[string]Value, bool) {
	return v.entries, v.kind == MapKind
}

func (v Value) String() string {
	switch v.kind {
	case FeltKind:
		return v.felt.String()
	case AddressKind:
		return v.address.String()
	case IntKind:
		return v.integer.String()
	case ListKind:
		items := make([]string, len(v.list))
		for i, item := range v.list {
			items[i] = item.String()
		}
		//
		return "[" + strings.Join(items, ", ") + "]"
	}
	//
	return fmt.Sprintf("map(%d)", len(v.entries))
}
