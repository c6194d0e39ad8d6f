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
	"errors"
	"fmt"

	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

var (
	// ErrRangeCheckOutOfBounds signals a range-checked value outside its bound.
	ErrRangeCheckOutOfBounds = errors.New("range check value out of bounds")
	// ErrNotAFelt signals a relocatable value in a cell requiring a field
	// element.
	ErrNotAFelt = errors.New("expected field element")
	// ErrInvalidPoint signals a point which is not on the curve (or a result at
	// infinity).
	ErrInvalidPoint = errors.New("point not on curve")
	// ErrBitwiseInputTooLarge signals a bitwise operand of 251 bits or more.
	ErrBitwiseInputTooLarge = errors.New("bitwise input too large")
	// ErrSignatureNotFound signals an ecdsa instance without a registered
	// signature.
	ErrSignatureNotFound = errors.New("signature not found")
	// ErrInvalidSignature signals an ecdsa instance whose signature does not
	// verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInsufficientAllocatedCells signals a builtin using more cells than
	// were allocated in proof mode.
	ErrInsufficientAllocatedCells = errors.New("insufficient allocated cells")
	// ErrMissingInputCells signals an instance whose input cells were not all
	// written.
	ErrMissingInputCells = errors.New("missing input cells")
	// ErrInconsistentAutoDeduction signals a builtin cell whose value differs
	// from that deduced by the builtin.
	ErrInconsistentAutoDeduction = errors.New("inconsistent auto deduction")
	// ErrInvalidStopPointer signals a returned builtin pointer which does not
	// match the builtin's usage.
	ErrInvalidStopPointer = errors.New("invalid stop pointer")
	// ErrBuiltinNotInLayout signals a program builtin unsupported by the
	// layout.
	ErrBuiltinNotInLayout = errors.New("builtin not in layout")
	// ErrBuiltinsOutOfOrder signals program builtins which are not ordered as in
	// the layout.
	ErrBuiltinsOutOfOrder = errors.New("builtins out of order")
	// ErrUnknownLayout signals a layout name which is not recognised.
	ErrUnknownLayout = errors.New("unknown layout")
)

// Error captures a failure arising within a builtin runner.
type Error struct {
	Kind    error
	Builtin string
	Address memory.Relocatable
	Detail  string
}

func newError(kind error, builtin string, address memory.Relocatable, format string, args ...any) *Error {
	return &Error{kind, builtin, address, fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s at %s", e.Builtin, e.Kind.Error(), e.Address.String())
	}
	//
	return fmt.Sprintf("%s: %s at %s (%s)", e.Builtin, e.Kind.Error(), e.Address.String(), e.Detail)
}

// Unwrap provides access to the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}
