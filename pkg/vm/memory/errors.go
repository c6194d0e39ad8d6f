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
	"errors"
	"fmt"
)

var (
	// ErrUnknownAddress signals a read of a cell which has never been written.
	ErrUnknownAddress = errors.New("unknown address")
	// ErrWriteOnceConflict signals an attempt to overwrite a cell with a
	// different value.
	ErrWriteOnceConflict = errors.New("write-once conflict")
	// ErrUnknownSegment signals an access to a segment which was never created.
	ErrUnknownSegment = errors.New("unknown segment")
	// ErrNotFelt signals that a field element was expected but a relocatable
	// value was found.
	ErrNotFelt = errors.New("expected field element")
	// ErrNotRelocatable signals that a relocatable value was expected but a
	// field element was found.
	ErrNotRelocatable = errors.New("expected relocatable value")
	// ErrOffsetOverflow signals an offset which falls outside the addressable
	// range of a segment.
	ErrOffsetOverflow = errors.New("offset out of range")
	// ErrSegmentMismatch signals an operation on relocatable values from
	// distinct segments.
	ErrSegmentMismatch = errors.New("relocatable values from different segments")
	// ErrInvalidOperation signals an arithmetic operation which is undefined
	// for the given operands (e.g. multiplying relocatable values).
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrRelocation signals a failure to relocate memory (e.g. a segment whose
	// final size is smaller than its used size).
	ErrRelocation = errors.New("relocation failure")
)

// Error captures a failure arising from a memory operation, along with the
// address at which it occurred (where applicable).
type Error struct {
	// Kind identifies the class of error (e.g. ErrWriteOnceConflict)
	Kind error
	// Address at which the error arose.
	Address Relocatable
	// Detail provides additional information (optional).
	Detail string
}

func newError(kind error, address Relocatable, format string, args ...any) *Error {
	return &Error{kind, address, fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s at %s", e.Kind.Error(), e.Address.String())
	}
	//
	return fmt.Sprintf("%s at %s: %s", e.Kind.Error(), e.Address.String(), e.Detail)
}

// Unwrap provides access to the error kind.
func (e *Error) Unwrap() error {
	return e.Kind
}
