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
package hint

import (
	"errors"
	"fmt"

	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/scope"
)

var (
	// ErrUnknownHint signals hint code with no registered implementation.
	ErrUnknownHint = errors.New("unknown hint")
	// ErrUnknownIdentifier signals an ids variable which is not visible to the
	// hint.
	ErrUnknownIdentifier = errors.New("unknown identifier")
	// ErrVariableNotInScope signals a scope variable which is not defined.
	ErrVariableNotInScope = scope.ErrVariableNotInScope
	// ErrExitMainScope signals an attempt to exit the outermost scope.
	ErrExitMainScope = scope.ErrExitMainScope
	// ErrAssertionFailed signals a hint assertion which does not hold.
	ErrAssertionFailed = errors.New("assertion failed")
	// ErrKeyNotFound signals a search for a key which is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrValueOutOfRange signals a value outside the range expected by a hint.
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrInvalidApTracking signals an ap-based reference from a different flow
	// tracking group than the hint.
	ErrInvalidApTracking = errors.New("invalid ap tracking")
)

// Error reports a failure of a given hint.  Any memory writes performed by the
// hint before it failed persist.
type Error struct {
	// Address of the instruction to which the hint is attached.
	PC memory.Relocatable
	// Code of the hint.
	Code string
	// Underlying error.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hint at pc %s failed: %s\n%s", e.PC.String(), e.Err.Error(), e.Code)
}

// Unwrap provides access to the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func failf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
