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
package vm

import (
	"errors"
	"fmt"

	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

var (
	// ErrNotRunning signals an attempt to step a machine which has stopped or
	// faulted.
	ErrNotRunning = errors.New("machine is not running")
	// ErrUnknownPC signals a pc whose instruction word is unknown.
	ErrUnknownPC = errors.New("unknown pc")
	// ErrDeductionFailed signals an operand which could neither be read nor
	// deduced.
	ErrDeductionFailed = errors.New("cannot deduce operand")
	// ErrOp0NotRelocatable signals op0 used as a base address when it is a field
	// element (or unknown).
	ErrOp0NotRelocatable = errors.New("op0 is not relocatable")
	// ErrUnconstrainedResAssertEq signals an assert_eq with no result.
	ErrUnconstrainedResAssertEq = errors.New("assert_eq with unconstrained result")
	// ErrAssertEqFailed signals an assert_eq whose operands differ.
	ErrAssertEqFailed = errors.New("assert_eq failed")
	// ErrCallDstMismatch signals a call which does not save fp.
	ErrCallDstMismatch = errors.New("call does not save fp")
	// ErrCallOp0Mismatch signals a call which does not save the return pc.
	ErrCallOp0Mismatch = errors.New("call does not save return pc")
	// ErrUnconstrainedResJump signals a jump without a target.
	ErrUnconstrainedResJump = errors.New("jump with unconstrained result")
	// ErrUnconstrainedResAdd signals an ap increment without an amount.
	ErrUnconstrainedResAdd = errors.New("ap update with unconstrained result")
	// ErrJumpToFelt signals an absolute jump to a field element.
	ErrJumpToFelt = errors.New("absolute jump to field element")
	// ErrJumpRelByAddress signals a relative jump by an address.
	ErrJumpRelByAddress = errors.New("relative jump by address")
	// ErrInvalidFpUpdate signals an fp update which does not produce an address.
	ErrInvalidFpUpdate = errors.New("invalid fp update")
	// ErrMulRelocatable signals a multiplication involving an address.
	ErrMulRelocatable = errors.New("cannot multiply relocatable values")
)

// Exception wraps an error arising whilst executing a given instruction,
// identifying where it occurred.
type Exception struct {
	// PC of the failing instruction.
	PC memory.Relocatable
	// Instruction word at the pc (if known).
	Instruction uint64
	// Underlying error.
	Err error
	// Error message attached to this pc by the program (if any).
	Attribute string
}

func (e *Exception) Error() string {
	msg := fmt.Sprintf("error at pc %s (instruction 0x%x): %s", e.PC.String(), e.Instruction, e.Err.Error())
	//
	if e.Attribute != "" {
		msg = fmt.Sprintf("%s\n%s", e.Attribute, msg)
	}
	//
	return msg
}

// Unwrap provides access to the underlying error.
func (e *Exception) Unwrap() error {
	return e.Err
}

func operandError(kind error, operand string, address memory.Relocatable) error {
	return fmt.Errorf("%w: %s at %s", kind, operand, address.String())
}
