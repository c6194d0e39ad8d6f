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
	"errors"
	"fmt"
	"maps"
	"math/big"

	"github.com/consensys/go-cairovm/pkg/util/collection/stack"
	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

var (
	// ErrExitMainScope signals an attempt to exit the outermost scope.
	ErrExitMainScope = errors.New("cannot exit main scope")
	// ErrVariableNotInScope signals a read of an undefined variable.
	ErrVariableNotInScope = errors.New("variable not in scope")
	// ErrWrongType signals a variable of an unexpected kind.
	ErrWrongType = errors.New("variable has wrong type")
)

// Scope is a set of named variables.
type Scope map[string]Value

// Stack is the stack of execution scopes visible to hints.  The outermost
// scope always exists, and only the innermost scope is accessible.
type Stack struct {
	scopes *stack.Stack[Scope]
}

// NewStack constructs a stack holding only the outermost scope.
func NewStack() *Stack {
	return &Stack{stack.NewStack(Scope{})}
}

// Depth returns the number of scopes on the stack.
func (p *Stack) Depth() uint {
	return p.scopes.Len()
}

// Enter pushes a new scope holding a given set of variables (which may be
// nil).
func (p *Stack) Enter(vars Scope) {
	scope := make(Scope, len(vars))
	maps.Copy(scope, vars)
	p.scopes.Push(scope)
}

// Exit pops the innermost scope.  The outermost scope cannot be exited.
func (p *Stack) Exit() error {
	if p.scopes.Len() <= 1 {
		return ErrExitMainScope
	}
	//
	p.scopes.Pop()
	//
	return nil
}

// Has checks whether a variable is defined in the innermost scope.
func (p *Stack) Has(name string) bool {
	_, ok := (*p.scopes.Top())[name]
	return ok
}

// Get returns a variable from the innermost scope.
func (p *Stack) Get(name string) (Value, error) {
	if v, ok := (*p.scopes.Top())[name]; ok {
		return v, nil
	}
	//
	return Value{}, fmt.Errorf("%w: %s", ErrVariableNotInScope, name)
}

// Set assigns a variable in the innermost scope.
func (p *Stack) Set(name string, value Value) {
	(*p.scopes.Top())[name] = value
}

// Delete removes a variable from the innermost scope.
func (p *Stack) Delete(name string) {
	delete(*p.scopes.Top(), name)
}

// GetFelt returns a variable of the innermost scope as a field element.
func (p *Stack) GetFelt(name string) (stark252.Element, error) {
	v, err := p.Get(name)
	if err != nil {
		return stark252.Element{}, err
	} else if f, ok := v.AsFelt(); ok {
		return f, nil
	}
	//
	return stark252.Element{}, wrongType(name, v)
}

// GetInt returns a variable of the innermost scope as an integer.
func (p *Stack) GetInt(name string) (*big.Int, error) {
	v, err := p.Get(name)
	if err != nil {
		return nil, err
	} else if n, ok := v.AsInt(); ok {
		return n, nil
	}
	//
	return nil, wrongType(name, v)
}

// GetAddress returns a variable of the innermost scope as an address.
func (p *Stack) GetAddress(name string) (memory.Relocatable, error) {
	v, err := p.Get(name)
	if err != nil {
		return memory.Relocatable{}, err
	} else if r, ok := v.AsAddress(); ok {
		return r, nil
	}
	//
	return memory.Relocatable{}, wrongType(name, v)
}

// GetList returns a variable of the innermost scope as a list.
func (p *Stack) GetList(name string) ([]Value, error) {
	v, err := p.Get(name)
	if err != nil {
		return nil, err
	} else if l, ok := v.AsList(); ok {
		return l, nil
	}
	//
	return nil, wrongType(name, v)
}

func wrongType(name string, v Value) error {
	return fmt.Errorf("%w: %s is %s", ErrWrongType, name, v.Kind().String())
}
