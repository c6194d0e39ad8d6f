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
	"strings"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/program"
)

// addressMember is the pseudo-member giving the address of a variable (or, for
// pointers, the address held by the variable).
const addressMember = "address_"

// reference is a compiled ids variable.
type reference struct {
	expr     program.Expression
	tracking program.ApTracking
}

// Ids provides access to the Cairo variables visible to a hint.  References
// relative to ap are corrected for any ap movement between their definition
// and the hint.
type Ids struct {
	refs     map[string]reference
	tracking program.ApTracking
	machine  *vm.VirtualMachine
}

// Names returns the names of all variables visible to the hint.
func (p *Ids) Names() []string {
	names := make([]string, 0, len(p.refs))
	//
	for name := range p.refs {
		names = append(names, name)
	}
	//
	return names
}

// Address returns the address of a given variable, which must be stored in
// memory.
func (p *Ids) Address(name string) (memory.Relocatable, error) {
	ref, ap, err := p.resolve(name)
	if err != nil {
		return memory.Relocatable{}, err
	}
	//
	return ref.expr.Address(ap, p.machine.Context.FP, p.machine.Memory())
}

// Get returns the value of a given variable.  The member "address_" gives the
// address of a variable (or the value of a pointer variable).
func (p *Ids) Get(name string) (memory.Value, error) {
	if base, member, ok := strings.Cut(name, "."); ok && member == addressMember {
		if v, err := p.Get(base); err == nil && v.IsAddress() {
			return v, nil
		}
		//
		addr, err := p.Address(base)
		//
		return memory.AddressValue(addr), err
	}
	//
	ref, ap, err := p.resolve(name)
	if err != nil {
		return memory.Value{}, err
	}
	//
	return ref.expr.Eval(ap, p.machine.Context.FP, p.machine.Memory())
}

// GetFelt returns the value of a variable which must be a field element.
func (p *Ids) GetFelt(name string) (stark252.Element, error) {
	v, err := p.Get(name)
	if err != nil {
		return stark252.Element{}, err
	}
	//
	if f, ok := v.Felt(); ok {
		return f, nil
	}
	//
	return stark252.Element{}, failf(memory.ErrNotFelt, "ids.%s = %s", name, v.String())
}

// GetAddress returns the value of a variable which must be an address.
func (p *Ids) GetAddress(name string) (memory.Relocatable, error) {
	v, err := p.Get(name)
	if err != nil {
		return memory.Relocatable{}, err
	}
	//
	if r, ok := v.Address(); ok {
		return r, nil
	}
	//
	return memory.Relocatable{}, failf(memory.ErrNotRelocatable, "ids.%s = %s", name, v.String())
}

// Set assigns a value to a given variable, writing its memory cell.
func (p *Ids) Set(name string, value memory.Value) error {
	addr, err := p.Address(name)
	if err != nil {
		return err
	}
	//
	return p.machine.Memory().Insert(addr, value)
}

// SetFelt assigns a field element to a given variable.
func (p *Ids) SetFelt(name string, value stark252.Element) error {
	return p.Set(name, memory.FeltValue(value))
}

// resolve a variable, returning its reference along with the value of ap
// against which it should be evaluated.
func (p *Ids) resolve(name string) (reference, memory.Relocatable, error) {
	ref, ok := p.refs[name]
	ap := p.machine.Context.AP
	//
	if !ok {
		return ref, ap, failf(ErrUnknownIdentifier, "ids.%s", name)
	} else if !ref.expr.UsesAP() {
		return ref, ap, nil
	} else if ref.tracking.Group != p.tracking.Group {
		return ref, ap, failf(ErrInvalidApTracking, "ids.%s defined in group %d, used in group %d", name,
			ref.tracking.Group, p.tracking.Group)
	}
	// Undo any ap movement since the reference was defined.
	ap, err := ap.AddInt(int64(ref.tracking.Offset - p.tracking.Offset))
	//
	return ref, ap, err
}
