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
package program

import (
	"encoding/json"
	"math/big"
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// ApTracking identifies the value of ap relative to the start of a flow
// tracking group.  References relative to ap are only meaningful when compared
// within the same group.
type ApTracking struct {
	Group  int `json:"group"`
	Offset int `json:"offset"`
}

// FlowTrackingData records the state of the compiler's flow tracking at a given
// pc, including which references are visible.
type FlowTrackingData struct {
	ApTracking   ApTracking     `json:"ap_tracking"`
	ReferenceIds map[string]int `json:"reference_ids"`
}

// HintParams describes a hint attached to a given pc.
type HintParams struct {
	Code             string           `json:"code"`
	AccessibleScopes []string         `json:"accessible_scopes"`
	FlowTrackingData FlowTrackingData `json:"flow_tracking_data"`
}

// Identifier is a named entity in the program (function, label, constant,
// etc).
type Identifier struct {
	Type        string   `json:"type"`
	PC          *uint64  `json:"pc,omitempty"`
	Value       *big.Int `json:"value,omitempty"`
	Destination string   `json:"destination,omitempty"`
	FullName    string   `json:"full_name,omitempty"`
	CairoType   string   `json:"cairo_type,omitempty"`
	Size        *uint64  `json:"size,omitempty"`
	Offset      *uint64  `json:"offset,omitempty"`
}

// Reference is an entry of the reference manager, describing how a Cairo
// variable is computed from the registers.
type Reference struct {
	ApTrackingData ApTracking `json:"ap_tracking_data"`
	PC             *uint64    `json:"pc,omitempty"`
	Value          string     `json:"value"`
	// Parsed form of Value.
	expr Expression
	err  error
}

// Expression returns the parsed form of this reference.  References which
// cannot be parsed are only reported when used.
func (p *Reference) Expression() (Expression, error) {
	return p.expr, p.err
}

// Attribute is a compiler attribute attached to a pc range (e.g. an error
// message).
type Attribute struct {
	Name             string   `json:"name"`
	StartPC          uint64   `json:"start_pc"`
	EndPC            uint64   `json:"end_pc"`
	Value            string   `json:"value"`
	AccessibleScopes []string `json:"accessible_scopes,omitempty"`
}

// Program is a compiled Cairo program.
type Program struct {
	// Bytecode (and immediate data)
	Data []stark252.Element
	// Builtins used by this program, in order.
	Builtins []string
	// Hints attached to each pc.
	Hints map[uint64][]HintParams
	// Named entities of the program.
	Identifiers map[string]Identifier
	// Main scope (typically "__main__").
	MainScope string
	// References available to hints.
	References []Reference
	// Attributes attached to pc ranges.
	Attributes []Attribute
	// Constants defined by the program, by full name.
	Constants map[string]stark252.Element
}

type rawReferenceManager struct {
	References []Reference `json:"references"`
}

type rawProgram struct {
	Attributes       []Attribute             `json:"attributes"`
	Builtins         []string                `json:"builtins"`
	Data             []string                `json:"data"`
	Hints            map[string][]HintParams `json:"hints"`
	Identifiers      map[string]Identifier   `json:"identifiers"`
	MainScope        string                  `json:"main_scope"`
	Prime            string                  `json:"prime"`
	ReferenceManager rawReferenceManager     `json:"reference_manager"`
}

// ReadFile parses a compiled program from a JSON file.
func ReadFile(filename string) (*Program, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read program")
	}
	//
	return Parse(bytes)
}

// Parse a compiled program from its JSON representation.
func Parse(bytes []byte) (*Program, error) {
	var raw rawProgram
	//
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil, errors.Wrap(err, "malformed program")
	}
	// Check prime
	if prime, ok := new(big.Int).SetString(raw.Prime, 0); !ok || prime.Cmp(stark252.Modulus()) != 0 {
		return nil, errors.Errorf("unsupported prime %q", raw.Prime)
	}
	//
	prog := &Program{
		Data:        make([]stark252.Element, len(raw.Data)),
		Builtins:    raw.Builtins,
		Hints:       make(map[uint64][]HintParams, len(raw.Hints)),
		Identifiers: raw.Identifiers,
		MainScope:   raw.MainScope,
		References:  raw.ReferenceManager.References,
		Attributes:  raw.Attributes,
		Constants:   make(map[string]stark252.Element),
	}
	//
	if prog.Identifiers == nil {
		prog.Identifiers = make(map[string]Identifier)
	}
	//
	for i, word := range raw.Data {
		f, err := stark252.FromString(word)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid data word %d", i)
		}
		//
		prog.Data[i] = f
	}
	//
	for key, hints := range raw.Hints {
		pc, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid hint pc %q", key)
		}
		//
		prog.Hints[pc] = hints
	}
	//
	for i := range prog.References {
		ref := &prog.References[i]
		//
		if ref.expr, ref.err = ParseExpression(ref.Value); ref.err != nil {
			ref.err = errors.Wrapf(ref.err, "invalid reference %d", i)
		}
	}
	//
	for name, id := range prog.Identifiers {
		if id.Type == "const" && id.Value != nil {
			prog.Constants[name] = stark252.FromBigInt(id.Value)
		}
	}
	//
	return prog, nil
}

// Resolve looks up an identifier by full name, following aliases.
func (p *Program) Resolve(name string) (Identifier, bool) {
	for range len(p.Identifiers) + 1 {
		id, ok := p.Identifiers[name]
		//
		if !ok {
			return id, false
		} else if id.Type != "alias" {
			return id, true
		}
		//
		name = id.Destination
	}
	// cyclic aliases
	return Identifier{}, false
}

// LabelPC returns the pc of a function or label within the main scope.
func (p *Program) LabelPC(name string) (uint64, bool) {
	id, ok := p.Resolve(p.MainScope + "." + name)
	//
	if !ok || id.PC == nil {
		return 0, false
	}
	//
	return *id.PC, true
}

// Main returns the pc of the main function, if there is one.
func (p *Program) Main() (uint64, bool) {
	return p.LabelPC("main")
}

// Start returns the pc of the __start__ label used in proof mode.
func (p *Program) Start() (uint64, bool) {
	return p.LabelPC("__start__")
}

// End returns the pc of the __end__ label used in proof mode.
func (p *Program) End() (uint64, bool) {
	return p.LabelPC("__end__")
}

// HintPCs returns the pcs at which hints are attached, in increasing order.
func (p *Program) HintPCs() []uint64 {
	pcs := make([]uint64, 0, len(p.Hints))
	//
	for pc := range p.Hints {
		pcs = append(pcs, pc)
	}
	//
	sort.Slice(pcs, func(i, j int) bool { return pcs[i] < pcs[j] })
	//
	return pcs
}

// DataValues returns the program data as memory values.
func (p *Program) DataValues() []memory.Value {
	values := make([]memory.Value, len(p.Data))
	//
	for i, f := range p.Data {
		values[i] = memory.FeltValue(f)
	}
	//
	return values
}

// ErrorMessage returns the error message attribute covering a given pc, if
// any.
func (p *Program) ErrorMessage(pc uint64) (string, bool) {
	for _, attr := range p.Attributes {
		if attr.Name == "error_message" && attr.StartPC <= pc && pc < attr.EndPC {
			return attr.Value, true
		}
	}
	//
	return "", false
}
