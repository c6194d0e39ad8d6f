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
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/instruction"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// OperandKind distinguishes the forms of operand within a reference
// expression.
type OperandKind uint8

const (
	// NoOperand is an absent operand.
	NoOperand OperandKind = iota
	// ImmediateOperand is a constant.
	ImmediateOperand
	// RegisterOperand is a register plus an offset, optionally dereferenced.
	RegisterOperand
)

// Operand is one term of a reference expression.
type Operand struct {
	Kind      OperandKind
	Register  instruction.Register
	Offset    int64
	Deref     bool
	Immediate stark252.Element
}

func (o Operand) String() string {
	switch o.Kind {
	case ImmediateOperand:
		return o.Immediate.Signed().String()
	case RegisterOperand:
		text := o.Register.String()
		//
		if o.Offset != 0 {
			text = fmt.Sprintf("%s + (%d)", text, o.Offset)
		}
		//
		if o.Deref {
			return "[" + text + "]"
		}
		//
		return text
	}
	//
	return ""
}

// Expression is a parsed reference expression, such as "[cast(fp + (-3),
// felt*)]".  Its value is First + Second, dereferenced if Deref holds.
type Expression struct {
	First  Operand
	Second Operand
	Deref  bool
	Type   string
}

// UsesAP checks whether this expression depends on the ap register, in which
// case it must be corrected for ap tracking.
func (e Expression) UsesAP() bool {
	return (e.First.Kind == RegisterOperand && e.First.Register == instruction.AP) ||
		(e.Second.Kind == RegisterOperand && e.Second.Register == instruction.AP)
}

func (e Expression) String() string {
	text := e.First.String()
	//
	if e.Second.Kind != NoOperand {
		text = text + " + " + e.Second.String()
	}
	//
	if e.Type != "" {
		text = fmt.Sprintf("cast(%s, %s)", text, e.Type)
	}
	//
	if e.Deref {
		return "[" + text + "]"
	}
	//
	return text
}

// Address computes the address of the variable described by this expression,
// which is only defined for dereferencing expressions.
func (e Expression) Address(ap, fp memory.Relocatable, mem *memory.Memory) (memory.Relocatable, error) {
	if !e.Deref {
		return memory.Relocatable{}, fmt.Errorf("reference %s has no address", e.String())
	}
	//
	v, err := e.inner(ap, fp, mem)
	if err != nil {
		return memory.Relocatable{}, err
	} else if r, ok := v.Address(); ok {
		return r, nil
	}
	//
	return memory.Relocatable{}, fmt.Errorf("reference %s does not evaluate to an address", e.String())
}

// Eval computes the value of the variable described by this expression.
func (e Expression) Eval(ap, fp memory.Relocatable, mem *memory.Memory) (memory.Value, error) {
	v, err := e.inner(ap, fp, mem)
	//
	if err != nil || !e.Deref {
		return v, err
	} else if r, ok := v.Address(); ok {
		return mem.Get(r)
	}
	//
	return v, fmt.Errorf("cannot dereference %s", v.String())
}

func (e Expression) inner(ap, fp memory.Relocatable, mem *memory.Memory) (memory.Value, error) {
	first, err := e.First.eval(ap, fp, mem)
	//
	if err != nil || e.Second.Kind == NoOperand {
		return first, err
	}
	//
	second, err := e.Second.eval(ap, fp, mem)
	if err != nil {
		return first, err
	}
	//
	return first.Add(second)
}

func (o Operand) eval(ap, fp memory.Relocatable, mem *memory.Memory) (memory.Value, error) {
	if o.Kind == ImmediateOperand {
		return memory.FeltValue(o.Immediate), nil
	}
	//
	base := ap
	if o.Register == instruction.FP {
		base = fp
	}
	//
	addr, err := base.AddInt(o.Offset)
	//
	if err != nil {
		return memory.Value{}, err
	} else if o.Deref {
		return mem.Get(addr)
	}
	//
	return memory.AddressValue(addr), nil
}

// ParseExpression parses a reference expression, as found in the reference
// manager of a compiled program.  Examples include "[cast(fp + (-3), felt*)]",
// "cast(ap + 1, felt*)", "[cast([fp + (-4)] + 2, felt*)]" and "cast(7, felt)".
func ParseExpression(text string) (Expression, error) {
	var expr Expression
	//
	text = strings.TrimSpace(text)
	//
	if enclosed(text, '[', ']') {
		expr.Deref = true
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	//
	if strings.HasPrefix(text, "cast(") && enclosed(text[4:], '(', ')') {
		inner := text[5 : len(text)-1]
		comma := lastTopLevel(inner, ',')
		//
		if comma < 0 {
			return expr, fmt.Errorf("malformed cast in %q", text)
		}
		//
		expr.Type = strings.TrimSpace(inner[comma+1:])
		text = inner[:comma]
	}
	//
	first, second, err := parseSum(text)
	expr.First, expr.Second = first, second
	//
	return expr, err
}

func parseSum(text string) (Operand, Operand, error) {
	var (
		operands []Operand
		constant = new(big.Int)
	)
	//
	for _, term := range splitTopLevel(text, '+') {
		term = strings.TrimSpace(term)
		// strip redundant parentheses, as in "(-3)"
		for enclosed(term, '(', ')') {
			term = strings.TrimSpace(term[1 : len(term)-1])
		}
		//
		switch {
		case term == "ap" || term == "fp":
			operands = append(operands, Operand{Kind: RegisterOperand, Register: register(term)})
		case enclosed(term, '[', ']'):
			op, err := parseDeref(term[1 : len(term)-1])
			if err != nil {
				return Operand{}, Operand{}, err
			}
			//
			operands = append(operands, op)
		default:
			n, ok := new(big.Int).SetString(strings.ReplaceAll(term, " ", ""), 0)
			if !ok {
				return Operand{}, Operand{}, fmt.Errorf("unexpected term %q", term)
			}
			//
			constant.Add(constant, n)
		}
	}
	//
	switch len(operands) {
	case 0:
		return immediate(constant), Operand{}, nil
	case 1:
		if operands[0].Deref {
			if constant.Sign() == 0 {
				return operands[0], Operand{}, nil
			}
			//
			return operands[0], immediate(constant), nil
		} else if !constant.IsInt64() {
			return Operand{}, Operand{}, fmt.Errorf("offset %s out of range", constant.String())
		}
		//
		operands[0].Offset += constant.Int64()
		//
		return operands[0], Operand{}, nil
	case 2:
		if constant.Sign() == 0 {
			return operands[0], operands[1], nil
		}
	}
	//
	return Operand{}, Operand{}, fmt.Errorf("unsupported expression %q", text)
}

// parseDeref parses the body of "[reg + offset]".
func parseDeref(text string) (Operand, error) {
	op, second, err := parseSum(text)
	//
	if err != nil {
		return op, err
	} else if op.Kind != RegisterOperand || op.Deref || second.Kind != NoOperand {
		return op, fmt.Errorf("unsupported dereference [%s]", text)
	}
	//
	op.Deref = true
	//
	return op, nil
}

func immediate(n *big.Int) Operand {
	return Operand{Kind: ImmediateOperand, Immediate: stark252.FromBigInt(n)}
}

func register(name string) instruction.Register {
	if name == "fp" {
		return instruction.FP
	}
	//
	return instruction.AP
}

// enclosed checks whether text is wrapped by a matching pair of brackets (i.e.
// the opening bracket is closed by the final character).
func enclosed(text string, lhs, rhs byte) bool {
	if len(text) < 2 || text[0] != lhs || text[len(text)-1] != rhs {
		return false
	}
	//
	depth := 0
	//
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			//
			if depth == 0 && i != len(text)-1 {
				return false
			}
		}
	}
	//
	return depth == 0
}

func splitTopLevel(text string, sep byte) []string {
	var (
		parts []string
		depth int
		start int
	)
	//
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, text[start:i])
				start = i + 1
			}
		}
	}
	//
	return append(parts, text[start:])
}

func lastTopLevel(text string, sep byte) int {
	depth := 0
	//
	for i := len(text) - 1; i >= 0; i-- {
		switch text[i] {
		case ')', ']':
			depth++
		case '(', '[':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	//
	return -1
}
