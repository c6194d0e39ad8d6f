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
	"math/big"

	"github.com/consensys/go-cairovm/pkg/util/field"
	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

var twoTo250 = field.TwoPowN[stark252.Element](250)

// writeFlag writes 0 to [ap] when a condition holds, and 1 otherwise.
func writeFlag(ctx *Context, holds bool) error {
	flag := uint64(1)
	//
	if holds {
		flag = 0
	}
	//
	return ctx.Memory().Insert(ctx.VM.Context.AP, memory.Uint64Value(flag))
}

func isNN(ctx *Context) error {
	a, err := ctx.Ids.GetFelt("a")
	if err != nil {
		return err
	}
	//
	return writeFlag(ctx, a.BigInt().Cmp(ctx.RangeCheckBound()) < 0)
}

func isNNOutOfRange(ctx *Context) error {
	a, err := ctx.Ids.GetFelt("a")
	if err != nil {
		return err
	}
	//
	v := a.Neg().Sub(stark252.New(1))
	//
	return writeFlag(ctx, v.BigInt().Cmp(ctx.RangeCheckBound()) < 0)
}

func isLeFelt(ctx *Context) error {
	a, err := ctx.Ids.GetFelt("a")
	if err != nil {
		return err
	}
	//
	b, err := ctx.Ids.GetFelt("b")
	if err != nil {
		return err
	}
	//
	return writeFlag(ctx, a.Cmp(b) <= 0)
}

func assertNN(ctx *Context) error {
	a, err := ctx.Ids.GetFelt("a")
	if err != nil {
		return err
	}
	//
	if a.BigInt().Cmp(ctx.RangeCheckBound()) >= 0 {
		return failf(ErrValueOutOfRange, "a = %s is out of range", a.String())
	}
	//
	return nil
}

func assertNotZero(ctx *Context) error {
	value, err := ctx.Ids.GetFelt("value")
	if err != nil {
		return err
	}
	//
	if value.IsZero() {
		return failf(ErrAssertionFailed, "assert_not_zero failed: %s = 0", value.String())
	}
	//
	return nil
}

func assertNotEqual(ctx *Context) error {
	a, err := ctx.Ids.Get("a")
	if err != nil {
		return err
	}
	//
	b, err := ctx.Ids.Get("b")
	if err != nil {
		return err
	}
	//
	diff, err := a.Sub(b)
	if err != nil || a.IsFelt() != b.IsFelt() {
		return failf(ErrAssertionFailed, "assert_not_equal failed: non-comparable values: %s, %s", a.String(),
			b.String())
	} else if diff.IsZero() {
		return failf(ErrAssertionFailed, "assert_not_equal failed: %s = %s", a.String(), b.String())
	}
	//
	return nil
}

func unsignedDivRem(ctx *Context) error {
	div, err := ctx.Ids.GetFelt("div")
	if err != nil {
		return err
	}
	//
	value, err := ctx.Ids.GetFelt("value")
	if err != nil {
		return err
	}
	//
	limit := new(big.Int).Div(stark252.Modulus(), ctx.RangeCheckBound())
	//
	if div.IsZero() || div.BigInt().Cmp(limit) > 0 {
		return failf(ErrValueOutOfRange, "div=0x%s is out of the valid range", div.Text(16))
	}
	//
	q, r := new(big.Int).DivMod(value.BigInt(), div.BigInt(), new(big.Int))
	//
	if err = ctx.Ids.SetFelt("q", stark252.FromBigInt(q)); err != nil {
		return err
	}
	//
	return ctx.Ids.SetFelt("r", stark252.FromBigInt(r))
}

func sqrt(ctx *Context) error {
	value, err := ctx.Ids.GetFelt("value")
	if err != nil {
		return err
	}
	//
	if value.Cmp(twoTo250) >= 0 {
		return failf(ErrValueOutOfRange, "value=%s is outside of the range [0, 2**250)", value.String())
	}
	//
	return ctx.Ids.SetFelt("root", stark252.FromBigInt(new(big.Int).Sqrt(value.BigInt())))
}
