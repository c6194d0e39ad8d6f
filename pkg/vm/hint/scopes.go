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

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/scope"
)

// memory[ap] = segments.add()
func addSegment(ctx *Context) error {
	base := ctx.VM.Segments.Add()
	//
	return ctx.Memory().Insert(ctx.VM.Context.AP, memory.AddressValue(base))
}

// vm_enter_scope()
func enterScope(ctx *Context) error {
	ctx.Scopes.Enter(nil)
	return nil
}

// vm_exit_scope()
func exitScope(ctx *Context) error {
	return ctx.Scopes.Exit()
}

// enterCountingScope enters a new scope whose variable n is initialised from a
// given ids variable (as used by memcpy and memset).
func enterCountingScope(name string) Func {
	return func(ctx *Context) error {
		n, err := ctx.Ids.GetFelt(name)
		if err != nil {
			return err
		}
		//
		ctx.Scopes.Enter(scope.Scope{"n": scope.Int(n.BigInt())})
		//
		return nil
	}
}

// continueCounting decrements the scope variable n, and sets a given ids flag
// to whether it remains positive.
func continueCounting(flag string) Func {
	return func(ctx *Context) error {
		n, err := ctx.Scopes.GetInt("n")
		if err != nil {
			return err
		}
		//
		n = new(big.Int).Sub(n, big.NewInt(1))
		ctx.Scopes.Set("n", scope.Int(n))
		//
		if n.Sign() > 0 {
			return ctx.Ids.SetFelt(flag, stark252.New(1))
		}
		//
		return ctx.Ids.SetFelt(flag, stark252.New(0))
	}
}
