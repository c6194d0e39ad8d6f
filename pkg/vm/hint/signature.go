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
	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// ecdsa_builtin.add_signature(ids.ecdsa_ptr.address_, (ids.signature_r, ids.signature_s))
func verifyEcdsaSignature(ctx *Context) error {
	runner, ok := ctx.Builtin(builtin.Ecdsa)
	if !ok {
		return failf(builtin.ErrBuiltinNotInLayout, "%s", builtin.Ecdsa)
	}
	//
	ecdsa, ok := runner.(*builtin.EcdsaRunner)
	if !ok {
		return failf(builtin.ErrBuiltinNotInLayout, "%s", builtin.Ecdsa)
	}
	//
	ptr, err := ctx.Ids.Get("ecdsa_ptr." + addressMember)
	if err != nil {
		return err
	}
	//
	addr, ok := ptr.Address()
	if !ok {
		return failf(memory.ErrNotRelocatable, "ids.ecdsa_ptr = %s", ptr.String())
	}
	//
	r, err := ctx.Ids.GetFelt("signature_r")
	if err != nil {
		return err
	}
	//
	s, err := ctx.Ids.GetFelt("signature_s")
	if err != nil {
		return err
	}
	//
	return ecdsa.AddSignature(addr, builtin.Signature{R: r, S: s})
}
