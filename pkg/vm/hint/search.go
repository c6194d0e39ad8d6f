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
	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

const (
	// Scope variable fixing the index returned by find_element.
	findElementIndex = "__find_element_index"
	// Scope variable bounding the number of elements searched.
	findElementMaxSize = "__find_element_max_size"
)

// array describes the array parameters shared by the search hints.
type array struct {
	ptr     memory.Relocatable
	elmSize uint64
	nElms   uint64
}

func readArray(ctx *Context, withLength bool) (array, error) {
	var (
		arr array
		err error
	)
	//
	if arr.ptr, err = ctx.Ids.GetAddress("array_ptr"); err != nil {
		return arr, err
	}
	//
	size, err := ctx.Ids.GetFelt("elm_size")
	if err != nil {
		return arr, err
	} else if size.IsZero() || !size.IsUint64() {
		return arr, failf(ErrValueOutOfRange, "invalid value for elm_size: %s", size.String())
	}
	//
	arr.elmSize = size.Uint64()
	//
	if !withLength {
		return arr, nil
	}
	//
	n, err := ctx.Ids.GetFelt("n_elms")
	if err != nil {
		return arr, err
	} else if !n.IsUint64() {
		return arr, failf(ErrValueOutOfRange, "invalid value for n_elms: %s", n.String())
	}
	//
	arr.nElms = n.Uint64()
	//
	if ctx.Scopes.Has(findElementMaxSize) {
		limit, err := ctx.Scopes.GetInt(findElementMaxSize)
		if err != nil {
			return arr, err
		} else if limit.IsUint64() && arr.nElms > limit.Uint64() {
			return arr, failf(ErrValueOutOfRange, "find_element() can only be used with n_elms<=%s, got %d",
				limit.String(), arr.nElms)
		}
	}
	//
	return arr, nil
}

// key returns the key of the i'th element of an array.
func (a *array) key(mem *memory.Memory, i uint64) (memory.Value, error) {
	return mem.Get(a.ptr.AddUint(a.elmSize * i))
}

func findElement(ctx *Context) error {
	key, err := ctx.Ids.Get("key")
	if err != nil {
		return err
	}
	//
	if ctx.Scopes.Has(findElementIndex) {
		return findKnownElement(ctx, key)
	}
	//
	arr, err := readArray(ctx, true)
	if err != nil {
		return err
	}
	//
	for i := uint64(0); i < arr.nElms; i++ {
		k, err := arr.key(ctx.Memory(), i)
		if err != nil {
			return err
		} else if k.Equal(key) {
			return ctx.Ids.SetFelt("index", stark252.New(i))
		}
	}
	//
	return failf(ErrKeyNotFound, "key %s was not found", key.String())
}

// findKnownElement checks an index supplied through the scope, consuming it.
func findKnownElement(ctx *Context, key memory.Value) error {
	arr, err := readArray(ctx, false)
	if err != nil {
		return err
	}
	//
	index, err := ctx.Scopes.GetInt(findElementIndex)
	if err != nil {
		return err
	} else if !index.IsUint64() {
		return failf(ErrValueOutOfRange, "invalid index %s", index.String())
	}
	//
	if err = ctx.Ids.SetFelt("index", stark252.FromBigInt(index)); err != nil {
		return err
	}
	//
	found, err := arr.key(ctx.Memory(), index.Uint64())
	if err != nil {
		return err
	} else if !found.Equal(key) {
		return failf(ErrAssertionFailed, "invalid index found in %s: index %s, expected key %s, found key %s",
			findElementIndex, index.String(), key.String(), found.String())
	}
	//
	ctx.Scopes.Delete(findElementIndex)
	//
	return nil
}

func searchSortedLower(ctx *Context) error {
	arr, err := readArray(ctx, true)
	if err != nil {
		return err
	}
	//
	key, err := ctx.Ids.GetFelt("key")
	if err != nil {
		return err
	}
	//
	for i := uint64(0); i < arr.nElms; i++ {
		k, err := arr.key(ctx.Memory(), i)
		if err != nil {
			return err
		}
		//
		f, ok := k.Felt()
		if !ok {
			return failf(memory.ErrNotFelt, "array element %d is %s", i, k.String())
		} else if f.Cmp(key) >= 0 {
			return ctx.Ids.SetFelt("index", stark252.New(i))
		}
	}
	//
	return ctx.Ids.SetFelt("index", stark252.New(arr.nElms))
}
