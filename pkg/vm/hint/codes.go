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

// Codes of the hints provided by the standard library, exactly as they appear
// in compiled programs.
const (
	AddSegment   = "memory[ap] = segments.add()"
	VMEnterScope = "vm_enter_scope()"
	VMExitScope  = "vm_exit_scope()"
	MemcpyEnter  = "vm_enter_scope({'n': ids.len})"
	MemsetEnter  = "vm_enter_scope({'n': ids.n})"

	MemcpyContinue = `n -= 1
ids.continue_copying = 1 if n > 0 else 0`

	MemsetContinue = `n -= 1
ids.continue_loop = 1 if n > 0 else 0`

	IsNN           = "memory[ap] = 0 if 0 <= (ids.a % PRIME) < range_check_builtin.bound else 1"
	IsNNOutOfRange = "memory[ap] = 0 if 0 <= ((-ids.a - 1) % PRIME) < range_check_builtin.bound else 1"
	IsLeFelt       = "memory[ap] = 0 if (ids.a % PRIME) <= (ids.b % PRIME) else 1"

	AssertNN = `from starkware.cairo.common.math_utils import assert_integer
assert_integer(ids.a)
assert 0 <= ids.a % PRIME < range_check_builtin.bound, f'a = {ids.a} is out of range.'`

	AssertNotZero = `from starkware.cairo.common.math_utils import assert_integer
assert_integer(ids.value)
assert ids.value % PRIME != 0, f'assert_not_zero failed: {ids.value} = 0.'`

	AssertNotEqual = `from starkware.cairo.lang.vm.relocatable import RelocatableValue
both_ints = isinstance(ids.a, int) and isinstance(ids.b, int)
both_relocatable = (
    isinstance(ids.a, RelocatableValue) and isinstance(ids.b, RelocatableValue) and
    ids.a.segment_index == ids.b.segment_index)
assert both_ints or both_relocatable, \
    f'assert_not_equal failed: non-comparable values: {ids.a}, {ids.b}.'
assert (ids.a - ids.b) % PRIME != 0, f'assert_not_equal failed: {ids.a} = {ids.b}.'`

	UnsignedDivRem = `from starkware.cairo.common.math_utils import assert_integer
assert_integer(ids.div)
assert 0 < ids.div <= PRIME // range_check_builtin.bound, \
    f'div={hex(ids.div)} is out of the valid range.'
ids.q, ids.r = divmod(ids.value, ids.div)`

	Sqrt = `from starkware.python.math_utils import isqrt
value = ids.value % PRIME
assert value < 2 ** 250, f"value={value} is outside of the range [0, 2**250)."
assert 2 ** 250 < PRIME
ids.root = isqrt(value)`

	FindElement = `array_ptr = ids.array_ptr
elm_size = ids.elm_size
assert isinstance(elm_size, int) and elm_size > 0, \
    f'Invalid value for elm_size. Got: {elm_size}.'
key = ids.key

if '__find_element_index' in globals():
    ids.index = __find_element_index
    found_key = memory[array_ptr + elm_size * __find_element_index]
    assert found_key == key, \
        f'Invalid index found in __find_element_index. index: {__find_element_index}, ' \
        f'expected key {key}, found key: {found_key}.'
    # Delete __find_element_index to make sure it's not used for the next calls.
    del __find_element_index
else:
    n_elms = ids.n_elms
    assert isinstance(n_elms, int) and n_elms >= 0, \
        f'Invalid value for n_elms. Got: {n_elms}.'
    if '__find_element_max_size' in globals():
        assert n_elms <= __find_element_max_size, \
            f'find_element() can only be used with n_elms<={__find_element_max_size}. ' \
            f'Got: n_elms={n_elms}.'

    for i in range(n_elms):
        if memory[array_ptr + elm_size * i] == key:
            ids.index = i
            break
    else:
        raise ValueError(f'Key {key} was not found.')`

	SearchSortedLower = `array_ptr = ids.array_ptr
elm_size = ids.elm_size
assert isinstance(elm_size, int) and elm_size > 0, \
    f'Invalid value for elm_size. Got: {elm_size}.'

n_elms = ids.n_elms
assert isinstance(n_elms, int) and n_elms >= 0, \
    f'Invalid value for n_elms. Got: {n_elms}.'
if '__find_element_max_size' in globals():
    assert n_elms <= __find_element_max_size, \
        f'find_element() can only be used with n_elms<={__find_element_max_size}. ' \
        f'Got: n_elms={n_elms}.'

for i in range(n_elms):
    if memory[array_ptr + elm_size * i] >= ids.key:
        ids.index = i
        break
else:
    ids.index = n_elms`

	VerifyEcdsaSignature = "ecdsa_builtin.add_signature(ids.ecdsa_ptr.address_, (ids.signature_r, ids.signature_s))"
)

var standardHints = map[string]Func{
	AddSegment:           addSegment,
	VMEnterScope:         enterScope,
	VMExitScope:          exitScope,
	MemcpyEnter:          enterCountingScope("len"),
	MemsetEnter:          enterCountingScope("n"),
	MemcpyContinue:       continueCounting("continue_copying"),
	MemsetContinue:       continueCounting("continue_loop"),
	IsNN:                 isNN,
	IsNNOutOfRange:       isNNOutOfRange,
	IsLeFelt:             isLeFelt,
	AssertNN:             assertNN,
	AssertNotZero:        assertNotZero,
	AssertNotEqual:       assertNotEqual,
	UnsignedDivRem:       unsignedDivRem,
	Sqrt:                 sqrt,
	FindElement:          findElement,
	SearchSortedLower:    searchSortedLower,
	VerifyEcdsaSignature: verifyEcdsaSignature,
}
