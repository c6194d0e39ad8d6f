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
package trace

import (
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// Entry records the registers at the start of a single execution step.
type Entry struct {
	PC memory.Relocatable
	AP memory.Relocatable
	FP memory.Relocatable
}

// RelocatedEntry is an entry whose registers have been relocated into the flat
// address space.
type RelocatedEntry struct {
	PC uint64
	AP uint64
	FP uint64
}

// Relocate maps every entry of a trace into the flat address space, using a
// given relocation table.
func Relocate(entries []Entry, table []uint64) ([]RelocatedEntry, error) {
	var (
		relocated = make([]RelocatedEntry, len(entries))
		err       error
	)
	//
	for i, e := range entries {
		r := &relocated[i]
		//
		if r.PC, err = memory.RelocateAddress(e.PC, table); err != nil {
			return nil, err
		} else if r.AP, err = memory.RelocateAddress(e.AP, table); err != nil {
			return nil, err
		} else if r.FP, err = memory.RelocateAddress(e.FP, table); err != nil {
			return nil, err
		}
	}
	//
	return relocated, nil
}
