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
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

func Test_Relocate(t *testing.T) {
	entries := []Entry{
		{memory.NewRelocatable(0, 0), memory.NewRelocatable(1, 2), memory.NewRelocatable(1, 2)},
		{memory.NewRelocatable(0, 2), memory.NewRelocatable(1, 3), memory.NewRelocatable(1, 2)},
	}
	//
	relocated, err := Relocate(entries, []uint64{1, 5})
	require.NoError(t, err)
	assert.Equal(t, []RelocatedEntry{{1, 7, 7}, {3, 8, 7}}, relocated)
	//
	_, err = Relocate(entries, []uint64{1})
	assert.ErrorIs(t, err, memory.ErrRelocation)
}

func Test_WriteTrace(t *testing.T) {
	var buf bytes.Buffer
	//
	entries := []RelocatedEntry{{1, 7, 7}, {3, 8, 7}}
	require.NoError(t, WriteTrace(entries, &buf))
	// Three big-endian words per step, in (pc, ap, fp) order
	data := buf.Bytes()
	require.Len(t, data, 48)
	assert.Equal(t, uint64(1), binary.BigEndian.Uint64(data[0:8]))
	assert.Equal(t, uint64(7), binary.BigEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(8), binary.BigEndian.Uint64(data[32:40]))
	//
	read, err := ReadTrace(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, entries, read)
}

func Test_WriteMemory(t *testing.T) {
	var buf bytes.Buffer
	//
	cells := []memory.Cell{{Address: 1, Value: stark252.New(0x1234)}, {Address: 4, Value: stark252.FromInt64(-1)}}
	require.NoError(t, WriteMemory(cells, &buf))
	//
	data := buf.Bytes()
	require.Len(t, data, 80)
	assert.Equal(t, uint64(1), binary.BigEndian.Uint64(data[0:8]))
	assert.Equal(t, []byte{0x12, 0x34}, data[38:40])
	assert.Equal(t, byte(0x08), data[48])
	//
	read, err := ReadMemory(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, read, 2)
	assert.Equal(t, uint64(4), read[1].Address)
	assert.True(t, read[1].Value.Equal(stark252.FromInt64(-1)))
	// Truncated files are rejected
	_, err = ReadMemory(bytes.NewReader(data[:50]))
	assert.Error(t, err)
}
