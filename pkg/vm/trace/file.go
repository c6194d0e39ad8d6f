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
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
)

// WriteTrace writes a relocated trace as a sequence of (pc, ap, fp) triples,
// each register being an unsigned 64-bit big-endian integer.
func WriteTrace(entries []RelocatedEntry, writer io.Writer) error {
	buf := bufio.NewWriter(writer)
	//
	for _, e := range entries {
		if err := binary.Write(buf, binary.BigEndian, [3]uint64{e.PC, e.AP, e.FP}); err != nil {
			return err
		}
	}
	//
	return buf.Flush()
}

// WriteMemory writes relocated memory as a sequence of (address, value) pairs,
// where the address is an unsigned 64-bit big-endian integer and the value is a
// 32-byte big-endian field element.
func WriteMemory(cells []memory.Cell, writer io.Writer) error {
	buf := bufio.NewWriter(writer)
	//
	for _, c := range cells {
		value := c.Value.Bytes32()
		//
		if err := binary.Write(buf, binary.BigEndian, c.Address); err != nil {
			return err
		} else if _, err := buf.Write(value[:]); err != nil {
			return err
		}
	}
	//
	return buf.Flush()
}

// ReadTrace reads a relocated trace written by WriteTrace.
func ReadTrace(reader io.Reader) ([]RelocatedEntry, error) {
	var (
		entries []RelocatedEntry
		buf     = bufio.NewReader(reader)
	)
	//
	for {
		var regs [3]uint64
		//
		if err := binary.Read(buf, binary.BigEndian, &regs); errors.Is(err, io.EOF) {
			return entries, nil
		} else if err != nil {
			return nil, err
		}
		//
		entries = append(entries, RelocatedEntry{regs[0], regs[1], regs[2]})
	}
}

// ReadMemory reads relocated memory written by WriteMemory.
func ReadMemory(reader io.Reader) ([]memory.Cell, error) {
	var (
		cells []memory.Cell
		buf   = bufio.NewReader(reader)
	)
	//
	for {
		var (
			address uint64
			value   [stark252.Bytes]byte
		)
		//
		if err := binary.Read(buf, binary.BigEndian, &address); errors.Is(err, io.EOF) {
			return cells, nil
		} else if err != nil {
			return nil, err
		} else if _, err := io.ReadFull(buf, value[:]); err != nil {
			return nil, err
		}
		//
		cells = append(cells, memory.Cell{Address: address, Value: stark252.Element{}.SetBytes(value[:])})
	}
}
