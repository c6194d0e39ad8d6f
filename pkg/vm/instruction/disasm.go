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
package instruction

import (
	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
)

// Line is one line of a disassembly listing.
type Line struct {
	// Offset of the first word of this line.
	PC uint64
	// Number of words covered (one or two).
	Size uint64
	// Assembly text, or empty for a word which is not a valid instruction.
	Text string
	// Raw word at PC.
	Word stark252.Element
}

// Disassemble a sequence of program words.  Words which do not decode are
// reported as data (with empty text), and disassembly continues with the next
// word.
func Disassemble(words []stark252.Element) []Line {
	var lines []Line
	//
	for pc := uint64(0); pc < uint64(len(words)); {
		line := Line{PC: pc, Size: 1, Word: words[pc]}
		//
		if insn, err := DecodeFelt(words[pc]); err == nil {
			var imm *stark252.Element
			//
			if insn.Size() == 2 && pc+1 < uint64(len(words)) {
				imm = &words[pc+1]
				line.Size = 2
			}
			//
			line.Text = insn.Format(imm)
		}
		//
		lines = append(lines, line)
		pc += line.Size
	}
	//
	return lines
}
