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
package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/consensys/go-cairovm/pkg/vm/instruction"
	"github.com/consensys/go-cairovm/pkg/vm/program"
	"github.com/spf13/cobra"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [flags] program.json",
	Short: "disassemble a compiled Cairo program.",
	Long:  `Prints the instructions of a compiled Cairo program, along with its labels and hints.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		configureLogging(cmd)
		//
		prog := readProgram(args[0])
		labels := labelsByPC(prog)
		//
		for _, line := range instruction.Disassemble(prog.Data) {
			for _, label := range labels[line.PC] {
				fmt.Printf("%s:\n", label)
			}
			//
			if len(prog.Hints[line.PC]) > 0 && !GetFlag(cmd, "no-hints") {
				for _, h := range prog.Hints[line.PC] {
					fmt.Printf("    %%{ %s %%}\n", strings.ReplaceAll(h.Code, "\n", "\n       "))
				}
			}
			//
			if line.Text == "" {
				fmt.Printf("%6d: dw 0x%s\n", line.PC, line.Word.Text(16))
			} else {
				fmt.Printf("%6d: %s\n", line.PC, line.Text)
			}
		}
	},
}

// Determine the (sorted) names of functions and labels at each pc.
func labelsByPC(prog *program.Program) map[uint64][]string {
	labels := make(map[uint64][]string)
	//
	for name, id := range prog.Identifiers {
		if id.PC != nil && (id.Type == "function" || id.Type == "label") {
			labels[*id.PC] = append(labels[*id.PC], name)
		}
	}
	//
	for _, names := range labels {
		sort.Strings(names)
	}
	//
	return labels
}

func init() {
	disasmCmd.Flags().Bool("no-hints", false, "omit hints from the listing")
	rootCmd.AddCommand(disasmCmd)
}
