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

	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/spf13/cobra"
)

var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "list the available layouts.",
	Long:  `Lists the built-in layouts, along with their builtins and ratios.`,
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)
		//
		for _, name := range builtin.LayoutNames() {
			layout, err := builtin.LookupLayout(name)
			if err != nil {
				fmt.Println(err)
				os.Exit(exitConfig)
			}
			//
			fmt.Printf("%s:", name)
			//
			for _, b := range layout.Builtins {
				if b.Ratio == 0 {
					fmt.Printf(" %s", b.Name)
				} else {
					fmt.Printf(" %s(%d)", b.Name, b.Ratio)
				}
			}
			//
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(layoutsCmd)
}
