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
	"github.com/consensys/go-cairovm/pkg/vm/program"
	"github.com/consensys/go-cairovm/pkg/vm/runner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(exitConfig)
	}

	return r
}

// GetString gets an expected string flag, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(exitConfig)
	}

	return r
}

// GetUint gets an expected unsigned integer flag, or exits if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(exitConfig)
	}

	return r
}

// GetUint64 gets an expected 64-bit unsigned integer flag, or exits if an error
// arises.
func GetUint64(cmd *cobra.Command, flag string) uint64 {
	r, err := cmd.Flags().GetUint64(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(exitConfig)
	}

	return r
}

// Read a compiled program, exiting if it cannot be read or parsed.
func readProgram(filename string) *program.Program {
	prog, err := program.ReadFile(filename)
	if err != nil {
		log.Error(err)
		os.Exit(exitIO)
	}
	//
	return prog
}

// Construct the runner configuration from the common execution flags.
func readConfig(cmd *cobra.Command) runner.Config {
	var (
		config     = runner.DefaultConfig()
		layoutFile = GetString(cmd, "layout-file")
		err        error
	)
	//
	if layoutFile != "" {
		config.Layout, err = builtin.ReadLayoutFile(layoutFile)
	} else {
		config.Layout, err = builtin.LookupLayout(GetString(cmd, "layout"))
	}
	//
	if err != nil {
		log.Error(err)
		os.Exit(exitConfig)
	}
	//
	config.ProofMode = GetFlag(cmd, "proof-mode")
	config.MaxSteps = GetUint64(cmd, "max-steps")
	config.DisableTraceCache = GetFlag(cmd, "no-decode-cache")
	// Secure runs are the default outside of proof mode.
	if cmd.Flags().Changed("secure-run") {
		config.SecureRun = GetFlag(cmd, "secure-run")
	} else {
		config.SecureRun = !config.ProofMode
	}
	//
	return config
}

// Register the flags common to commands which execute programs.
func addExecutionFlags(cmd *cobra.Command) {
	cmd.Flags().String("layout", "plain", "layout determining the available builtins")
	cmd.Flags().String("layout-file", "", "YAML file describing a custom layout")
	cmd.Flags().Bool("proof-mode", false, "execute in proof mode (via __start__ and __end__)")
	cmd.Flags().Uint64("max-steps", 0, "maximum number of steps (0 for no limit)")
	cmd.Flags().Bool("secure-run", false, "verify memory accesses and builtin usage (default unless proof mode)")
	cmd.Flags().Bool("no-decode-cache", false, "disable caching of decoded instructions")
}
