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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/consensys/go-cairovm/pkg/util"
	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/runner"
	"github.com/consensys/go-cairovm/pkg/vm/trace"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] program.json",
	Short: "execute a compiled Cairo program.",
	Long: `Executes a compiled Cairo program to completion.  The relocated trace and memory are written only
when the run completes successfully.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		configureLogging(cmd)
		//
		var (
			prog       = readProgram(args[0])
			config     = readConfig(cmd)
			traceFile  = GetString(cmd, "trace-file")
			memoryFile = GetString(cmd, "memory-file")
		)
		//
		config.TraceEnabled = traceFile != "" || config.ProofMode || GetFlag(cmd, "print-resources")
		//
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		//
		stats := util.NewPerfStats()
		res, err := runner.Run(ctx, prog, config)
		//
		if err != nil {
			log.Error(err)
			os.Exit(exitExecution)
		}
		//
		stats.Log("Execution")
		//
		if traceFile != "" {
			writeFile(traceFile, func(f *os.File) error { return trace.WriteTrace(res.Relocated.Trace, f) })
		}
		//
		if memoryFile != "" {
			writeFile(memoryFile, func(f *os.File) error { return trace.WriteMemory(res.Relocated.Memory, f) })
		}
		//
		if GetFlag(cmd, "print-output") {
			printOutput(res.Output)
		}
		//
		if GetFlag(cmd, "print-resources") {
			printResources(res)
		}
	},
}

// Create (or truncate) a file and write to it, exiting on failure.
func writeFile(filename string, write func(*os.File) error) {
	file, err := os.Create(filename)
	if err != nil {
		log.Error(err)
		os.Exit(exitIO)
	}
	//
	if err = write(file); err == nil {
		err = file.Close()
	} else {
		file.Close()
	}
	//
	if err != nil {
		log.Error(err)
		os.Exit(exitIO)
	}
	//
	log.Debugf("wrote %s", filename)
}

func printOutput(values []memory.Value) {
	fmt.Println("Program output:")
	//
	for _, v := range values {
		if f, ok := v.Felt(); ok {
			fmt.Printf("  %s\n", f.Signed().String())
		} else {
			fmt.Printf("  %s\n", v.String())
		}
	}
}

func printResources(res *runner.Result) {
	fmt.Println("Execution resources:")
	fmt.Print(res.Resources.String())
	//
	if lo, hi, ok := res.Runner.RangeCheckUsage(); ok {
		fmt.Printf("range check usage: [%d, %d]\n", lo, hi)
	}
}

func init() {
	runCmd.Flags().String("trace-file", "", "write the relocated trace to this file")
	runCmd.Flags().String("memory-file", "", "write the relocated memory to this file")
	runCmd.Flags().Bool("print-output", false, "print the values written to the output builtin")
	runCmd.Flags().Bool("print-resources", false, "print the resources used by the run")
	addExecutionFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
