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
	"github.com/consensys/go-cairovm/pkg/vm/program"
	"github.com/consensys/go-cairovm/pkg/vm/runner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] program.json...",
	Short: "execute several compiled Cairo programs in parallel.",
	Long:  `Executes a number of compiled Cairo programs in parallel, each on its own isolated machine.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		configureLogging(cmd)
		//
		var (
			config   = readConfig(cmd)
			programs = make([]*program.Program, len(args))
			failed   bool
		)
		//
		for i, filename := range args {
			programs[i] = readProgram(filename)
		}
		//
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		//
		stats := util.NewPerfStats()
		results, err := runner.RunBatch(ctx, programs, config, int(GetUint(cmd, "jobs")))
		//
		if err != nil {
			log.Error(err)
			os.Exit(exitExecution)
		}
		//
		stats.Log("Batch")
		//
		for i, r := range results {
			if r.Err != nil {
				failed = true
				//
				fmt.Printf("%s: error: %s\n", args[i], r.Err)
			} else {
				fmt.Printf("%s: ok (%d steps)\n", args[i], r.Result.Resources.Steps)
			}
		}
		//
		if failed {
			os.Exit(exitExecution)
		}
	},
}

func init() {
	batchCmd.Flags().UintP("jobs", "j", 0, "number of programs to run concurrently (0 for default)")
	addExecutionFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}
