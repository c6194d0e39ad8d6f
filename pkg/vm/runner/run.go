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
package runner

import (
	"context"
	"sync"

	"github.com/consensys/go-cairovm/pkg/vm/memory"
	"github.com/consensys/go-cairovm/pkg/vm/program"
	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
)

// Result captures the outcome of a completed run.
type Result struct {
	// Runner which performed the run.
	Runner *CairoRunner
	// Relocated trace and memory.
	Relocated *Relocated
	// Values written to the output builtin.
	Output []memory.Value
	// Resources consumed.
	Resources ExecutionResources
}

// Run executes a program to completion, returning its relocated trace and
// memory.  In proof mode, execution continues until the step count is a power
// of two.  The run is verified if the configuration requests it.
func Run(ctx context.Context, prog *program.Program, config Config) (*Result, error) {
	runner, err := New(prog, config)
	if err != nil {
		return nil, err
	}
	//
	end, err := runner.Initialize()
	if err != nil {
		return nil, err
	} else if err = runner.RunUntilPC(ctx, end); err != nil {
		return nil, err
	}
	//
	if config.ProofMode {
		if err = runner.RunUntilNextPowerOfTwo(ctx); err != nil {
			return nil, err
		}
	}
	//
	if err = runner.EndRun(); err != nil {
		return nil, err
	} else if err = runner.ReadReturnValues(); err != nil {
		return nil, err
	}
	//
	if config.SecureRun {
		if err = runner.VerifySecureRunner(); err != nil {
			return nil, err
		}
	}
	//
	relocated, err := runner.Relocate()
	if err != nil {
		return nil, err
	}
	//
	return &Result{
		Runner:    runner,
		Relocated: relocated,
		Output:    runner.Output(),
		Resources: runner.ExecutionResources(),
	}, nil
}

// BatchResult is the outcome of one program in a batch.
type BatchResult struct {
	Result *Result
	Err    error
}

// RunBatch executes a number of programs in parallel, each on an isolated
// runner, using a bounded pool of workers.  Results are returned in the same
// order as the programs.
func RunBatch(ctx context.Context, programs []*program.Program, config Config, workers int) ([]BatchResult, error) {
	var (
		results = make([]BatchResult, len(programs))
		wg      sync.WaitGroup
	)
	//
	if workers <= 0 {
		workers = ants.DefaultAntsPoolSize
	}
	//
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	//
	defer pool.Release()
	//
	for i, prog := range programs {
		wg.Add(1)
		//
		task := func() {
			defer wg.Done()
			//
			res, err := Run(ctx, prog, config)
			results[i] = BatchResult{res, err}
		}
		//
		if err := pool.Submit(task); err != nil {
			wg.Done()
			results[i] = BatchResult{nil, err}
		}
	}
	//
	wg.Wait()
	//
	log.Debugf("completed batch of %d programs using %d workers", len(programs), workers)
	//
	return results, nil
}
