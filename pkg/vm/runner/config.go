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
	"errors"

	"github.com/consensys/go-cairovm/pkg/vm"
	"github.com/consensys/go-cairovm/pkg/vm/builtin"
	"github.com/consensys/go-cairovm/pkg/vm/instruction"
)

var (
	// ErrMissingMain signals a program without a main function.
	ErrMissingMain = errors.New("missing main function")
	// ErrMissingProofLabels signals a proof mode run of a program without the
	// __start__ and __end__ labels.
	ErrMissingProofLabels = errors.New("missing __start__ or __end__ label")
	// ErrNotInitialized signals an operation on a runner which has not been
	// initialised.
	ErrNotInitialized = errors.New("runner not initialized")
	// ErrRunNotEnded signals an operation which requires EndRun.
	ErrRunNotEnded = errors.New("run has not ended")
	// ErrRunAlreadyEnded signals a second call to EndRun.
	ErrRunAlreadyEnded = errors.New("run already ended")
	// ErrStepLimit signals a run which exceeded its step budget.
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrSecurityCheck signals a run which failed verification.
	ErrSecurityCheck = errors.New("security check failed")
)

// Config determines how a program is executed.
type Config struct {
	// Layout determining the available builtins and their ratios.
	Layout builtin.Layout
	// ProofMode enters via __start__, pads the step count to a power of two and
	// fixes segment sizes for proving.
	ProofMode bool
	// MaxSteps bounds the number of steps executed (zero means unbounded).
	MaxSteps uint64
	// TraceEnabled determines whether the register trace is recorded.
	TraceEnabled bool
	// SecureRun verifies memory accesses and builtin usage after the run.
	SecureRun bool
	// DisableTraceCache disables caching of decoded instructions.
	DisableTraceCache bool
}

// DefaultConfig returns a configuration for ordinary (non-proof) runs using the
// plain layout.
func DefaultConfig() Config {
	layout, _ := builtin.LookupLayout("plain")
	//
	return Config{Layout: layout, TraceEnabled: true, SecureRun: true}
}

func (c *Config) vmOptions() vm.Options {
	opts := vm.Options{TraceEnabled: c.TraceEnabled, DecodeCacheSize: instruction.DefaultCacheSize}
	//
	if c.DisableTraceCache {
		opts.DecodeCacheSize = 0
	}
	//
	return opts
}
