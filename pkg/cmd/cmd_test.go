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
	"testing"

	"github.com/consensys/go-cairovm/pkg/vm/program"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutionCmd(t *testing.T, args ...string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addExecutionFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	//
	return cmd
}

func Test_ReadConfig_Defaults(t *testing.T) {
	config := readConfig(newExecutionCmd(t))
	//
	assert.Equal(t, "plain", config.Layout.Name)
	assert.False(t, config.ProofMode)
	assert.True(t, config.SecureRun)
	assert.Equal(t, uint64(0), config.MaxSteps)
}

func Test_ReadConfig_ProofMode(t *testing.T) {
	config := readConfig(newExecutionCmd(t, "--proof-mode", "--layout", "small", "--max-steps", "100"))
	//
	assert.Equal(t, "small", config.Layout.Name)
	assert.True(t, config.ProofMode)
	assert.False(t, config.SecureRun)
	assert.Equal(t, uint64(100), config.MaxSteps)
	// Explicitly requested
	config = readConfig(newExecutionCmd(t, "--proof-mode", "--secure-run"))
	assert.True(t, config.SecureRun)
}

func Test_LabelsByPC(t *testing.T) {
	zero, two := uint64(0), uint64(2)
	prog := &program.Program{Identifiers: map[string]program.Identifier{
		"__main__.main":    {Type: "function", PC: &zero},
		"__main__.entry":   {Type: "label", PC: &zero},
		"__main__.__end__": {Type: "label", PC: &two},
		"__main__.SIZE":    {Type: "const"},
	}}
	//
	labels := labelsByPC(prog)
	assert.Equal(t, []string{"__main__.entry", "__main__.main"}, labels[0])
	assert.Equal(t, []string{"__main__.__end__"}, labels[2])
	assert.Len(t, labels, 2)
}
