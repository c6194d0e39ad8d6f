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
package builtin

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default diluted pool parameters, used by layouts which do not override them.
const (
	DefaultDilutedSpacing = 4
	DefaultDilutedNBits   = 16
)

// BuiltinSpec names a builtin included in a layout, along with its ratio.
type BuiltinSpec struct {
	Name  string `yaml:"name"`
	Ratio uint64 `yaml:"ratio"`
}

// Layout is a named machine configuration, determining which builtins are
// available (and in what order) and their ratios.
type Layout struct {
	Name           string        `yaml:"name"`
	Builtins       []BuiltinSpec `yaml:"builtins"`
	DilutedSpacing uint64        `yaml:"diluted_spacing"`
	DilutedNBits   uint64        `yaml:"diluted_n_bits"`
}

var layouts = map[string]Layout{
	"plain": {Name: "plain"},
	"small": {Name: "small", Builtins: []BuiltinSpec{
		{Output, 0}, {Pedersen, 8}, {RangeCheck, 8}, {Ecdsa, 512}}},
	"dex": {Name: "dex", Builtins: []BuiltinSpec{
		{Output, 0}, {Pedersen, 8}, {RangeCheck, 8}, {Ecdsa, 512}}},
	"recursive": {Name: "recursive", Builtins: []BuiltinSpec{
		{Output, 0}, {Pedersen, 128}, {RangeCheck, 8}, {Bitwise, 8}}},
	"starknet": {Name: "starknet", Builtins: []BuiltinSpec{
		{Output, 0}, {Pedersen, 32}, {RangeCheck, 16}, {Ecdsa, 2048}, {Bitwise, 64}, {EcOp, 1024}}},
	"all_cairo": {Name: "all_cairo", Builtins: []BuiltinSpec{
		{Output, 0}, {Pedersen, 256}, {RangeCheck, 8}, {Ecdsa, 2048}, {Bitwise, 16}, {EcOp, 1024},
		{RangeCheck96, 8}}},
}

// LookupLayout returns the built-in layout with a given name.
func LookupLayout(name string) (Layout, error) {
	if l, ok := layouts[name]; ok {
		l.DilutedSpacing, l.DilutedNBits = DefaultDilutedSpacing, DefaultDilutedNBits
		return l, nil
	}
	//
	return Layout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
}

// LayoutNames returns the names of all built-in layouts, sorted.
func LayoutNames() []string {
	var names []string
	//
	for name := range layouts {
		names = append(names, name)
	}
	//
	sort.Strings(names)
	//
	return names
}

// ReadLayout parses a layout from its YAML description.
func ReadLayout(reader io.Reader) (Layout, error) {
	var layout Layout
	//
	if err := yaml.NewDecoder(reader).Decode(&layout); err != nil {
		return layout, errors.Wrap(err, "invalid layout")
	} else if layout.Name == "" {
		return layout, errors.New("layout has no name")
	}
	//
	for _, b := range layout.Builtins {
		if _, err := NewRunner(b.Name, b.Ratio); err != nil {
			return layout, errors.Wrapf(err, "layout %s", layout.Name)
		} else if b.Name != Output && b.Ratio == 0 {
			return layout, errors.Errorf("layout %s: builtin %s requires a ratio", layout.Name, b.Name)
		}
	}
	//
	if layout.DilutedSpacing == 0 {
		layout.DilutedSpacing = DefaultDilutedSpacing
	}
	//
	if layout.DilutedNBits == 0 {
		layout.DilutedNBits = DefaultDilutedNBits
	}
	//
	return layout, nil
}

// ReadLayoutFile parses a layout from a YAML file.
func ReadLayoutFile(filename string) (Layout, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Layout{}, errors.Wrap(err, "cannot open layout")
	}
	//
	defer file.Close()
	//
	return ReadLayout(file)
}

// BuiltinNames returns the names of the builtins in this layout, in order.
func (p *Layout) BuiltinNames() []string {
	names := make([]string, len(p.Builtins))
	//
	for i, b := range p.Builtins {
		names[i] = b.Name
	}
	//
	return names
}

// Runners constructs the runners for the builtins used by a program.  These
// must appear in the layout, and in the same relative order.
func (p *Layout) Runners(builtins []string) ([]Runner, error) {
	var (
		runners []Runner
		names   = p.BuiltinNames()
		last    = -1
	)
	//
	for _, name := range builtins {
		index := slices.Index(names, name)
		//
		if index < 0 {
			return nil, fmt.Errorf("%w: %s not in %s", ErrBuiltinNotInLayout, name, p.Name)
		} else if index <= last {
			return nil, fmt.Errorf("%w: %s", ErrBuiltinsOutOfOrder, name)
		}
		//
		runner, err := NewRunner(name, p.Builtins[index].Ratio)
		if err != nil {
			return nil, err
		}
		//
		runners = append(runners, runner)
		last = index
	}
	//
	return runners, nil
}
