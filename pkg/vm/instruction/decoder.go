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
	lru "github.com/hashicorp/golang-lru"

	"github.com/consensys/go-cairovm/pkg/util/field/stark252"
)

// DefaultCacheSize is the number of decoded instruction words retained by a
// Decoder.
const DefaultCacheSize = 4096

// Decoder decodes instruction words, retaining recently decoded instructions
// in a bounded cache since loops repeatedly execute the same few words.
type Decoder struct {
	cache *lru.Cache
}

// NewDecoder constructs a decoder with a cache of a given size.  A size of zero
// disables caching.
func NewDecoder(size int) (*Decoder, error) {
	if size == 0 {
		return &Decoder{}, nil
	}
	//
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	//
	return &Decoder{cache}, nil
}

// Decode an instruction word held in a field element.
func (p *Decoder) Decode(word stark252.Element) (Instruction, error) {
	if !word.IsUint64() {
		return Instruction{}, &Error{ErrImmediateTooLarge, 0}
	} else if p.cache == nil {
		return Decode(word.Uint64())
	}
	//
	key := word.Uint64()
	//
	if insn, ok := p.cache.Get(key); ok {
		return insn.(Instruction), nil
	}
	//
	insn, err := Decode(key)
	//
	if err == nil {
		p.cache.Add(key, insn)
	}
	//
	return insn, err
}
