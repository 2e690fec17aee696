/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package entropy defines the capability through which fresh bytes enter
// the container core. Any external feed (hardware RNG, sensor shims,
// timing channels) must be modelled as a Source; the core itself never
// acquires entropy on its own.
package entropy

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/padsync/strata/crypto/hashing"
	"github.com/padsync/strata/util"
)

// Source produces bytes on demand. Fill must fill dest completely or
// fail; a partial fill is not a valid outcome.
type Source interface {
	Fill(dest []byte) error
	Description() string
}

// ErrExhausted is returned by bounded sources once they run out of
// bytes. The core propagates it to the caller and never substitutes
// another source silently.
var ErrExhausted = errors.New("entropy: source exhausted")

const counterDomain = "strata/entropy/counter/v1"

// CryptoRand reads from the operating system CSPRNG.
type CryptoRand struct{}

func NewCryptoRand() *CryptoRand {
	return &CryptoRand{}
}

func (s *CryptoRand) Fill(dest []byte) error {
	if _, err := rand.Read(dest); err != nil {
		return fmt.Errorf("entropy: crypto/rand failed: %w", err)
	}
	return nil
}

func (s *CryptoRand) Description() string {
	return "operating system CSPRNG"
}

// Counter is a deterministic source seeded with a single uint64. Two
// Counter sources with the same seed produce identical streams, which is
// what pad-related container pairs need to stay synchronized. It derives
// its keystream from a BLAKE2b chain over (seed, block counter).
type Counter struct {
	seed    uint64
	counter uint64
	hasher  hashing.Hasher
}

func NewCounter(seed uint64) *Counter {
	return &Counter{seed: seed, hasher: hashing.NewBlake2bHasher()}
}

func (s *Counter) Fill(dest []byte) error {
	filled := 0
	for filled < len(dest) {
		block := s.hasher.Do(
			[]byte(counterDomain),
			util.Uint64AsBytes(s.seed),
			util.Uint64AsBytes(s.counter),
		)
		s.counter++
		filled += copy(dest[filled:], block)
	}
	return nil
}

func (s *Counter) Description() string {
	return fmt.Sprintf("deterministic counter stream (seed %d)", s.seed)
}

// Buffer serves a fixed byte sequence, e.g. a recorded physical
// measurement. It fails with ErrExhausted instead of wrapping around:
// replaying entropy would silently reuse pads.
type Buffer struct {
	data        []byte
	pos         int
	description string
}

func NewBuffer(data []byte, description string) *Buffer {
	return &Buffer{data: data, description: description}
}

func (s *Buffer) Fill(dest []byte) error {
	if s.pos+len(dest) > len(s.data) {
		return ErrExhausted
	}
	copy(dest, s.data[s.pos:])
	s.pos += len(dest)
	return nil
}

func (s *Buffer) Description() string {
	return s.description
}

// Remaining returns the number of unserved bytes.
func (s *Buffer) Remaining() int {
	return len(s.data) - s.pos
}

// Combined mixes several sources by XOR. Every source must fill
// completely; if any of them fails, the combined fill fails and dest is
// left zeroed.
type Combined struct {
	sources []Source
}

func NewCombined(sources ...Source) *Combined {
	return &Combined{sources: sources}
}

// Add appends another source to the combination.
func (s *Combined) Add(src Source) {
	s.sources = append(s.sources, src)
}

func (s *Combined) Fill(dest []byte) error {
	if len(s.sources) == 0 {
		return errors.New("entropy: no sources combined")
	}
	util.ZeroBytes(dest)
	buf := make([]byte, len(dest))
	for _, src := range s.sources {
		if err := src.Fill(buf); err != nil {
			util.ZeroBytes(dest)
			return fmt.Errorf("entropy: source %q failed: %w", src.Description(), err)
		}
		for i := range dest {
			dest[i] ^= buf[i]
		}
	}
	return nil
}

func (s *Combined) Description() string {
	names := ""
	for i, src := range s.sources {
		if i > 0 {
			names += " + "
		}
		names += src.Description()
	}
	return "combined: " + names
}
