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

package container

import (
	"github.com/padsync/strata/crypto/hashing"
	"github.com/padsync/strata/util"
)

// Domain separation strings, versioned: changing any derivation detail
// requires a new version string.
const (
	evolvePadDomain = "strata/pad/v1"
	clonePadDomain  = "strata/clonepad/v1"
	opOrderDomain   = "strata/oporder/v1"
)

// derivePad expands BLAKE2b-256 over (domain, layer, iteration, state)
// to size bytes, using a little-endian block counter for sizes beyond
// one digest. Pad material is transient: callers wipe it after use.
func derivePad(domain string, state []byte, layer int, iteration uint64, size int) []byte {
	hasher := hashing.NewBlake2bHasher()
	pad := make([]byte, size)
	filled := 0
	for block := uint64(0); filled < size; block++ {
		sum := hasher.Do(
			[]byte(domain),
			util.Uint64AsBytes(uint64(layer)),
			util.Uint64AsBytes(iteration),
			util.Uint64AsBytes(block),
			state,
		)
		filled += copy(pad[filled:], sum)
	}
	return pad
}

// deriveDigest is a plain domain-separated BLAKE2b-256 digest.
func deriveDigest(domain string, data []byte) []byte {
	return hashing.NewBlake2bHasher().Do([]byte(domain), data)
}
