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

package hashing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoIsDeterministic(t *testing.T) {
	hashers := map[string]Hasher{
		"sha256":  NewSha256Hasher(),
		"blake2b": NewBlake2bHasher(),
		"xor":     NewXorHasher(),
	}
	for name, h := range hashers {
		d1 := h.Do([]byte("a test event"))
		d2 := h.Do([]byte("a test event"))
		require.Equalf(t, d1, d2, "Digest mismatch for hasher %s", name)
	}
}

func TestSaltedDiffersFromUnsalted(t *testing.T) {
	h := NewBlake2bHasher()
	plain := h.Do([]byte("a test event"))
	salted := h.Salted([]byte("salt"), []byte("a test event"))
	require.NotEqual(t, plain, salted, "Salting should change the digest")
}

func TestXorHasher(t *testing.T) {
	h := NewXorHasher()
	require.Equal(t, Digest{0x00}, h.Do([]byte{0x5a}, []byte{0x5a}))
	require.Equal(t, Digest{0x5a}, h.Do([]byte{0x5a}))
}
