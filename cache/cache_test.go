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

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padsync/strata/storage"
	"github.com/padsync/strata/storage/bplus"
	"github.com/padsync/strata/util"
)

func TestSimpleCache(t *testing.T) {

	testCases := []struct {
		key, value     []byte
		cached         bool
		expectedValue  []byte
		expectedCached bool
	}{
		{[]byte{0x0}, []byte{0x1}, true, []byte{0x1}, true},
		{[]byte{0x1}, []byte{0x2}, false, nil, false},
	}

	cache := NewSimpleCache(10)

	for i, c := range testCases {
		if c.cached {
			cache.Put(c.key, c.value)
		}

		cachedValue, ok := cache.Get(c.key)

		require.Equalf(t, c.expectedCached, ok, "The cached check should match for test case %d", i)
		assert.Equalf(t, c.expectedValue, cachedValue, "The cached value should match for test case %d", i)
	}
}

func TestSimpleCacheDelete(t *testing.T) {
	cache := NewSimpleCache(10)
	cache.Put([]byte{0xa}, []byte("value"))
	cache.Delete([]byte{0xa})

	_, ok := cache.Get([]byte{0xa})
	require.False(t, ok)
	require.Equal(t, 0, cache.Size())
}

func TestFastCache(t *testing.T) {
	cache := NewFastCache(1 << 20)

	cache.Put([]byte("session"), []byte("snapshot"))
	value, ok := cache.Get([]byte("session"))
	require.True(t, ok)
	require.Equal(t, []byte("snapshot"), value)

	_, ok = cache.Get([]byte("missing"))
	require.False(t, ok)

	cache.Delete([]byte("session"))
	_, ok = cache.Get([]byte("session"))
	require.False(t, ok)
}

func TestFillFromStore(t *testing.T) {

	store := bplus.NewBPlusTreeStore()
	defer store.Close()

	numElems := uint16(100)
	for i := uint16(0); i < numElems; i++ {
		key := util.Uint16AsBytes(i)
		require.NoError(t, store.Mutate([]*storage.Mutation{
			{Prefix: storage.SessionPrefix, Key: key, Value: key},
		}))
	}

	caches := map[string]Cache{
		"simple": NewSimpleCache(uint64(numElems)),
		"fast":   NewFastCache(1 << 20),
	}

	for name, cache := range caches {
		require.NoErrorf(t, cache.Fill(store.GetAll(storage.SessionPrefix)), "Fill must not fail for %s cache", name)

		for i := uint16(0); i < numElems; i++ {
			key := util.Uint16AsBytes(i)
			value, ok := cache.Get(key)
			require.Truef(t, ok, "Key %d must be cached in %s cache", i, name)
			require.Equalf(t, key, value, "Value must match for key %d in %s cache", i, name)
		}
	}
}
