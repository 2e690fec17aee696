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

package badger

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padsync/strata/storage"
	"github.com/padsync/strata/util"
)

func TestMutate(t *testing.T) {
	store, closeF := openBadgerStore(t)
	defer closeF()
	prefix := storage.SessionPrefix

	tests := []struct {
		testname      string
		key, value    []byte
		expectedError error
	}{
		{"Mutate Key=Value", []byte("Key"), []byte("Value"), nil},
	}

	for _, test := range tests {
		err := store.Mutate([]*storage.Mutation{
			{Prefix: prefix, Key: test.key, Value: test.value},
		})
		require.Equalf(t, test.expectedError, err, "Error mutating in test: %s", test.testname)
		_, err = store.Get(prefix, test.key)
		require.Equalf(t, test.expectedError, err, "Error getting key in test: %s", test.testname)
	}
}

func TestGetExistentKey(t *testing.T) {

	store, closeF := openBadgerStore(t)
	defer closeF()

	testCases := []struct {
		prefix        byte
		key, value    []byte
		expectedError error
	}{
		{storage.SessionPrefix, []byte("Key1"), []byte("Value1"), nil},
		{storage.SessionPrefix, []byte("Key2"), []byte("Value2"), nil},
		{storage.CommitmentPrefix, []byte("Key3"), []byte("Value3"), nil},
		{storage.CommitmentPrefix, []byte("Key4"), []byte("Value4"), storage.ErrKeyNotFound},
	}

	for _, test := range testCases {
		if test.expectedError == nil {
			err := store.Mutate([]*storage.Mutation{
				{Prefix: test.prefix, Key: test.key, Value: test.value},
			})
			require.NoError(t, err)

			stored, err := store.Get(test.prefix, test.key)
			require.NoError(t, err)
			require.Equalf(t, stored.Key, test.key, "The stored key does not match the original: expected %d, actual %d", test.key, stored.Key)
			require.Equalf(t, stored.Value, test.value, "The stored value does not match the original: expected %d, actual %d", test.value, stored.Value)
		} else {
			_, err := store.Get(test.prefix, test.key)
			require.Equal(t, test.expectedError, err)
		}
	}

}

func TestGetRange(t *testing.T) {
	store, closeF := openBadgerStore(t)
	defer closeF()

	var testCases = []struct {
		size       int
		start, end byte
	}{
		{40, 10, 50},
		{0, 1, 9},
		{11, 1, 20},
		{10, 40, 60},
		{0, 60, 100},
		{0, 20, 10},
	}

	prefix := storage.SessionPrefix
	for i := 10; i < 50; i++ {
		err := store.Mutate([]*storage.Mutation{
			{Prefix: prefix, Key: []byte{byte(i)}, Value: []byte("Value")},
		})
		require.NoError(t, err)
	}

	for _, test := range testCases {
		slice, err := store.GetRange(prefix, []byte{test.start}, []byte{test.end})
		require.NoError(t, err)
		require.Equalf(t, len(slice), test.size, "Slice length invalid: expected %d, actual %d", test.size, len(slice))
	}

}

func TestDelete(t *testing.T) {
	store, closeF := openBadgerStore(t)
	defer closeF()

	prefix := storage.SessionPrefix
	key, value := []byte("Key"), []byte("Value")

	err := store.Mutate([]*storage.Mutation{{Prefix: prefix, Key: key, Value: value}})
	require.NoError(t, err)

	_, err = store.Get(prefix, key)
	require.NoError(t, err)

	require.NoError(t, store.Delete(prefix, key))

	_, err = store.Get(prefix, key)
	require.Equal(t, storage.ErrKeyNotFound, err)
}

func TestGetAll(t *testing.T) {

	prefix := storage.CommitmentPrefix
	numElems := uint16(1000)
	testCases := []struct {
		batchSize    int
		numBatches   int
		lastBatchLen int
	}{
		{10, 100, 10},
		{20, 50, 20},
		{17, 59, 14},
	}

	store, closeF := openBadgerStore(t)
	defer closeF()

	// insert
	for i := uint16(0); i < numElems; i++ {
		key := util.Uint16AsBytes(i)
		err := store.Mutate([]*storage.Mutation{
			{Prefix: prefix, Key: key, Value: key},
		})
		require.NoError(t, err)
	}

	for i, c := range testCases {
		reader := store.GetAll(prefix)
		numBatches := 0
		var lastBatchLen int
		for {
			entries := make([]*storage.KVPair, c.batchSize)
			n, _ := reader.Read(entries)
			if n == 0 {
				break
			}
			numBatches++
			lastBatchLen = n
		}
		reader.Close()
		assert.Equalf(t, c.numBatches, numBatches, "The number of batches should match for test case %d", i)
		assert.Equalf(t, c.lastBatchLen, lastBatchLen, "The size of the last batch len should match for test case %d", i)
	}

}

func TestValueLogGCStopsOnClose(t *testing.T) {
	path, err := ioutil.TempDir("", "badger_store_test")
	require.NoError(t, err)
	defer os.RemoveAll(path)

	store, err := NewBadgerStoreOpts(&Options{
		Path:       path,
		ValueLogGC: true,
		GCInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	// let the GC goroutine take a few ticks before shutting down
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, store.Close())
}

func openBadgerStore(t *testing.T) (*BadgerStore, func()) {
	path, err := ioutil.TempDir("", "badger_store_test")
	require.NoError(t, err)
	store, err := NewBadgerStore(path)
	require.NoError(t, err)
	return store, func() {
		store.Close()
		os.RemoveAll(path)
	}
}
