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

// Package storage provides test helpers that open a backend and hand
// back the matching cleanup function.
package storage

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/padsync/strata/storage/badger"
	"github.com/padsync/strata/storage/bplus"
)

func NewBPlusTreeStore() (*bplus.BPlusTreeStore, func()) {
	store := bplus.NewBPlusTreeStore()
	return store, func() {
		store.Close()
	}
}

func NewBadgerStore(t *testing.T) (*badger.BadgerStore, func()) {
	path, err := ioutil.TempDir("", "badger_store_test")
	require.NoError(t, err)
	store, err := badger.NewBadgerStore(path)
	require.NoError(t, err)
	return store, func() {
		store.Close()
		os.RemoveAll(path)
	}
}
