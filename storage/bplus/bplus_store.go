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

// Package bplus provides an in-memory Store used by tests and by
// ephemeral sessions that never touch disk.
package bplus

import (
	"bytes"

	"github.com/google/btree"

	"github.com/padsync/strata/storage"
)

type BPlusTreeStore struct {
	db *btree.BTree
}

func NewBPlusTreeStore() *BPlusTreeStore {
	return &BPlusTreeStore{btree.New(2)}
}

func (s *BPlusTreeStore) Mutate(mutations []*storage.Mutation) error {
	for _, m := range mutations {
		key := append([]byte{m.Prefix}, m.Key...)
		s.db.ReplaceOrInsert(KVItem{key, m.Value})
	}
	return nil
}

func (s BPlusTreeStore) GetRange(prefix byte, start, end []byte) (storage.KVRange, error) {
	result := make(storage.KVRange, 0)
	startKey := append([]byte{prefix}, start...)
	endKey := append([]byte{prefix}, end...)
	s.db.AscendGreaterOrEqual(KVItem{startKey, nil}, func(i btree.Item) bool {
		key := i.(KVItem).Key
		if bytes.Compare(key, endKey) > 0 {
			return false
		}
		result = append(result, storage.KVPair{Key: key[1:], Value: i.(KVItem).Value})
		return true
	})
	return result, nil
}

func (s BPlusTreeStore) Get(prefix byte, key []byte) (*storage.KVPair, error) {
	result := new(storage.KVPair)
	result.Key = key
	k := append([]byte{prefix}, key...)
	item := s.db.Get(KVItem{k, nil})
	if item != nil {
		result.Value = item.(KVItem).Value
		return result, nil
	}
	return nil, storage.ErrKeyNotFound
}

func (s BPlusTreeStore) GetAll(prefix byte) storage.KVPairReader {
	return NewBPlusKVPairReader(prefix, s.db)
}

func (s *BPlusTreeStore) Delete(prefix byte, key []byte) error {
	k := append([]byte{prefix}, key...)
	s.db.Delete(KVItem{k, nil})
	return nil
}

func (s BPlusTreeStore) Close() error {
	s.db.Clear(false)
	return nil
}

type KVItem struct {
	Key, Value []byte
}

func (p KVItem) Less(b btree.Item) bool {
	return bytes.Compare(p.Key, b.(KVItem).Key) < 0
}

type BPlusKVPairReader struct {
	prefix  byte
	db      *btree.BTree
	lastKey []byte
}

func NewBPlusKVPairReader(prefix byte, db *btree.BTree) *BPlusKVPairReader {
	return &BPlusKVPairReader{
		prefix:  prefix,
		db:      db,
		lastKey: []byte{prefix},
	}
}

func (r *BPlusKVPairReader) Read(buffer []*storage.KVPair) (n int, err error) {
	n = 0
	r.db.AscendGreaterOrEqual(KVItem{r.lastKey, nil}, func(i btree.Item) bool {
		if n >= len(buffer) {
			return false
		}
		key := i.(KVItem).Key
		if key[0] != r.prefix {
			return false
		}
		if !bytes.Equal(key, r.lastKey) {
			buffer[n] = &storage.KVPair{Key: key[1:], Value: i.(KVItem).Value}
			n++
		}
		r.lastKey = key
		return true
	})
	return n, nil
}

func (r *BPlusKVPairReader) Close() {
	r.db = nil
}
