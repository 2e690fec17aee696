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

// Package cache holds the read-through caches the session registry puts
// in front of its Store: encoded snapshots and commitments are looked
// up here before hitting disk.
package cache

import "github.com/padsync/strata/storage"

// Cache is a byte-keyed cache for encoded session material.
type Cache interface {
	Get(key []byte) ([]byte, bool)
	Put(key []byte, value []byte)
	Fill(r storage.KVPairReader) error
}

// ModifiableCache is a cache with explicit entry invalidation, needed
// when a session is destroyed and its cached material must go with it.
type ModifiableCache interface {
	Cache
	Delete(key []byte)
}
