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

package session

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack"
)

// codecVersion is bumped on any layout change; decoding any other
// version fails.
const codecVersion = 1

// ErrUnknownVersion is returned when decoding a snapshot written by an
// incompatible layout version.
var ErrUnknownVersion = errors.New("session: unknown snapshot version")

type layerRecord struct {
	State     []byte
	PadAccum  []byte
	Iteration uint64
}

// record is the persisted form of a session: the full layer chain plus
// the commitment material, msgpack-encoded.
type record struct {
	Version    uint8
	ID         []byte
	BlockSize  int
	Depth      int
	OpOrder    []uint8
	Layers     []layerRecord
	Commitment []byte
	Nonce      []byte
}

func encodeRecord(r *record) ([]byte, error) {
	r.Version = codecVersion
	return msgpack.Marshal(r)
}

func decodeRecord(value []byte) (*record, error) {
	var r record
	if err := msgpack.Unmarshal(value, &r); err != nil {
		return nil, fmt.Errorf("session: cannot decode snapshot: %v", err)
	}
	if r.Version != codecVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, r.Version)
	}
	return &r, nil
}
