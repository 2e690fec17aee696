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

package cmd

import (
	"testing"

	"github.com/pborman/uuid"
	"github.com/stretchr/testify/require"

	"github.com/padsync/strata/compute"
	"github.com/padsync/strata/container"
)

func TestParseOpOrder(t *testing.T) {
	testCases := []struct {
		input    string
		expected container.OpOrder
		wantErr  bool
	}{
		{"ADD,XOR", container.OpOrder{compute.ADD, compute.XOR}, false},
		{"add, xor", container.OpOrder{compute.ADD, compute.XOR}, false},
		{"XOR", container.OpOrder{compute.XOR}, false},
		{"and,or,xor", container.OpOrder{compute.AND, compute.OR, compute.XOR}, false},
		{"SUB", nil, true},
		{"", nil, true},
	}

	for _, test := range testCases {
		order, err := parseOpOrder(test.input)
		if test.wantErr {
			require.Errorf(t, err, "Input %q must be rejected", test.input)
			continue
		}
		require.NoErrorf(t, err, "Input %q must parse", test.input)
		require.Equal(t, test.expected, order)
	}
}

func TestParseSessionID(t *testing.T) {
	id := uuid.NewRandom()

	parsed, err := parseSessionID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = parseSessionID("not-a-uuid")
	require.Error(t, err)
}
