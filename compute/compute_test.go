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

package compute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {

	testCases := []struct {
		op       Op
		a, b     []byte
		expected []byte
		zero     bool
		carry    bool
	}{
		{XOR, []byte{0xff, 0x0f}, []byte{0xff, 0x0f}, []byte{0x00, 0x00}, true, false},
		{XOR, []byte{0xaa, 0x00}, []byte{0x55, 0x00}, []byte{0xff, 0x00}, false, false},
		{AND, []byte{0xaa, 0xff}, []byte{0x55, 0xff}, []byte{0x00, 0xff}, false, false},
		{AND, []byte{0xaa, 0x00}, []byte{0x55, 0x00}, []byte{0x00, 0x00}, true, false},
		{OR, []byte{0xaa, 0x00}, []byte{0x55, 0x00}, []byte{0xff, 0x00}, false, false},
		{ADD, []byte{0x01, 0x00}, []byte{0x02, 0x00}, []byte{0x03, 0x00}, false, false},
		// carry chains through the second byte
		{ADD, []byte{0xff, 0x00}, []byte{0x01, 0x00}, []byte{0x00, 0x01}, false, false},
		// carry out of the most significant byte
		{ADD, []byte{0xff, 0xff}, []byte{0x01, 0x00}, []byte{0x00, 0x00}, true, true},
	}

	for i, c := range testCases {
		e := NewEngine(4, 2)
		require.NoError(t, e.Load(0, c.a))
		require.NoError(t, e.Load(1, c.b))
		require.NoError(t, e.Apply(c.op, 2, 0, 1))

		result, err := e.Read(2)
		require.NoError(t, err)
		require.Equalf(t, c.expected, result, "Wrong result for test %d (%v)", i, c.op)
		require.Equalf(t, c.zero, e.Flags().Zero, "Wrong zero flag for test %d (%v)", i, c.op)
		require.Equalf(t, c.carry, e.Flags().Carry, "Wrong carry flag for test %d (%v)", i, c.op)
	}
}

func TestApplyDoesNotTouchOtherSlots(t *testing.T) {
	e := NewEngine(4, 2)
	require.NoError(t, e.Load(0, []byte{0x01, 0x02}))
	require.NoError(t, e.Load(1, []byte{0x03, 0x04}))
	require.NoError(t, e.Load(3, []byte{0xaa, 0xbb}))

	require.NoError(t, e.Apply(XOR, 2, 0, 1))

	for slot, expected := range map[int][]byte{
		0: {0x01, 0x02},
		1: {0x03, 0x04},
		3: {0xaa, 0xbb},
	} {
		got, err := e.Read(slot)
		require.NoError(t, err)
		require.Equalf(t, expected, got, "Slot %d was clobbered", slot)
	}
}

func TestApplyInPlace(t *testing.T) {
	// dst may alias a source slot
	e := NewEngine(4, 2)
	require.NoError(t, e.Load(0, []byte{0x01, 0x00}))
	require.NoError(t, e.Load(1, []byte{0x02, 0x00}))
	require.NoError(t, e.Apply(ADD, 0, 0, 1))

	got, err := e.Read(0)
	require.NoError(t, err)
	require.Equal(t, []byte{0x03, 0x00}, got)
}

func TestSlotOutOfRange(t *testing.T) {
	e := NewEngine(4, 2)

	require.Equal(t, ErrSlotOutOfRange, e.Load(4, []byte{0x00, 0x00}))
	require.Equal(t, ErrSlotOutOfRange, e.Load(-1, []byte{0x00, 0x00}))

	_, err := e.Read(4)
	require.Equal(t, ErrSlotOutOfRange, err)

	require.Equal(t, ErrSlotOutOfRange, e.Apply(XOR, 0, 1, 4))
	require.Equal(t, ErrSlotOutOfRange, e.Apply(XOR, 4, 0, 1))
}

func TestLoadLengthMismatch(t *testing.T) {
	e := NewEngine(4, 2)
	err := e.Load(0, []byte{0x00})
	require.Error(t, err)
}

func TestReadReturnsCopy(t *testing.T) {
	e := NewEngine(4, 2)
	require.NoError(t, e.Load(0, []byte{0x01, 0x02}))

	got, err := e.Read(0)
	require.NoError(t, err)
	got[0] = 0xff

	again, err := e.Read(0)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, again)
}

func TestReset(t *testing.T) {
	e := NewEngine(2, 2)
	require.NoError(t, e.Load(0, []byte{0x01, 0x02}))
	require.NoError(t, e.Apply(OR, 1, 0, 0))

	e.Reset()

	got, err := e.Read(0)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00}, got)
	require.Equal(t, Flags{}, e.Flags())
}

func TestOpStringRoundtrip(t *testing.T) {
	for _, op := range []Op{ADD, AND, OR, XOR} {
		parsed, err := OpFromString(op.String())
		require.NoError(t, err)
		require.Equal(t, op, parsed)
	}
	_, err := OpFromString("NOT")
	require.Error(t, err)
}
