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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/padsync/strata/compute"
	"github.com/padsync/strata/entropy"
)

func testConfig(depth int) Config {
	return Config{
		BlockSize: 32,
		Depth:     depth,
		OpOrder:   DefaultOpOrder(),
	}
}

func feed(t *testing.T, c *Container, src entropy.Source, steps int) {
	t.Helper()
	block := make([]byte, c.BlockSize())
	for i := 0; i < steps; i++ {
		require.NoError(t, src.Fill(block))
		require.NoError(t, c.Evolve(block))
	}
}

func TestEvolveIsDeterministic(t *testing.T) {

	for _, order := range []OpOrder{
		DefaultOpOrder(),
		{compute.XOR},
		{compute.AND, compute.OR, compute.ADD, compute.XOR},
	} {
		cfg := testConfig(3)
		cfg.OpOrder = order

		a, err := New(cfg, entropy.NewCounter(7))
		require.NoError(t, err)
		b, err := New(cfg, entropy.NewCounter(7))
		require.NoError(t, err)

		feed(t, a, entropy.NewCounter(100), 10)
		feed(t, b, entropy.NewCounter(100), 10)

		snapsA := a.Snapshots()
		snapsB := b.Snapshots()
		require.Equalf(t, snapsA, snapsB, "Same inputs must yield same chain for order %v", order)
	}
}

func TestEvolveIncrementsEveryLayerOnce(t *testing.T) {
	c, err := New(testConfig(3), entropy.NewCounter(1))
	require.NoError(t, err)

	feed(t, c, entropy.NewCounter(2), 5)

	snaps := c.Snapshots()
	require.Len(t, snaps, 3)
	for i, s := range snaps {
		require.Equalf(t, uint64(5), s.Iteration, "Layer %d iteration", i)
		require.Equal(t, i, s.Layer)
	}
}

func TestEvolveLengthMismatch(t *testing.T) {
	c, err := New(testConfig(1), entropy.NewCounter(1))
	require.NoError(t, err)

	err = c.Evolve(make([]byte, 31))
	require.Error(t, err)
	require.Contains(t, err.Error(), "length mismatch")

	// a failed call must not advance the counter
	require.Equal(t, uint64(0), c.Iteration())
}

func TestEvolveChangesState(t *testing.T) {
	c, err := New(testConfig(1), entropy.NewCounter(1))
	require.NoError(t, err)
	before := c.Snapshots()[0].State

	feed(t, c, entropy.NewCounter(2), 1)

	after := c.Snapshots()[0].State
	require.NotEqual(t, before, after)
}

func TestCloneInteractStaysValid(t *testing.T) {
	original, err := New(testConfig(3), entropy.NewCounter(3))
	require.NoError(t, err)

	feed(t, original, entropy.NewCounter(50), 10)

	clone, err := original.CloneWithPadFrom(entropy.NewCryptoRand())
	require.NoError(t, err)

	result := original.Interact(clone)
	require.True(t, result.AllValid(), "Freshly cloned pair must verify")

	// identical streams on both sides keep every layer valid at every step
	srcA := entropy.NewCounter(60)
	srcB := entropy.NewCounter(60)
	block := make([]byte, 32)
	for step := 0; step < 20; step++ {
		require.NoError(t, srcA.Fill(block))
		require.NoError(t, original.Evolve(block))
		require.NoError(t, srcB.Fill(block))
		require.NoError(t, clone.Evolve(block))

		result = original.Interact(clone)
		require.Truef(t, result.AllValid(), "Pair diverged at step %d: %+v", step, result)
		require.Equal(t, -1, result.FirstDivergent)
	}
}

func TestCloneShiftsState(t *testing.T) {
	original, err := New(testConfig(2), entropy.NewCounter(3))
	require.NoError(t, err)

	clone, err := original.CloneWithPad()
	require.NoError(t, err)

	origSnaps := original.Snapshots()
	cloneSnaps := clone.Snapshots()
	for i := range origSnaps {
		require.NotEqualf(t, origSnaps[i].State, cloneSnaps[i].State,
			"Layer %d state must be pad-shifted", i)
	}
}

func TestDivergenceIsPermanent(t *testing.T) {
	original, err := New(testConfig(3), entropy.NewCounter(3))
	require.NoError(t, err)
	clone, err := original.CloneWithPadFrom(entropy.NewCryptoRand())
	require.NoError(t, err)

	block := make([]byte, 32)
	src := entropy.NewCounter(70)

	// one differing byte on the clone side
	require.NoError(t, src.Fill(block))
	require.NoError(t, original.Evolve(block))
	block[0] ^= 0x01
	require.NoError(t, clone.Evolve(block))

	result := original.Interact(clone)
	require.False(t, result.AllValid())
	require.Equal(t, 0, result.FirstDivergent, "Outer layer consumed the diverged entropy")

	// re-synchronized entropy must not heal the pair
	srcA := entropy.NewCounter(80)
	srcB := entropy.NewCounter(80)
	for step := 0; step < 10; step++ {
		require.NoError(t, srcA.Fill(block))
		require.NoError(t, original.Evolve(block))
		require.NoError(t, srcB.Fill(block))
		require.NoError(t, clone.Evolve(block))

		result = original.Interact(clone)
		require.Falsef(t, result.AllValid(), "Pair must never self-heal (step %d)", step)
		require.Equal(t, 0, result.FirstDivergent)
	}
}

func TestInteractUnpairable(t *testing.T) {

	base, err := New(testConfig(3), entropy.NewCounter(1))
	require.NoError(t, err)

	otherOrder := testConfig(3)
	otherOrder.OpOrder = OpOrder{compute.XOR}

	testCases := []struct {
		name string
		cfg  Config
	}{
		{"different depth", testConfig(2)},
		{"different operation order", otherOrder},
		{"different block size", Config{BlockSize: 16, Depth: 3, OpOrder: DefaultOpOrder()}},
	}

	for _, c := range testCases {
		other, err := New(c.cfg, entropy.NewCounter(1))
		require.NoError(t, err)

		result := base.Interact(other)
		require.Falsef(t, result.Pairable, "%s must not be pairable", c.name)
		require.False(t, result.AllValid())
		require.Equal(t, 0, result.FirstDivergent)
	}
}

func TestInteractChecksAllLayers(t *testing.T) {
	original, err := New(testConfig(3), entropy.NewCounter(3))
	require.NoError(t, err)
	clone, err := original.CloneWithPadFrom(entropy.NewCryptoRand())
	require.NoError(t, err)

	block := make([]byte, 32)
	require.NoError(t, entropy.NewCounter(9).Fill(block))
	require.NoError(t, original.Evolve(block))
	block[5] ^= 0x80
	require.NoError(t, clone.Evolve(block))

	result := original.Interact(clone)
	require.Len(t, result.Layers, 3, "Every layer must be reported even after a failure")
}

func TestSnapshotRestoreRoundtrip(t *testing.T) {
	original, err := New(testConfig(3), entropy.NewCounter(3))
	require.NoError(t, err)
	feed(t, original, entropy.NewCounter(4), 7)

	restored, err := Restore(original.Snapshots(), original.OpOrder())
	require.NoError(t, err)

	require.Equal(t, original.Depth(), restored.Depth())
	require.Equal(t, original.Iteration(), restored.Iteration())

	// both must keep evolving identically
	feed(t, original, entropy.NewCounter(5), 3)
	feed(t, restored, entropy.NewCounter(5), 3)
	require.Equal(t, original.Snapshots(), restored.Snapshots())
}

func TestRestoreRejectsMalformedSnapshots(t *testing.T) {
	original, err := New(testConfig(2), entropy.NewCounter(3))
	require.NoError(t, err)
	snaps := original.Snapshots()

	_, err = Restore(nil, DefaultOpOrder())
	require.Error(t, err)

	// inner layer ahead of its outer layer violates the ordering invariant
	snaps[1].Iteration = snaps[0].Iteration + 1
	_, err = Restore(snaps, DefaultOpOrder())
	require.Error(t, err)
}

func TestDestroyZeroizes(t *testing.T) {
	c, err := New(testConfig(2), entropy.NewCounter(3))
	require.NoError(t, err)
	feed(t, c, entropy.NewCounter(4), 2)

	c.Destroy()

	zeros := make([]byte, 32)
	for _, s := range c.Snapshots() {
		require.Equal(t, zeros, s.State)
		require.Equal(t, zeros, s.PadAccum)
	}
	require.Equal(t, ErrDestroyed, c.Evolve(make([]byte, 32)))
	_, err = c.CloneWithPad()
	require.Equal(t, ErrDestroyed, err)
}

func TestConfigValidation(t *testing.T) {
	testCases := []Config{
		{BlockSize: 0, Depth: 1, OpOrder: DefaultOpOrder()},
		{BlockSize: 32, Depth: 0, OpOrder: DefaultOpOrder()},
		{BlockSize: 32, Depth: 1, OpOrder: nil},
		{BlockSize: 32, Depth: 1, OpOrder: OpOrder{compute.Op(42)}},
	}
	for i, cfg := range testCases {
		_, err := New(cfg, entropy.NewCounter(1))
		require.Errorf(t, err, "Config %d must be rejected", i)
	}
}

func TestOpOrderDigestIdentity(t *testing.T) {
	require.Equal(t, DefaultOpOrder().Digest(), DefaultOpOrder().Digest())
	require.NotEqual(t, DefaultOpOrder().Digest(), OpOrder{compute.XOR}.Digest())
}
