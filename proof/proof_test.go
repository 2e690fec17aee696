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

package proof

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/padsync/strata/container"
	"github.com/padsync/strata/entropy"
)

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	h, err := container.NewHierarchy(container.DefaultConfig(), entropy.NewCounter(31))
	require.NoError(t, err)
	p, err := Wrap(h, entropy.NewCounter(32))
	require.NoError(t, err)
	return p
}

func TestCommitIsSaltedAndDeterministic(t *testing.T) {
	state := []byte("some opaque state block, 32 byte")
	nonceA := make([]byte, NonceSize)
	nonceB := make([]byte, NonceSize)
	nonceB[0] = 0x01

	require.Equal(t, Commit(state, nonceA), Commit(state, nonceA),
		"Same (state, nonce) must yield same commitment")
	require.NotEqual(t, Commit(state, nonceA), Commit(state, nonceB),
		"Different nonces must yield different commitments")
	require.NotEqual(t, Commit(state, nonceA), Commit([]byte("another opaque state block 32 by"), nonceA))
}

func TestEvolveProvesValidTransition(t *testing.T) {
	p := newTestContainer(t)
	oldCommitment := p.Commitment()

	block := make([]byte, 32)
	require.NoError(t, entropy.NewCounter(33).Fill(block))
	proof, err := p.Evolve(block)
	require.NoError(t, err)

	newCommitment := p.Commitment()
	require.NotEqual(t, oldCommitment, newCommitment)
	require.True(t, VerifyTransition(oldCommitment, newCommitment, proof))
	require.Equal(t, Committed, p.Status())
}

func TestProofCarriesNoState(t *testing.T) {
	p := newTestContainer(t)

	block := make([]byte, 32)
	require.NoError(t, entropy.NewCounter(33).Fill(block))
	proof, err := p.Evolve(block)
	require.NoError(t, err)

	witness := p.Witness()
	require.NotNil(t, witness)
	for _, field := range [][]byte{
		proof.OldCommitment, proof.NewCommitment,
		proof.EntropyDigest, proof.OpOrderDigest, proof.Tag,
	} {
		require.Len(t, field, DigestSize)
		require.NotContains(t, string(field), string(witness.NewState[:8]),
			"Proof fields must not embed state bytes")
	}
}

func TestVerifyTransitionRejectsMismatchedPairs(t *testing.T) {
	p := newTestContainer(t)
	honest := p.Commitment()

	block := make([]byte, 32)
	require.NoError(t, entropy.NewCounter(33).Fill(block))
	proof, err := p.Evolve(block)
	require.NoError(t, err)
	evolved := p.Commitment()

	// fuzzed sample of unrelated old states: a proof built over a
	// different old state commits to a different old commitment
	src := entropy.NewCounter(99)
	for i := 0; i < 50; i++ {
		otherState := make([]byte, 3*32)
		otherNonce := make([]byte, NonceSize)
		require.NoError(t, src.Fill(otherState))
		require.NoError(t, src.Fill(otherNonce))
		unrelated := Commit(otherState, otherNonce)

		require.Falsef(t, VerifyTransition(unrelated, evolved, proof),
			"Unrelated old commitment %d must not verify", i)
		require.Falsef(t, VerifyTransition(honest, unrelated, proof),
			"Unrelated new commitment %d must not verify", i)
	}
}

func TestVerifyTransitionRejectsTamperedProofs(t *testing.T) {
	p := newTestContainer(t)
	oldCommitment := p.Commitment()

	block := make([]byte, 32)
	require.NoError(t, entropy.NewCounter(33).Fill(block))
	proof, err := p.Evolve(block)
	require.NoError(t, err)
	newCommitment := p.Commitment()

	tamper := func(mutate func(*EvolutionProof)) *EvolutionProof {
		clone := *proof
		clone.OldCommitment = append(Commitment(nil), proof.OldCommitment...)
		clone.NewCommitment = append(Commitment(nil), proof.NewCommitment...)
		clone.EntropyDigest = append([]byte(nil), proof.EntropyDigest...)
		clone.OpOrderDigest = append([]byte(nil), proof.OpOrderDigest...)
		clone.Tag = append([]byte(nil), proof.Tag...)
		mutate(&clone)
		return &clone
	}

	testCases := map[string]*EvolutionProof{
		"flipped tag":        tamper(func(p *EvolutionProof) { p.Tag[0] ^= 0x01 }),
		"flipped entropy":    tamper(func(p *EvolutionProof) { p.EntropyDigest[3] ^= 0x10 }),
		"flipped op order":   tamper(func(p *EvolutionProof) { p.OpOrderDigest[7] ^= 0x80 }),
		"changed iteration":  tamper(func(p *EvolutionProof) { p.Iteration++ }),
		"changed step count": tamper(func(p *EvolutionProof) { p.Steps = 2 }),
		"truncated tag":      tamper(func(p *EvolutionProof) { p.Tag = p.Tag[:16] }),
	}

	for name, tampered := range testCases {
		require.Falsef(t, VerifyTransition(oldCommitment, newCommitment, tampered),
			"%s must not verify", name)
	}

	// malformed inputs return false, never panic
	require.False(t, VerifyTransition(oldCommitment, newCommitment, nil))
	require.False(t, VerifyTransition(nil, newCommitment, proof))
	require.False(t, VerifyTransition(oldCommitment, newCommitment[:8], proof))
}

func TestNoOpProof(t *testing.T) {
	p := newTestContainer(t)
	c := p.Commitment()

	noop, err := p.NoOpProof()
	require.NoError(t, err)

	// the zero-step contract: a no-op proof verifies exactly for (c, c)
	require.True(t, VerifyTransition(c, c, noop))

	block := make([]byte, 32)
	require.NoError(t, entropy.NewCounter(33).Fill(block))
	_, err = p.Evolve(block)
	require.NoError(t, err)

	require.False(t, VerifyTransition(c, p.Commitment(), noop),
		"A no-op proof must not cover a real transition")
}

func TestInvalidationIsTerminal(t *testing.T) {
	p := newTestContainer(t)

	p.RecordVerification(true)
	require.Equal(t, Committed, p.Status())

	p.RecordVerification(false)
	require.Equal(t, Invalidated, p.Status())

	// the wrapped hierarchy is gone and the container stays dead
	_, err := p.Evolve(make([]byte, 32))
	require.Equal(t, ErrInvalidated, err)
	_, err = p.NoOpProof()
	require.Equal(t, ErrInvalidated, err)

	p.Invalidate() // idempotent
	require.Equal(t, Invalidated, p.Status())
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "uninitialized", Uninitialized.String())
	require.Equal(t, "committed", Committed.String())
	require.Equal(t, "invalidated", Invalidated.String())
}
