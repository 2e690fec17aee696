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

// Package proof implements the commitment wrapper around a container
// hierarchy: salted commitments over the layer states and transition
// attestations that let a counterparty holding only commitments check
// that a claimed new commitment followed from a claimed old one by a
// single evolution step.
//
// This is a commit-and-attest scheme, not a zero-knowledge proof
// system: a proof binds (old commitment, new commitment, entropy digest,
// iteration, operation order) under a domain-separated digest without
// revealing states, but its soundness rests on the commitment binding,
// not on a reviewed ZK construction. Commitments are hiding only when
// the nonce is fresh and random; callers must keep nonces alongside
// commitments.
package proof

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/padsync/strata/container"
	"github.com/padsync/strata/crypto/hashing"
	"github.com/padsync/strata/entropy"
	"github.com/padsync/strata/util"
)

const (
	commitDomain     = "strata/commit/v1"
	transitionDomain = "strata/transition/v1"

	// NonceSize is the commitment salt length in bytes.
	NonceSize = 32

	// DigestSize is the BLAKE2b-256 output length in bytes.
	DigestSize = 32
)

var (
	// ErrInvalidated marks a terminal proof container: its wrapped
	// hierarchy has been destroyed and must never be reused.
	ErrInvalidated = errors.New("proof: container invalidated")

	// ErrNotCommitted is returned when proving before the first commit.
	ErrNotCommitted = errors.New("proof: container not committed")
)

// Commitment is a binding digest over a nonce and the wrapped states.
type Commitment []byte

// Commit computes the commitment over state with the given nonce. The
// same (state, nonce) pair always yields the same commitment; hiding
// requires a fresh random nonce per commitment.
func Commit(state, nonce []byte) Commitment {
	sum := hashing.NewBlake2bHasher().Do([]byte(commitDomain), nonce, state)
	commitTotal.Inc()
	return Commitment(sum)
}

// EvolutionProof attests that NewCommitment resulted from evolving
// OldCommitment by Steps evolution steps (0 or 1) under the operation
// order identified by OpOrderDigest, consuming entropy with the given
// digest. It carries no state material.
type EvolutionProof struct {
	OldCommitment Commitment
	NewCommitment Commitment
	EntropyDigest []byte
	OpOrderDigest []byte
	Iteration     uint64
	Steps         uint64
	Tag           []byte
}

func transitionTag(p *EvolutionProof) []byte {
	return hashing.NewBlake2bHasher().Do(
		[]byte(transitionDomain),
		p.OldCommitment,
		p.NewCommitment,
		p.EntropyDigest,
		p.OpOrderDigest,
		util.Uint64AsBytes(p.Iteration),
		util.Uint64AsBytes(p.Steps),
	)
}

// EntropyDigest computes the digest under which consumed entropy is
// bound into a proof.
func EntropyDigest(entropyBlock []byte) []byte {
	return hashing.NewBlake2bHasher().Do([]byte(transitionDomain+"/entropy"), entropyBlock)
}

// NewNoOpProof builds the zero-step proof for a commitment: old and new
// commitments equal, zero entropy digest, zero steps. It verifies true
// exactly against (c, c).
func NewNoOpProof(c Commitment, opOrderDigest []byte, iteration uint64) *EvolutionProof {
	p := &EvolutionProof{
		OldCommitment: append(Commitment(nil), c...),
		NewCommitment: append(Commitment(nil), c...),
		EntropyDigest: make([]byte, DigestSize),
		OpOrderDigest: append([]byte(nil), opOrderDigest...),
		Iteration:     iteration,
		Steps:         0,
	}
	p.Tag = transitionTag(p)
	return p
}

// VerifyTransition checks that proof attests a valid transition from
// oldCommitment to newCommitment. It is a pure function: it never
// mutates anything and returns false, never an error, on malformed
// input, so it is safe to run on untrusted data.
func VerifyTransition(oldCommitment, newCommitment Commitment, p *EvolutionProof) bool {
	if p == nil {
		return false
	}
	if len(oldCommitment) != DigestSize || len(newCommitment) != DigestSize {
		return false
	}
	if len(p.OldCommitment) != DigestSize || len(p.NewCommitment) != DigestSize ||
		len(p.EntropyDigest) != DigestSize || len(p.OpOrderDigest) != DigestSize ||
		len(p.Tag) != DigestSize {
		return false
	}
	if !bytes.Equal(oldCommitment, p.OldCommitment) || !bytes.Equal(newCommitment, p.NewCommitment) {
		return false
	}
	if !bytes.Equal(p.Tag, transitionTag(p)) {
		return false
	}
	switch p.Steps {
	case 0:
		// zero-step transitions: nothing evolved, nothing consumed
		if !bytes.Equal(oldCommitment, newCommitment) {
			return false
		}
		return bytes.Equal(p.EntropyDigest, make([]byte, DigestSize))
	case 1:
		return true
	default:
		return false
	}
}

// Status is the proof container lifecycle state.
type Status uint8

const (
	Uninitialized Status = iota
	Committed
	Invalidated
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Committed:
		return "committed"
	case Invalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Witness is the prover-side material behind the latest proof. It never
// travels to a verifier.
type Witness struct {
	OldNonce []byte
	NewNonce []byte
	OldState []byte
	NewState []byte
}

// Container wraps a hierarchy with a commitment over the concatenation
// of its layer states. Lifecycle: Uninitialized -> Committed ->
// Committed (after each evolve and reprove) -> Invalidated (terminal).
type Container struct {
	mu sync.Mutex

	wrapped *container.Hierarchy
	nonces  entropy.Source

	nonce      []byte
	commitment Commitment
	status     Status
	witness    *Witness
}

// Wrap commits to the hierarchy's current states with a nonce drawn
// from src and returns the proof container in the Committed state.
func Wrap(h *container.Hierarchy, src entropy.Source) (*Container, error) {
	p := &Container{
		wrapped: h,
		nonces:  src,
		status:  Uninitialized,
	}
	if err := p.commitLocked(); err != nil {
		return nil, err
	}
	p.status = Committed
	return p, nil
}

func (p *Container) commitLocked() error {
	nonce := make([]byte, NonceSize)
	if err := p.nonces.Fill(nonce); err != nil {
		return err
	}
	p.nonce = nonce
	p.commitment = Commit(chainState(p.wrapped), nonce)
	return nil
}

// chainState concatenates the layer states, outer to inner.
func chainState(h *container.Hierarchy) []byte {
	snaps := h.Snapshots()
	out := make([]byte, 0, len(snaps)*h.BlockSize())
	for _, s := range snaps {
		out = append(out, s.State...)
	}
	return out
}

// Status returns the lifecycle state.
func (p *Container) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Commitment returns the current commitment.
func (p *Container) Commitment() Commitment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append(Commitment(nil), p.commitment...)
}

// Nonce returns the current commitment nonce. It is prover-side secret
// material; sharing it reveals whether a commitment matches a state.
func (p *Container) Nonce() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.nonce...)
}

// Witness returns the material behind the latest proof, or nil before
// the first evolution.
func (p *Container) Witness() *Witness {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.witness
}

// Evolve advances the wrapped hierarchy one step, recommits with a
// fresh nonce and returns the transition proof.
func (p *Container) Evolve(entropyBlock []byte) (*EvolutionProof, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.status {
	case Invalidated:
		return nil, ErrInvalidated
	case Uninitialized:
		return nil, ErrNotCommitted
	}

	oldCommitment := p.commitment
	oldNonce := p.nonce
	oldState := chainState(p.wrapped)

	if err := p.wrapped.EvolveAll(entropyBlock); err != nil {
		return nil, err
	}
	if err := p.commitLocked(); err != nil {
		return nil, err
	}

	proof := &EvolutionProof{
		OldCommitment: oldCommitment,
		NewCommitment: append(Commitment(nil), p.commitment...),
		EntropyDigest: EntropyDigest(entropyBlock),
		OpOrderDigest: p.wrapped.OpOrder().Digest(),
		Iteration:     p.wrapped.Iteration(),
		Steps:         1,
	}
	proof.Tag = transitionTag(proof)

	p.witness = &Witness{
		OldNonce: oldNonce,
		NewNonce: append([]byte(nil), p.nonce...),
		OldState: oldState,
		NewState: chainState(p.wrapped),
	}
	proveTotal.Inc()
	return proof, nil
}

// NoOpProof returns the zero-step proof for the current commitment.
func (p *Container) NoOpProof() (*EvolutionProof, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != Committed {
		return nil, ErrInvalidated
	}
	return NewNoOpProof(p.commitment, p.wrapped.OpOrder().Digest(), p.wrapped.Iteration()), nil
}

// RecordVerification feeds back a counterparty's verdict. A failed
// verification invalidates the container permanently: the wrapped
// hierarchy is zeroized and every later operation fails.
func (p *Container) RecordVerification(ok bool) {
	if ok {
		return
	}
	p.Invalidate()
}

// Invalidate destroys the wrapped hierarchy and moves the container to
// its terminal state.
func (p *Container) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == Invalidated {
		return
	}
	p.wrapped.Destroy()
	util.ZeroBytes(p.nonce)
	if p.witness != nil {
		util.ZeroBytes(p.witness.OldNonce)
		util.ZeroBytes(p.witness.NewNonce)
		util.ZeroBytes(p.witness.OldState)
		util.ZeroBytes(p.witness.NewState)
		p.witness = nil
	}
	p.status = Invalidated
	invalidatedTotal.Inc()
}
