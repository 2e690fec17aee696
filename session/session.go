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

// Package session manages named container hierarchies: each session
// pairs a hierarchy with its proof wrapper under a stable identifier,
// and the registry persists sessions through a Store fronted by a
// read-through cache.
package session

import (
	"bytes"
	"errors"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pborman/uuid"

	"github.com/padsync/strata/cache"
	"github.com/padsync/strata/compute"
	"github.com/padsync/strata/container"
	"github.com/padsync/strata/entropy"
	"github.com/padsync/strata/log"
	"github.com/padsync/strata/proof"
	"github.com/padsync/strata/storage"
	"github.com/padsync/strata/util"
)

var (
	// ErrSessionNotFound is returned when no session exists under the
	// given identifier.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrCorrupted is returned when a persisted snapshot fails its
	// commitment check on load.
	ErrCorrupted = errors.New("session: snapshot does not match its commitment")
)

// Session is a named hierarchy plus its proof container. All evolution
// and proving goes through the proof container so the commitment always
// covers the current states.
type Session struct {
	id     uuid.UUID
	chain  *container.Hierarchy
	proofs *proof.Container
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Commitment returns the current commitment over the layer states.
func (s *Session) Commitment() proof.Commitment {
	return s.proofs.Commitment()
}

// Status returns the proof container lifecycle state.
func (s *Session) Status() proof.Status {
	return s.proofs.Status()
}

// Iteration returns the root layer step counter.
func (s *Session) Iteration() uint64 {
	return s.chain.Iteration()
}

// BlockSize returns the fixed state block length in bytes.
func (s *Session) BlockSize() int {
	return s.chain.BlockSize()
}

// Evolve advances the session one step and returns the transition
// proof.
func (s *Session) Evolve(entropyBlock []byte) (*proof.EvolutionProof, error) {
	return s.proofs.Evolve(entropyBlock)
}

// NoOpProof returns the zero-step proof for the current commitment.
func (s *Session) NoOpProof() (*proof.EvolutionProof, error) {
	return s.proofs.NoOpProof()
}

// VerifyAgainst checks this session's hierarchy against a supposedly
// pad-related one, layer by layer.
func (s *Session) VerifyAgainst(other *Session) *container.VerificationResult {
	return s.chain.VerifyAgainst(other.chain)
}

// RecordVerification feeds a counterparty's verdict into the proof
// container. A failed verdict invalidates the session permanently.
// This only covers the in-memory session; callers holding a Registry
// use Registry.RecordVerification so the persisted records go too.
func (s *Session) RecordVerification(ok bool) {
	s.proofs.RecordVerification(ok)
}

// Invalidate zeroizes the hierarchy and moves the session to its
// terminal state.
func (s *Session) Invalidate() {
	s.proofs.Invalidate()
}

func (s *Session) toRecord() *record {
	snaps := s.chain.Snapshots()
	layers := make([]layerRecord, len(snaps))
	for i, snap := range snaps {
		layers[i] = layerRecord{
			State:     snap.State,
			PadAccum:  snap.PadAccum,
			Iteration: snap.Iteration,
		}
	}
	order := s.chain.OpOrder()
	rawOrder := make([]uint8, len(order))
	for i, op := range order {
		rawOrder[i] = uint8(op)
	}
	return &record{
		ID:         s.id,
		BlockSize:  s.chain.BlockSize(),
		Depth:      s.chain.Depth(),
		OpOrder:    rawOrder,
		Layers:     layers,
		Commitment: s.proofs.Commitment(),
		Nonce:      s.proofs.Nonce(),
	}
}

// Registry creates, persists and retrieves sessions. Safe for
// concurrent use.
type Registry struct {
	mu        sync.Mutex
	store     storage.Store
	snapshots cache.ModifiableCache
	entropy   entropy.Source
	open      map[string]*Session
}

// NewRegistry builds a registry over the given store. The cache fronts
// snapshot reads and is warmed with whatever snapshots survived the
// last run; src supplies initial states and commitment nonces.
func NewRegistry(store storage.Store, snapshots cache.ModifiableCache, src entropy.Source) *Registry {
	if err := snapshots.Fill(store.GetAll(storage.SessionPrefix)); err != nil {
		log.Infof("Snapshot cache warmup failed: %v", err)
	}
	return &Registry{
		store:     store,
		snapshots: snapshots,
		entropy:   src,
		open:      make(map[string]*Session),
	}
}

// Create builds a new session with freshly drawn layer states and
// persists it.
func (r *Registry) Create(cfg container.Config) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chain, err := container.NewHierarchy(cfg, r.entropy)
	if err != nil {
		return nil, err
	}
	return r.adoptLocked(chain)
}

// Clone derives a pad-shifted copy of an existing session as a new
// session with its own identifier and commitment.
func (r *Registry) Clone(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	source, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	chain, err := source.chain.CloneWithPadFrom(r.entropy)
	if err != nil {
		return nil, err
	}
	return r.adoptLocked(chain)
}

func (r *Registry) adoptLocked(chain *container.Hierarchy) (*Session, error) {
	proofs, err := proof.Wrap(chain, r.entropy)
	if err != nil {
		return nil, err
	}
	session := &Session{
		id:     uuid.NewRandom(),
		chain:  chain,
		proofs: proofs,
	}
	if err := r.saveLocked(session); err != nil {
		return nil, err
	}
	r.open[session.id.String()] = session
	log.Debugf("Session %s created at iteration %d", session.id, session.Iteration())
	return session, nil
}

// Get returns the session under id, loading and recommitting it from
// the store when it is not already open.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(id)
}

func (r *Registry) getLocked(id uuid.UUID) (*Session, error) {
	if session, ok := r.open[id.String()]; ok {
		return session, nil
	}

	value, cached := r.snapshots.Get(id)
	if !cached {
		pair, err := r.store.Get(storage.SessionPrefix, id)
		if err == storage.ErrKeyNotFound {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, err
		}
		value = pair.Value
	}

	rec, err := decodeRecord(value)
	if err != nil {
		return nil, err
	}
	session, err := r.restoreLocked(rec)
	if err != nil {
		return nil, err
	}
	r.open[id.String()] = session
	return session, nil
}

// restoreLocked rebuilds a session from its record. The persisted
// commitment is checked against the persisted states before anything is
// trusted; the session is then recommitted under a fresh nonce.
func (r *Registry) restoreLocked(rec *record) (*Session, error) {
	chained := make([]byte, 0, len(rec.Layers)*rec.BlockSize)
	for _, layer := range rec.Layers {
		chained = append(chained, layer.State...)
	}
	if !bytes.Equal(proof.Commit(chained, rec.Nonce), rec.Commitment) {
		return nil, ErrCorrupted
	}

	snaps := make([]container.Snapshot, len(rec.Layers))
	for i, layer := range rec.Layers {
		snaps[i] = container.Snapshot{
			Layer:     i,
			State:     layer.State,
			PadAccum:  layer.PadAccum,
			Iteration: layer.Iteration,
		}
	}
	order := make(container.OpOrder, len(rec.OpOrder))
	for i, op := range rec.OpOrder {
		order[i] = compute.Op(op)
	}
	chain, err := container.RestoreHierarchy(snaps, order)
	if err != nil {
		return nil, err
	}
	proofs, err := proof.Wrap(chain, r.entropy)
	if err != nil {
		return nil, err
	}
	session := &Session{
		id:     uuid.UUID(rec.ID),
		chain:  chain,
		proofs: proofs,
	}
	// the commitment rotated on load, persist the new one
	if err := r.saveLocked(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Evolve advances the session under id by one step and persists the
// result.
func (r *Registry) Evolve(id uuid.UUID, entropyBlock []byte) (*proof.EvolutionProof, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.getLocked(id)
	if err != nil {
		return nil, err
	}
	evolutionProof, err := session.Evolve(entropyBlock)
	if err != nil {
		return nil, err
	}
	if err := r.saveLocked(session); err != nil {
		return nil, err
	}
	return evolutionProof, nil
}

// Save persists the session's current snapshot, commitment and
// iteration.
func (r *Registry) Save(session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(session)
}

func (r *Registry) saveLocked(session *Session) error {
	value, err := encodeRecord(session.toRecord())
	if err != nil {
		return err
	}
	id := []byte(session.id)
	mutations := []*storage.Mutation{
		storage.NewMutation(storage.SessionPrefix, id, value),
		storage.NewMutation(storage.CommitmentPrefix, id, session.Commitment()),
		storage.NewMutation(storage.MetaPrefix, id, util.Uint64AsBytes(session.Iteration())),
	}
	if err := r.store.Mutate(mutations); err != nil {
		return err
	}
	r.snapshots.Put(id, value)
	return nil
}

// List returns the iteration counter of every persisted session, keyed
// by identifier. Identifiers are 16 bytes, so the full keyspace is a
// single bounded range.
func (r *Registry) List() (map[string]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := make([]byte, 16)
	end := bytes.Repeat([]byte{0xff}, 16)
	pairs, err := r.store.GetRange(storage.MetaPrefix, start, end)
	if err != nil {
		return nil, err
	}
	out := make(map[string]uint64, len(pairs))
	for _, pair := range pairs {
		out[uuid.UUID(pair.Key).String()] = util.BytesAsUint64(pair.Value)
	}
	return out, nil
}

// RecordVerification feeds a counterparty's verdict into the session
// under id. A failed verdict invalidates the session and purges its
// persisted material, so no later registry over the same store can
// resume it.
func (r *Registry) RecordVerification(id uuid.UUID, ok bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.getLocked(id)
	if err != nil {
		return err
	}
	session.RecordVerification(ok)
	if session.Status() != proof.Invalidated {
		return nil
	}
	delete(r.open, id.String())
	log.Infof("Session %s invalidated by failed verification", id)
	return r.purgeLocked(id)
}

// purgeLocked removes every persisted trace of a session. Errors are
// aggregated so a failing table does not mask the rest.
func (r *Registry) purgeLocked(id uuid.UUID) error {
	var errs *multierror.Error
	r.snapshots.Delete(id)
	if deletable, ok := r.store.(storage.DeletableStore); ok {
		for _, prefix := range []byte{storage.SessionPrefix, storage.CommitmentPrefix, storage.MetaPrefix} {
			if err := deletable.Delete(prefix, id); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	return errs.ErrorOrNil()
}

// Destroy invalidates the session, wipes its cached material and
// removes it from the store. All teardown errors are aggregated.
func (r *Registry) Destroy(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.getLocked(id)
	if err != nil {
		return err
	}
	session.Invalidate()
	delete(r.open, id.String())
	log.Infof("Session %s destroyed", id)
	return r.purgeLocked(id)
}

// Close persists every open session and closes the store. All errors
// are aggregated so a failing session does not mask the rest.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs *multierror.Error
	for key, session := range r.open {
		switch session.Status() {
		case proof.Committed:
			if err := r.saveLocked(session); err != nil {
				errs = multierror.Append(errs, err)
			}
		case proof.Invalidated:
			// invalidation is terminal, nothing may survive in the store
			if err := r.purgeLocked(session.id); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		delete(r.open, key)
	}
	if err := r.store.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}
