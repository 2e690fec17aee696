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

import "github.com/padsync/strata/entropy"

// Hierarchy owns a root container and exposes whole-chain operations.
// Depth is fixed at creation; layers are never inserted or removed.
// Evolution fans out strictly outer to inner as a single logical
// operation. Independent hierarchies share no state and may be driven
// in parallel.
type Hierarchy struct {
	root *Container
	cfg  Config
}

// NewHierarchy builds a hierarchy of cfg.Depth layers with initial
// states drawn from src.
func NewHierarchy(cfg Config, src entropy.Source) (*Hierarchy, error) {
	root, err := New(cfg, src)
	if err != nil {
		return nil, err
	}
	return &Hierarchy{root: root, cfg: cfg}, nil
}

// RestoreHierarchy rebuilds a hierarchy from persisted layer snapshots.
func RestoreHierarchy(snaps []Snapshot, order OpOrder) (*Hierarchy, error) {
	root, err := Restore(snaps, order)
	if err != nil {
		return nil, err
	}
	return &Hierarchy{
		root: root,
		cfg: Config{
			BlockSize: root.BlockSize(),
			Depth:     root.Depth(),
			OpOrder:   root.OpOrder(),
		},
	}, nil
}

// EvolveAll advances every layer by one step (outer to inner).
func (h *Hierarchy) EvolveAll(entropyBlock []byte) error {
	return h.root.Evolve(entropyBlock)
}

// Depth returns the fixed number of layers.
func (h *Hierarchy) Depth() int {
	return h.cfg.Depth
}

// BlockSize returns the fixed state block length.
func (h *Hierarchy) BlockSize() int {
	return h.cfg.BlockSize
}

// Iteration returns the root layer step counter.
func (h *Hierarchy) Iteration() uint64 {
	return h.root.Iteration()
}

// OpOrder returns a copy of the configured operation order.
func (h *Hierarchy) OpOrder() OpOrder {
	return h.root.OpOrder()
}

// CloneWithPad produces a uniformly pad-shifted copy of the hierarchy.
func (h *Hierarchy) CloneWithPad() (*Hierarchy, error) {
	return h.CloneWithPadFrom(entropy.NewCryptoRand())
}

// CloneWithPadFrom is CloneWithPad with a caller-supplied pad source.
func (h *Hierarchy) CloneWithPadFrom(src entropy.Source) (*Hierarchy, error) {
	clone, err := h.root.CloneWithPadFrom(src)
	if err != nil {
		return nil, err
	}
	return &Hierarchy{root: clone, cfg: h.cfg}, nil
}

// VerifyAgainst checks this hierarchy against a supposedly pad-related
// one. All layers are always checked, even after an earlier failure, so
// callers get the full per-layer picture.
func (h *Hierarchy) VerifyAgainst(other *Hierarchy) *VerificationResult {
	return h.root.Interact(other.root)
}

// Snapshots returns a consistent copy of every layer, outer to inner.
func (h *Hierarchy) Snapshots() []Snapshot {
	return h.root.Snapshots()
}

// Destroy zeroizes every layer.
func (h *Hierarchy) Destroy() {
	h.root.Destroy()
}
