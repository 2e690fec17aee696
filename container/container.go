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

// Package container implements the layered binary container: a nested
// chain of state blocks advanced deterministically on every step, where
// each inner layer derives its entropy from the evolution of its outer
// neighbour. Pad-related copies of a container stay verifiably
// synchronized for as long as they consume identical entropy streams;
// any divergence is permanent and detectable, by design. There is no
// resynchronization primitive.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/padsync/strata/compute"
	"github.com/padsync/strata/entropy"
	"github.com/padsync/strata/util"
)

var (
	// ErrLengthMismatch is returned when an entropy buffer does not
	// match the container block size. Caller error, never retried.
	ErrLengthMismatch = errors.New("container: entropy length mismatch")

	// ErrDestroyed is returned when operating on a zeroized container.
	ErrDestroyed = errors.New("container: container has been destroyed")

	// ErrInvalidConfig is returned by constructors on a bad Config.
	ErrInvalidConfig = errors.New("container: invalid configuration")
)

// OpOrder is the sequence of engine operations applied to the entropy
// block before it is XORed into the state. The order is fixed at
// construction and is part of the container identity: two containers
// with different orders are never considered synchronized.
type OpOrder []compute.Op

// DefaultOpOrder preprocesses entropy with ADD then XOR against the
// iteration block.
func DefaultOpOrder() OpOrder {
	return OpOrder{compute.ADD, compute.XOR}
}

// Digest returns a fixed identifier for the order, compared during
// Interact and bound into transition proofs.
func (o OpOrder) Digest() []byte {
	encoded := make([]byte, len(o))
	for i, op := range o {
		encoded[i] = byte(op)
	}
	return deriveDigest(opOrderDomain, encoded)
}

func (o OpOrder) validate() error {
	if len(o) == 0 {
		return fmt.Errorf("%w: empty operation order", ErrInvalidConfig)
	}
	for _, op := range o {
		switch op {
		case compute.ADD, compute.AND, compute.OR, compute.XOR:
		default:
			return fmt.Errorf("%w: unknown operation %v", ErrInvalidConfig, op)
		}
	}
	return nil
}

func (o OpOrder) String() string {
	var b bytes.Buffer
	for i, op := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(op.String())
	}
	return b.String()
}

// Config fixes the identity-defining parameters of a hierarchy. All of
// them are immutable after construction.
type Config struct {
	BlockSize int
	Depth     int
	OpOrder   OpOrder
}

// DefaultConfig returns a 3-layer hierarchy of 32-byte blocks with the
// default operation order.
func DefaultConfig() Config {
	return Config{
		BlockSize: compute.DefaultWordSize,
		Depth:     3,
		OpOrder:   DefaultOpOrder(),
	}
}

func (c Config) validate() error {
	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: block size %d", ErrInvalidConfig, c.BlockSize)
	}
	if c.Depth < 1 {
		return fmt.Errorf("%w: depth %d", ErrInvalidConfig, c.Depth)
	}
	return c.OpOrder.validate()
}

// Container is one layer of the hierarchy. Only root containers are
// handed to callers; inner layers are owned exclusively by their outer
// neighbour and evolve only as part of the outer layer's step, so an
// inner iteration can never exceed the outer one. The root mutex
// serializes every mutation of the whole chain (single-writer).
type Container struct {
	mu sync.Mutex // held on roots only; inner layers evolve under it

	state     []byte
	padAccum  []byte // XOR of every pad applied to this layer since construction
	iteration uint64
	layer     int
	order     OpOrder
	engine    *compute.Engine
	inner     *Container
	destroyed bool
}

// New creates a container chain of cfg.Depth layers, drawing every
// layer's initial state from src.
func New(cfg Config, src entropy.Source) (*Container, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	state := make([]byte, cfg.BlockSize)
	if err := src.Fill(state); err != nil {
		return nil, err
	}
	return NewWithState(state, cfg, src)
}

// NewWithState creates a container chain whose root state is supplied by
// the caller. Inner layer states are drawn from src. The state slice is
// copied, not retained.
func NewWithState(state []byte, cfg Config, src entropy.Source) (*Container, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(state) != cfg.BlockSize {
		return nil, fmt.Errorf("%w: initial state has %d bytes, want %d",
			ErrLengthMismatch, len(state), cfg.BlockSize)
	}
	return newLayer(state, cfg, src, 0)
}

func newLayer(state []byte, cfg Config, src entropy.Source, layer int) (*Container, error) {
	c := &Container{
		state:    append([]byte(nil), state...),
		padAccum: make([]byte, cfg.BlockSize),
		layer:    layer,
		order:    append(OpOrder(nil), cfg.OpOrder...),
		engine:   compute.NewEngine(compute.DefaultSlots, cfg.BlockSize),
	}
	if layer+1 < cfg.Depth {
		innerState := make([]byte, cfg.BlockSize)
		if err := src.Fill(innerState); err != nil {
			return nil, err
		}
		inner, err := newLayer(innerState, cfg, src, layer+1)
		if err != nil {
			return nil, err
		}
		c.inner = inner
	}
	return c, nil
}

// BlockSize returns the fixed state block length.
func (c *Container) BlockSize() int {
	return c.engine.WordSize()
}

// Depth returns the number of layers reachable from this container.
func (c *Container) Depth() int {
	d := 0
	for l := c; l != nil; l = l.inner {
		d++
	}
	return d
}

// Iteration returns the root layer step counter.
func (c *Container) Iteration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iteration
}

// OpOrder returns a copy of the configured operation order.
func (c *Container) OpOrder() OpOrder {
	return append(OpOrder(nil), c.order...)
}

// Evolve advances the whole chain by one step. The entropy block is
// preprocessed through the engine by the configured operation order
// against an iteration block, then XORed into the state. The
// preprocessing never reads the state, so the XOR relationship between
// pad-related copies is preserved exactly under every operation order.
// Inner layers are then advanced with pads derived from this layer's
// canonical state.
func (c *Container) Evolve(entropyBlock []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evolveLocked(entropyBlock)
}

func (c *Container) evolveLocked(entropyBlock []byte) error {
	if c.destroyed {
		return ErrDestroyed
	}
	size := c.engine.WordSize()
	if len(entropyBlock) != size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, len(entropyBlock), size)
	}

	iterBlock := make([]byte, size)
	copy(iterBlock, util.Uint64AsBytes(c.iteration))

	// slot 0: iteration block, slot 1: entropy, slot 2: state
	if err := c.engine.Load(0, iterBlock); err != nil {
		return err
	}
	if err := c.engine.Load(1, entropyBlock); err != nil {
		return err
	}
	for _, op := range c.order {
		if err := c.engine.Apply(op, 1, 1, 0); err != nil {
			return err
		}
	}
	if err := c.engine.Load(2, c.state); err != nil {
		return err
	}
	if err := c.engine.Apply(compute.XOR, 2, 2, 1); err != nil {
		return err
	}

	next, err := c.engine.Read(2)
	if err != nil {
		return err
	}
	util.ZeroBytes(c.state)
	c.state = next
	c.iteration++
	evolveTotal.Inc()

	if c.inner != nil {
		pad := derivePad(evolvePadDomain, c.canonicalState(), c.inner.layer, c.iteration, size)
		err := c.inner.evolveLocked(pad)
		util.ZeroBytes(pad)
		if err != nil {
			return err
		}
	}
	return nil
}

// canonicalState is the state with the accumulated pad removed. It is
// identical across every pad-related copy of a layer, which keeps the
// derived entropy of inner layers identical across a synchronized pair.
func (c *Container) canonicalState() []byte {
	canonical := make([]byte, len(c.state))
	for i := range c.state {
		canonical[i] = c.state[i] ^ c.padAccum[i]
	}
	return canonical
}

// CloneWithPad produces a pad-shifted copy of the whole chain. The root
// pad is sampled fresh from the OS CSPRNG; inner pads are derived from
// the outer clone's new state, recursively, so the cloned hierarchy is
// shifted uniformly. The two copies remain verifiably related only while
// both consume identical entropy streams.
func (c *Container) CloneWithPad() (*Container, error) {
	return c.CloneWithPadFrom(entropy.NewCryptoRand())
}

// CloneWithPadFrom is CloneWithPad with a caller-supplied pad source.
func (c *Container) CloneWithPadFrom(src entropy.Source) (*Container, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil, ErrDestroyed
	}

	pad := make([]byte, c.engine.WordSize())
	if err := src.Fill(pad); err != nil {
		return nil, err
	}
	clone, err := c.cloneWithGivenPad(pad)
	util.ZeroBytes(pad) // single-use pad, wiped after application
	if err != nil {
		return nil, err
	}
	cloneTotal.Inc()
	return clone, nil
}

func (c *Container) cloneWithGivenPad(pad []byte) (*Container, error) {
	size := c.engine.WordSize()
	clone := &Container{
		state:     make([]byte, size),
		padAccum:  make([]byte, size),
		iteration: c.iteration,
		layer:     c.layer,
		order:     append(OpOrder(nil), c.order...),
		engine:    compute.NewEngine(compute.DefaultSlots, size),
	}
	for i := 0; i < size; i++ {
		clone.state[i] = c.state[i] ^ pad[i]
		clone.padAccum[i] = c.padAccum[i] ^ pad[i]
	}
	if c.inner != nil {
		innerPad := derivePad(clonePadDomain, clone.state, c.inner.layer, c.iteration, size)
		inner, err := c.inner.cloneWithGivenPad(innerPad)
		util.ZeroBytes(innerPad)
		if err != nil {
			return nil, err
		}
		clone.inner = inner
	}
	return clone, nil
}

// Interact checks, layer by layer, whether c and other are consistent
// with being pad-related copies that evolved identically: equal
// iteration counters and a state difference equal to the difference of
// the tracked pads. Every layer is checked; there is no short-circuit.
func (c *Container) Interact(other *Container) *VerificationResult {
	interactTotal.Inc()

	selfSnaps := c.Snapshots()
	otherSnaps := other.Snapshots()

	result := newVerificationResult(len(selfSnaps))
	if len(selfSnaps) != len(otherSnaps) ||
		c.BlockSize() != other.BlockSize() ||
		!bytes.Equal(c.order.Digest(), other.order.Digest()) {
		result.Pairable = false
		result.FirstDivergent = 0
		interactFailTotal.Inc()
		return result
	}

	for i := range selfSnaps {
		valid := selfSnaps[i].Iteration == otherSnaps[i].Iteration
		if valid {
			for j := range selfSnaps[i].State {
				diff := selfSnaps[i].State[j] ^ otherSnaps[i].State[j]
				expected := selfSnaps[i].PadAccum[j] ^ otherSnaps[i].PadAccum[j]
				if diff != expected {
					valid = false
					break
				}
			}
		}
		result.Layers[i] = valid
		if !valid && result.FirstDivergent == -1 {
			result.FirstDivergent = i
		}
	}
	if !result.AllValid() {
		interactFailTotal.Inc()
	}
	return result
}

// Snapshot is a consistent copy of one layer, taken under the root lock.
type Snapshot struct {
	Layer     int
	State     []byte
	PadAccum  []byte
	Iteration uint64
}

// Snapshots returns a consistent copy of every layer, outer to inner.
func (c *Container) Snapshots() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snaps := make([]Snapshot, 0, c.Depth())
	for l := c; l != nil; l = l.inner {
		snaps = append(snaps, Snapshot{
			Layer:     l.layer,
			State:     append([]byte(nil), l.state...),
			PadAccum:  append([]byte(nil), l.padAccum...),
			Iteration: l.iteration,
		})
	}
	return snaps
}

// Restore rebuilds a container chain from persisted snapshots. Snapshots
// must be ordered outer to inner with contiguous layer indexes.
func Restore(snaps []Snapshot, order OpOrder) (*Container, error) {
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%w: no layer snapshots", ErrInvalidConfig)
	}
	if err := order.validate(); err != nil {
		return nil, err
	}
	size := len(snaps[0].State)
	if size == 0 {
		return nil, fmt.Errorf("%w: empty state block", ErrInvalidConfig)
	}

	var root, outer *Container
	for i, s := range snaps {
		if s.Layer != i || len(s.State) != size || len(s.PadAccum) != size {
			return nil, fmt.Errorf("%w: malformed snapshot at layer %d", ErrInvalidConfig, i)
		}
		l := &Container{
			state:     append([]byte(nil), s.State...),
			padAccum:  append([]byte(nil), s.PadAccum...),
			iteration: s.Iteration,
			layer:     i,
			order:     append(OpOrder(nil), order...),
			engine:    compute.NewEngine(compute.DefaultSlots, size),
		}
		if outer == nil {
			root = l
		} else {
			if s.Iteration > outer.iteration {
				return nil, fmt.Errorf("%w: layer %d iteration exceeds its outer layer", ErrInvalidConfig, i)
			}
			outer.inner = l
		}
		outer = l
	}
	return root, nil
}

// Destroy zeroizes every layer. The container is unusable afterwards;
// desynchronized pairs are destroyed, never resynchronized.
func (c *Container) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for l := c; l != nil; l = l.inner {
		util.ZeroBytes(l.state)
		util.ZeroBytes(l.padAccum)
		l.engine.Reset()
		l.destroyed = true
	}
}
