package minhash

import (
	"fmt"
	"math"
)

// Continuable accumulates a 32-bit signature incrementally. Every slot starts
// at math.MaxInt32, so a fresh accumulator is the identity for Union.
// It is not safe for concurrent mutation.
type Continuable struct {
	engine Engine
	sig    []int32
}

// NewContinuable creates an empty accumulator for the given engine.
func NewContinuable(engine Engine) *Continuable {
	return &Continuable{
		engine: engine,
		sig:    newSignature32(engine.SignatureSize()),
	}
}

// Add folds one element into the signature.
func (c *Continuable) Add(x int32) {
	for i := range c.sig {
		c.sig[i] = min(c.sig[i], c.engine.Hash(i, x))
	}
}

// Union folds another signature into this one by component-wise minimum.
func (c *Continuable) Union(sig []int32) error {
	if len(sig) != len(c.sig) {
		return fmt.Errorf("%w: %d != %d", ErrSizeMismatch, len(c.sig), len(sig))
	}

	for i := range c.sig {
		c.sig[i] = min(c.sig[i], sig[i])
	}

	return nil
}

// Signature returns a copy of the accumulated signature.
func (c *Continuable) Signature() []int32 {
	out := make([]int32, len(c.sig))
	copy(out, c.sig)

	return out
}

// Continuable64 accumulates a 64-bit signature incrementally, supporting
// element adds, precomputed-signature unions and accumulator merges.
// It is not safe for concurrent mutation.
type Continuable64 struct {
	engine Engine64
	sig    []int64
}

// NewContinuable64 creates an empty accumulator for the given engine.
func NewContinuable64(engine Engine64) *Continuable64 {
	return &Continuable64{
		engine: engine,
		sig:    newSignature64(engine.SignatureSize()),
	}
}

// Add folds one element into the signature.
func (c *Continuable64) Add(x int64) {
	for i := range c.sig {
		c.sig[i] = min(c.sig[i], c.engine.Hash(i, x))
	}
}

// Union folds a precomputed signature into this one.
func (c *Continuable64) Union(sig []int64) error {
	return unionInto64(c.sig, sig)
}

// UnionWith folds another accumulator into this one. Merging an accumulator
// with itself leaves it unchanged.
func (c *Continuable64) UnionWith(other *Continuable64) error {
	if other == c {
		return nil
	}

	return unionInto64(c.sig, other.sig)
}

// Signature returns a copy of the accumulated signature.
func (c *Continuable64) Signature() []int64 {
	out := make([]int64, len(c.sig))
	copy(out, c.sig)

	return out
}

// Empty reports whether nothing has been added yet.
func (c *Continuable64) Empty() bool {
	for _, v := range c.sig {
		if v != math.MaxInt64 {
			return false
		}
	}

	return true
}

// Engine returns the engine the accumulator hashes with.
func (c *Continuable64) Engine() Engine64 {
	return c.engine
}
