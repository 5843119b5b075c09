// Package cardinality estimates set sizes, unions and intersections per key by
// pairing a HyperLogLog sketch with a 64-bit MinHash signature.
//
// The sketch answers "how many distinct items" and "how many in the union";
// the signature supplies the Jaccard similarity that turns a union count into
// an intersection count.
package cardinality

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/hll"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/jaccard"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

const (
	// DefaultPrecision is the HyperLogLog precision (log2 of the register count).
	DefaultPrecision = hll.DefaultPrecision

	// DefaultSignatureSize is the MinHash signature size of the default engine.
	DefaultSignatureSize = 2 * 1024

	// DefaultSeed is the MinHash coefficient seed of the default engine.
	DefaultSeed = minhash.DefaultSeed
)

var (
	// ErrNilEngine is returned when no MinHash engine is supplied.
	ErrNilEngine = errors.New("cardinality: nil minhash engine")

	// ErrEngineMismatch is returned when combining estimators built on engines
	// with different signature sizes.
	ErrEngineMismatch = errors.New("cardinality: signature size mismatch")
)

// HybridLogHash tracks one key's distinct items. It is safe for concurrent use.
type HybridLogHash struct {
	mu     sync.Mutex
	sketch *hll.Sketch
	acc    *minhash.Continuable64

	// Cached reads, refreshed lazily after writes.
	sig   []int64
	card  uint64
	dirty bool
}

// New creates an empty estimator.
func New(engine minhash.Engine64, precision uint8) (*HybridLogHash, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	sketch, err := hll.New(precision)
	if err != nil {
		return nil, fmt.Errorf("cardinality: %w", err)
	}

	return &HybridLogHash{
		sketch: sketch,
		acc:    minhash.NewContinuable64(engine),
		dirty:  true,
	}, nil
}

// FromParts restores an estimator from a signature and a serialized sketch.
func FromParts(engine minhash.Engine64, sig []int64, sketchBytes []byte) (*HybridLogHash, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	sketch, err := hll.FromBytes(sketchBytes)
	if err != nil {
		return nil, fmt.Errorf("cardinality: %w", err)
	}

	acc := minhash.NewContinuable64(engine)

	err = acc.Union(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineMismatch, err)
	}

	return &HybridLogHash{sketch: sketch, acc: acc, dirty: true}, nil
}

// Add records one raw 64-bit item.
func (h *HybridLogHash) Add(r int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sketch.AddInt64(r)
	h.acc.Add(r)
	h.dirty = true
}

// AddWithSignature records an item whose single-element signature was
// computed once by the caller and is shared between keys.
func (h *HybridLogHash) AddWithSignature(r int64, sig []int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.acc.Union(sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEngineMismatch, err)
	}

	h.sketch.AddInt64(r)
	h.dirty = true

	return nil
}

// Union folds other into h. Other is left unchanged.
func (h *HybridLogHash) Union(other *HybridLogHash) error {
	if other == h {
		return nil
	}

	sig, sketch := other.snapshot()

	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.acc.Union(sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEngineMismatch, err)
	}

	err = h.sketch.Merge(sketch)
	if err != nil {
		return fmt.Errorf("cardinality: %w", err)
	}

	h.dirty = true

	return nil
}

// CountUnion estimates |h ∪ other| without modifying either side.
func (h *HybridLogHash) CountUnion(other *HybridLogHash) (uint64, error) {
	merged := h.sketch.Clone()

	err := merged.Merge(other.sketch)
	if err != nil {
		return 0, fmt.Errorf("cardinality: %w", err)
	}

	return merged.Count(), nil
}

// CountIntersect estimates |h ∩ other| as the union count scaled by the
// signature similarity.
func (h *HybridLogHash) CountIntersect(other *HybridLogHash) (uint64, error) {
	sim, err := jaccard.MinHash(h.Signature(), other.Signature())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEngineMismatch, err)
	}

	union, err := h.CountUnion(other)
	if err != nil {
		return 0, err
	}

	return uint64(float64(union) * sim), nil
}

// Cardinality estimates the number of distinct items added.
func (h *HybridLogHash) Cardinality() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.refresh()

	return h.card
}

// Signature returns the MinHash signature of the added items. The returned
// slice is shared with later callers and must not be modified.
func (h *HybridLogHash) Signature() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.refresh()

	return h.sig
}

// SketchBytes serializes the HyperLogLog sketch.
func (h *HybridLogHash) SketchBytes() []byte {
	return h.sketch.Bytes()
}

func (h *HybridLogHash) refresh() {
	if !h.dirty {
		return
	}

	h.sig = h.acc.Signature()
	h.card = h.sketch.Count()
	h.dirty = false
}

func (h *HybridLogHash) snapshot() ([]int64, *hll.Sketch) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.acc.Signature(), h.sketch.Clone()
}
