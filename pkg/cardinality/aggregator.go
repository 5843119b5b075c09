package cardinality

import (
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/hll"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/mapx"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

// Aggregator keeps one HybridLogHash per key and accepts items from many
// concurrent producers.
type Aggregator[K comparable] struct {
	engine    minhash.Engine64
	precision uint8

	mu     sync.RWMutex
	hashes map[K]*HybridLogHash
}

// NewAggregator creates an aggregator whose estimators share engine.
func NewAggregator[K comparable](engine minhash.Engine64, precision uint8) (*Aggregator[K], error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	// Validate the precision once instead of on every new key.
	_, err := hll.New(precision)
	if err != nil {
		return nil, fmt.Errorf("cardinality: %w", err)
	}

	return &Aggregator[K]{
		engine:    engine,
		precision: precision,
		hashes:    make(map[K]*HybridLogHash),
	}, nil
}

// NewDefaultAggregator uses a 2048-function Simplified64 engine at DefaultSeed
// and DefaultPrecision.
func NewDefaultAggregator[K comparable]() (*Aggregator[K], error) {
	engine, err := minhash.NewSimplified64(DefaultSignatureSize, DefaultSeed)
	if err != nil {
		return nil, fmt.Errorf("cardinality: %w", err)
	}

	return NewAggregator[K](engine, DefaultPrecision)
}

// Add records item under every key. The item's signature is computed once.
func (a *Aggregator[K]) Add(item int64, keys ...K) {
	if len(keys) == 0 {
		return
	}

	sig := a.engine.SignatureOf(item)

	for _, key := range keys {
		// Same engine everywhere, so the signature always fits.
		_ = a.getOrCreate(key).AddWithSignature(item, sig)
	}
}

// Get returns the estimator for key.
func (a *Aggregator[K]) Get(key K) (*HybridLogHash, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	h, ok := a.hashes[key]

	return h, ok
}

// Len returns the number of keys seen.
func (a *Aggregator[K]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.hashes)
}

// Snapshot returns a copy of the key to estimator map. The estimators
// themselves are shared.
func (a *Aggregator[K]) Snapshot() map[K]*HybridLogHash {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return mapx.Clone(a.hashes)
}

// Engine returns the shared MinHash engine.
func (a *Aggregator[K]) Engine() minhash.Engine64 {
	return a.engine
}

func (a *Aggregator[K]) getOrCreate(key K) *HybridLogHash {
	a.mu.RLock()
	h, ok := a.hashes[key]
	a.mu.RUnlock()

	if ok {
		return h
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok = a.hashes[key]
	if !ok {
		// Precision was validated by NewAggregator.
		h, _ = New(a.engine, a.precision)
		a.hashes[key] = h
	}

	return h
}
