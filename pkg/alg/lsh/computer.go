package lsh

import (
	"fmt"
	"math"
	"slices"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/shingle"
)

// Preset parameters for index deduplication and news topic modelling.
const (
	// DefaultBucketMinSize is the smallest bucket occupancy worth grouping.
	DefaultBucketMinSize = 2

	// DefaultSeed is the coefficient seed shared by deduplication producers.
	DefaultSeed = minhash.DefaultSeed

	// DefaultStages is the stage count of the presets.
	DefaultStages = 10

	// DefaultWordK is the word shingle size of the presets.
	DefaultWordK = 5

	// IndexDeduplicationThreshold is the similarity threshold for index deduplication.
	IndexDeduplicationThreshold = 0.95

	// NewsTopicModelThreshold is the similarity threshold for news topic modelling.
	NewsTopicModelThreshold = 0.8
)

// Computer turns text into LSH signatures with a shingler and an LSH.
// It is safe for concurrent use.
type Computer struct {
	shingler shingle.Shingler
	lsh      *MinHashLSH
	k        int
}

// NewComputer pairs a shingler with an LSH.
func NewComputer(shingler shingle.Shingler, lsh *MinHashLSH) *Computer {
	return &Computer{shingler: shingler, lsh: lsh, k: shingler.K()}
}

// NewIndexDeduplication returns the index deduplication preset: 5-word
// shingles, 10 stages, threshold 0.95, Simplified engine, DefaultSeed.
func NewIndexDeduplication() (*Computer, error) {
	return newPreset(IndexDeduplicationThreshold)
}

// NewNewsTopicModel returns the news topic model preset: as
// NewIndexDeduplication with threshold 0.8.
func NewNewsTopicModel() (*Computer, error) {
	return newPreset(NewsTopicModelThreshold)
}

func newPreset(threshold float64) (*Computer, error) {
	sh, err := shingle.NewWord(DefaultWordK)
	if err != nil {
		return nil, err
	}

	l, err := NewForThreshold(DefaultStages, SimplifiedDictSize, DefaultSeed, threshold)
	if err != nil {
		return nil, err
	}

	return NewComputer(sh, l), nil
}

// Signature returns the LSH signature of text, or nil when text has no more
// than k positive shingles.
func (c *Computer) Signature(text string) []int32 {
	shingles := c.shingler.PositiveShingles(text)
	if len(shingles) <= c.k {
		return nil
	}

	return c.lsh.HashShingles(shingles)
}

// SignatureOfWords returns the LSH signature of a word list, treating each
// word's absolute string hash as one shingle. It returns nil when there are
// fewer than k words or fewer than k distinct hashes.
func (c *Computer) SignatureOfWords(words []string) []int32 {
	if len(words) < c.k {
		return nil
	}

	hashes := make([]int32, 0, len(words))

	for _, w := range words {
		h := shingle.HashString(w)
		if h == math.MinInt32 {
			continue
		}

		if h < 0 {
			h = -h
		}

		hashes = append(hashes, h)
	}

	slices.Sort(hashes)
	hashes = slices.Compact(hashes)

	if len(hashes) < c.k {
		return nil
	}

	return c.lsh.HashShingles(hashes)
}

// Stages returns the LSH stage count.
func (c *Computer) Stages() int {
	return c.lsh.Stages()
}

// K returns the shingle size.
func (c *Computer) K() int {
	return c.k
}

// LSH returns the underlying LSH.
func (c *Computer) LSH() *MinHashLSH {
	return c.lsh
}

// Sig64Converter returns a full packing converter over every stage.
func (c *Computer) Sig64Converter() (*Sig64Converter, error) {
	return NewSig64Converter(c.Stages(), c.Stages(), NoReduction)
}

// ReducedSig64Converter returns a converter over the first reducedStages stages.
func (c *Computer) ReducedSig64Converter(reducedStages, minAppearance int) (*Sig64Converter, error) {
	conv, err := NewSig64Converter(c.Stages(), reducedStages, minAppearance)
	if err != nil {
		return nil, fmt.Errorf("reduced converter: %w", err)
	}

	return conv, nil
}
