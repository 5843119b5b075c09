package lsh

import "fmt"

const (
	// NoReduction disables reduced packing: every stage pair is combined.
	NoReduction = 0

	// maxReduction is the largest supported reduction dial.
	maxReduction = 4

	// minReduction is the smallest reduction dial that changes the packing.
	minReduction = 3
)

// Sig64Converter packs a 32-bit LSH signature into 64-bit stage pairs.
//
// Full packing combines every pair (i, j), i < j, of the first reducedStages
// stages in row-major order, giving C(reducedStages, 2) values. Reduced
// packing drops the cross product of the last minAppearance stages and then
// appends up to two recovery pairs, giving C(reducedStages, 2)-minAppearance
// values. Consumers index packed signatures by position, so the enumeration
// order is fixed.
type Sig64Converter struct {
	stages        int
	reducedStages int
	minAppearance int
	stage64Bit    int
}

// NewSig64Converter creates a converter over the first reducedStages of a
// stages-stage LSH signature. minAppearance is normalized: values <= 2, and
// values in (reducedStages/2, 4], disable reduction; values above 4 become 4.
func NewSig64Converter(stages, reducedStages, minAppearance int) (*Sig64Converter, error) {
	if stages <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNonPositiveStages, stages)
	}

	if reducedStages > stages {
		return nil, fmt.Errorf("%w: %d > %d", ErrReducedStages, reducedStages, stages)
	}

	if reducedStages < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNonPositiveStages, reducedStages)
	}

	m := NormalizeMinAppearance(reducedStages, minAppearance)

	stage64 := Compute64BitStage(reducedStages, m)
	if stage64 <= 0 {
		return nil, fmt.Errorf("%w: %d reduced stages, min appearance %d", ErrNoPackedStages, reducedStages, m)
	}

	return &Sig64Converter{
		stages:        stages,
		reducedStages: reducedStages,
		minAppearance: m,
		stage64Bit:    stage64,
	}, nil
}

// NormalizeMinAppearance clamps the reduction dial to {0, 3, 4}.
func NormalizeMinAppearance(reducedStages, minAppearance int) int {
	switch {
	case minAppearance < minReduction:
		return NoReduction
	case minAppearance > maxReduction:
		return maxReduction
	case minAppearance > reducedStages/2:
		return NoReduction
	default:
		return minAppearance
	}
}

// Compute64BitStage returns C(reducedStages, 2) minus minAppearance when
// minAppearance is at least 3.
func Compute64BitStage(reducedStages, minAppearance int) int {
	if reducedStages < 0 {
		return 0
	}

	count := reducedStages * (reducedStages - 1) / 2
	if minAppearance >= minReduction {
		count -= minAppearance
	}

	return count
}

// To64Bit packs an LSH signature. It returns nil when the signature has fewer
// than ReducedStages stages.
func (c *Sig64Converter) To64Bit(lshSignature []int32) []int64 {
	if len(lshSignature) < c.reducedStages {
		return nil
	}

	if c.minAppearance == NoReduction {
		return c.full(lshSignature)
	}

	return c.reduced(lshSignature)
}

// Stage64Bit returns the packed signature length.
func (c *Sig64Converter) Stage64Bit() int {
	return c.stage64Bit
}

// ReducedStages returns the number of 32-bit stages consumed.
func (c *Sig64Converter) ReducedStages() int {
	return c.reducedStages
}

// MinAppearance returns the normalized reduction dial.
func (c *Sig64Converter) MinAppearance() int {
	return c.minAppearance
}

// FullStage64Bit returns the packed length with no reduction over all stages.
func (c *Sig64Converter) FullStage64Bit() int {
	return Compute64BitStage(c.stages, NoReduction)
}

func (c *Sig64Converter) full(sig []int32) []int64 {
	out := make([]int64, 0, c.stage64Bit)

	for i := range c.reducedStages - 1 {
		for j := i + 1; j < c.reducedStages; j++ {
			out = append(out, Combine(sig[i], sig[j]))
		}
	}

	return out
}

func (c *Sig64Converter) reduced(sig []int32) []int64 {
	r, m := c.reducedStages, c.minAppearance
	out := make([]int64, 0, c.stage64Bit)

	for i := range r - m {
		for j := i + 1; j < r; j++ {
			out = append(out, Combine(sig[i], sig[j]))
		}
	}

	if len(out) < c.stage64Bit {
		out = append(out, Combine(sig[r-m], sig[r-m+1]))
	}

	if len(out) < c.stage64Bit {
		out = append(out, Combine(sig[r-2], sig[r-1]))
	}

	return out
}
