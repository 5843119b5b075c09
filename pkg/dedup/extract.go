package dedup

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/jaccard"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

// removalDivisor scales the group similarity down to the similarity at which
// groups and pairs are consumed by an emitted cluster.
const removalDivisor = 4

// ExtractOptions tunes ExtractDuplicateGroups. Zero values select defaults.
type ExtractOptions struct {
	// GroupSimilarity links big groups whose document lists are at least this
	// similar. Defaults to DefaultGroupSimilarity.
	GroupSimilarity float64

	// MinAppearance is how often a document must be counted in a cluster to
	// be emitted. Defaults to the grouper's MinAppearance.
	MinAppearance int
}

// Result holds the clusters found by ExtractDuplicateGroups.
type Result struct {
	// Clusters are ascending document ID lists of at least two IDs. No two
	// clusters are equal, but they may overlap.
	Clusters [][]int64

	// FromGroups is how many clusters came from big group traversal.
	FromGroups int

	// FromPairs is how many clusters came from counted pairs alone.
	FromPairs int

	// BigGroups is the number of buckets with more than two documents.
	BigGroups int

	// Pairs is the number of distinct two-document buckets.
	Pairs int
}

// extraction holds the arena of big groups and the consumed state.
type extraction struct {
	groups       []IDGroup
	pairs        map[IDPair]int
	candidates   [][]int
	removed      *roaring.Bitmap
	removedPairs map[IDPair]struct{}
	emitted      map[string]struct{}
	similarity   float64
	minApp       int
	result       Result
}

// ExtractDuplicateGroups merges the grouper's buckets into duplicate clusters.
//
// Big groups whose 20-value ID signatures agree in some column and whose ID
// lists are similar enough become candidates of each other. Each connected
// set of candidates, plus the counted pairs found inside its small groups, is
// tallied: documents counted more than MinAppearance times form a cluster.
// Groups and pairs similar to an emitted cluster by at least a quarter of the
// group similarity are consumed. Remaining pairs counted at least
// MinAppearance times are emitted on their own.
func ExtractDuplicateGroups(g Grouper, opts ExtractOptions) (Result, error) {
	similarity := opts.GroupSimilarity
	if similarity == 0 {
		similarity = DefaultGroupSimilarity
	}

	if similarity < 0 || similarity > 1 || math.IsNaN(similarity) {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidSimilarity, similarity)
	}

	minApp := opts.MinAppearance
	if minApp <= 0 {
		minApp = g.MinAppearance()
	}

	groups, pairs := g.BigGroupsAndPairs()

	e := &extraction{
		groups:       groups,
		pairs:        pairs,
		candidates:   make([][]int, len(groups)),
		removed:      roaring.New(),
		removedPairs: make(map[IDPair]struct{}),
		emitted:      make(map[string]struct{}),
		similarity:   similarity,
		minApp:       minApp,
		result:       Result{BigGroups: len(groups), Pairs: len(pairs)},
	}

	err := e.linkCandidates()
	if err != nil {
		return Result{}, err
	}

	for h := range e.groups {
		err = e.visit(h)
		if err != nil {
			return Result{}, err
		}
	}

	e.emitPairs()

	return e.result, nil
}

// linkCandidates sorts the groups by each signature column in turn and tests
// every two groups sharing a column value for candidacy.
func (e *extraction) linkCandidates() error {
	engine, err := minhash.NewSimplified(GroupSignatureSize, minhash.DefaultSeed)
	if err != nil {
		return fmt.Errorf("group signature engine: %w", err)
	}

	sigs := make([][]int32, len(e.groups))

	for h, grp := range e.groups {
		ids := make([]int32, len(grp.IDs))
		for i, id := range grp.IDs {
			ids[i] = int32(id) //nolint:gosec // truncated ids only feed the pre-filter.
		}

		sigs[h] = engine.Signature(ids)
	}

	tested := make(map[[2]int]struct{})
	order := make([]int, len(e.groups))

	for col := range GroupSignatureSize {
		for i := range order {
			order[i] = i
		}

		slices.SortStableFunc(order, func(a, b int) int {
			return cmp.Compare(sigs[a][col], sigs[b][col])
		})

		for start := 0; start < len(order); {
			end := start + 1
			for end < len(order) && sigs[order[end]][col] == sigs[order[start]][col] {
				end++
			}

			e.linkRun(order[start:end], tested)
			start = end
		}
	}

	return nil
}

// linkRun links the groups of one run of equal column values. Each pair of
// groups is tested once across all columns.
func (e *extraction) linkRun(run []int, tested map[[2]int]struct{}) {
	for i := range run {
		for j := i + 1; j < len(run); j++ {
			a, b := min(run[i], run[j]), max(run[i], run[j])
			if _, ok := tested[[2]int{a, b}]; ok {
				continue
			}

			tested[[2]int{a, b}] = struct{}{}

			if jaccard.SortedWithThreshold(e.similarity, e.groups[a].IDs, e.groups[b].IDs) == 0 {
				continue
			}

			e.candidates[a] = append(e.candidates[a], b)
			e.candidates[b] = append(e.candidates[b], a)
		}
	}
}

// visit consumes group h and, if it has candidates, tallies the cluster
// reachable from it.
func (e *extraction) visit(h int) error {
	if !e.removed.CheckedAdd(uint32(h)) { //nolint:gosec // handles are bounded by the group count.
		return nil
	}

	if len(e.candidates[h]) == 0 {
		return nil
	}

	reached, nextPairs := e.traverse(h)

	pairTotal := 0
	for _, c := range nextPairs {
		pairTotal += c
	}

	if len(reached)+pairTotal < e.minApp {
		return nil
	}

	tally := make(map[int64]int)

	for _, r := range reached {
		for _, id := range e.groups[r].IDs {
			tally[id]++
		}
	}

	for p, c := range nextPairs {
		tally[p[0]] += c
		tally[p[1]] += c
	}

	var match []int64

	for id, c := range tally {
		if c > e.minApp {
			match = append(match, id)
		}
	}

	if len(match) < pairSize {
		return nil
	}

	slices.Sort(match)

	if e.emit(match) {
		e.result.FromGroups++
	}

	return e.consume(match, reached, nextPairs)
}

// traverse walks the candidate graph breadth-first from h. Groups small
// enough to be compared with pairs contribute the unconsumed counted pairs
// among their documents.
func (e *extraction) traverse(h int) ([]int, map[IDPair]int) {
	pairLimit := int(pairSize / e.similarity)
	visited := roaring.New()
	visited.Add(uint32(h)) //nolint:gosec // bounded handle.

	queue := []int{h}
	reached := []int{h}
	nextPairs := make(map[IDPair]int)

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		for _, cd := range e.candidates[next] {
			if visited.CheckedAdd(uint32(cd)) { //nolint:gosec // bounded handle.
				queue = append(queue, cd)
				reached = append(reached, cd)
			}
		}

		ids := e.groups[next].IDs
		if len(ids) > pairLimit {
			continue
		}

		for i1 := range len(ids) - 1 {
			for i2 := i1 + 1; i2 < len(ids); i2++ {
				p := IDPair{ids[i1], ids[i2]}
				if _, gone := e.removedPairs[p]; gone {
					continue
				}

				if c, ok := e.pairs[p]; ok {
					nextPairs[p] = c
				}
			}
		}
	}

	return reached, nextPairs
}

func (e *extraction) consume(match []int64, reached []int, nextPairs map[IDPair]int) error {
	removeAt := e.similarity / removalDivisor

	for _, r := range reached {
		sim, err := jaccard.IDs(e.groups[r].IDs, match)
		if err != nil {
			return fmt.Errorf("consume group: %w", err)
		}

		if sim >= removeAt {
			e.removed.Add(uint32(r)) //nolint:gosec // bounded handle.
		}
	}

	for p := range nextPairs {
		sim, err := jaccard.IDs(p.IDs(), match)
		if err != nil {
			return fmt.Errorf("consume pair: %w", err)
		}

		if sim >= removeAt {
			e.removedPairs[p] = struct{}{}
		}
	}

	return nil
}

// emitPairs emits the unconsumed pairs counted at least MinAppearance times.
func (e *extraction) emitPairs() {
	keys := make([]IDPair, 0, len(e.pairs))
	for p := range e.pairs {
		keys = append(keys, p)
	}

	slices.SortFunc(keys, comparePairs)

	for _, p := range keys {
		if _, gone := e.removedPairs[p]; gone {
			continue
		}

		if e.pairs[p] >= e.minApp && e.emit(p.IDs()) {
			e.result.FromPairs++
		}
	}
}

// emit appends a cluster unless an equal one was already emitted.
func (e *extraction) emit(ids []int64) bool {
	key := clusterKey(ids)
	if _, dup := e.emitted[key]; dup {
		return false
	}

	e.emitted[key] = struct{}{}
	e.result.Clusters = append(e.result.Clusters, ids)

	return true
}

func clusterKey(ids []int64) string {
	var sb strings.Builder

	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}

		sb.WriteString(strconv.FormatInt(id, 10))
	}

	return sb.String()
}
