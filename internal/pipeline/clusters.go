package pipeline

import (
	"slices"

	"github.com/Sumatoshi-tech/neardup/internal/input"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/jaccard"
)

// Cluster is one group of near-duplicate documents.
type Cluster struct {
	// IDs are the ascending member document IDs.
	IDs []int64 `json:"ids" yaml:"ids"`

	// Representative is the member the others are compared against: the
	// smallest ID.
	Representative int64 `json:"representative" yaml:"representative"`

	// Similarities holds the exact shingle Jaccard similarity of each member
	// to the representative, aligned with IDs.
	Similarities []float64 `json:"similarities" yaml:"similarities"`

	MinSimilarity float64 `json:"min_similarity" yaml:"min_similarity"`

	// Sources are the distinct non-empty sources of the members, sorted.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// describeClusters attaches exact similarities and sources to the extracted
// ID lists.
func (r *Runner) describeClusters(docs []input.Document, found [][]int64) []Cluster {
	index := make(map[int64]int, len(docs))
	for i, d := range docs {
		index[d.ID] = i
	}

	clusters := make([]Cluster, 0, len(found))

	for _, ids := range found {
		rep := docs[index[ids[0]]]
		repShingles := r.shingler.PositiveShingles(r.text(rep))

		c := Cluster{
			IDs:            ids,
			Representative: rep.ID,
			Similarities:   make([]float64, len(ids)),
			MinSimilarity:  1,
		}

		for i, id := range ids {
			doc := docs[index[id]]

			sim := 1.0
			if id != rep.ID {
				sim = jaccard.Sorted(repShingles, r.shingler.PositiveShingles(r.text(doc)))
			}

			c.Similarities[i] = sim
			c.MinSimilarity = min(c.MinSimilarity, sim)

			if doc.Source != "" {
				c.Sources = append(c.Sources, doc.Source)
			}
		}

		slices.Sort(c.Sources)
		c.Sources = slices.Compact(c.Sources)

		clusters = append(clusters, c)
	}

	return clusters
}
