package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/neardup/internal/input"
	"github.com/Sumatoshi-tech/neardup/pkg/cardinality"
)

// maxOverlapSources bounds the pairwise overlap table.
const maxOverlapSources = 8

// SourceStats estimates how much distinct content one source contributes.
// Documents in the same cluster count as one piece of content.
type SourceStats struct {
	Source    string `json:"source" yaml:"source"`
	Documents int    `json:"documents" yaml:"documents"`

	// Distinct is the estimated number of distinct contents.
	Distinct uint64 `json:"distinct" yaml:"distinct"`
}

// SourceOverlap estimates the contents two sources share.
type SourceOverlap struct {
	A      string `json:"a" yaml:"a"`
	B      string `json:"b" yaml:"b"`
	Shared uint64 `json:"shared" yaml:"shared"`
}

// Sources is the per-source summary of a run.
type Sources struct {
	Stats    []SourceStats   `json:"stats" yaml:"stats"`
	Overlaps []SourceOverlap `json:"overlaps,omitempty" yaml:"overlaps,omitempty"`
}

// sources feeds every document's content key into a per-source cardinality
// aggregator. It returns nil when no document names a source.
func (r *Runner) sources(ctx context.Context, docs []input.Document, clusters []Cluster) (*Sources, error) {
	if !slices.ContainsFunc(docs, func(d input.Document) bool { return d.Source != "" }) {
		return nil, nil //nolint:nilnil // no sources is not an error.
	}

	ctx, span := r.tracer.Start(ctx, spanSources)
	defer span.End()

	agg, err := cardinality.NewDefaultAggregator[string]()
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	content := make(map[int64]int64)

	for _, c := range clusters {
		for _, id := range c.IDs {
			if _, seen := content[id]; !seen {
				content[id] = c.Representative
			}
		}
	}

	docCounts := make(map[string]int)
	for _, d := range docs {
		docCounts[d.Source]++
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	chunk := (len(docs) + r.workers - 1) / r.workers

	for lo := 0; lo < len(docs); lo += chunk {
		part := docs[lo:min(lo+chunk, len(docs))]

		g.Go(func() error {
			for _, d := range part {
				if err := gctx.Err(); err != nil {
					return fmt.Errorf("pipeline: sources: %w", err)
				}

				key, ok := content[d.ID]
				if !ok {
					key = d.ID
				}

				agg.Add(key, d.Source)
			}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped inside the worker.
	}

	return summarizeSources(agg, docCounts)
}

func summarizeSources(agg *cardinality.Aggregator[string], docCounts map[string]int) (*Sources, error) {
	hashes := agg.Snapshot()

	names := make([]string, 0, len(hashes))
	for name := range hashes {
		names = append(names, name)
	}

	slices.SortFunc(names, strings.Compare)

	out := &Sources{Stats: make([]SourceStats, 0, len(names))}

	for _, name := range names {
		out.Stats = append(out.Stats, SourceStats{
			Source:    name,
			Documents: docCounts[name],
			Distinct:  hashes[name].Cardinality(),
		})
	}

	if len(names) > maxOverlapSources {
		return out, nil
	}

	for i, a := range names {
		for _, b := range names[i+1:] {
			shared, err := hashes[a].CountIntersect(hashes[b])
			if err != nil {
				return nil, fmt.Errorf("pipeline: overlap %s/%s: %w", a, b, err)
			}

			out.Overlaps = append(out.Overlaps, SourceOverlap{A: a, B: b, Shared: shared})
		}
	}

	return out, nil
}
