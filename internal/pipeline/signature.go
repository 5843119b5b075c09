package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/neardup/internal/input"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/shingle"
	"github.com/Sumatoshi-tech/neardup/pkg/observability"
)

// signatures computes one LSH signature per document, nil for documents too
// short to sign. Workers share the computer read-only and write disjoint
// slots of the result.
func (r *Runner) signatures(ctx context.Context, docs []input.Document) ([][]int32, error) {
	ctx, span := r.tracer.Start(ctx, spanSignature)
	defer span.End()

	sigs := make([][]int32, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("pipeline: signature: %w", err)
			}

			_, docSpan := r.tracer.Start(gctx, observability.SpanDocument,
				trace.WithAttributes(attribute.Int64("neardup.document.id", docs[i].ID)))
			sigs[i] = r.computer.Signature(r.text(docs[i]))
			docSpan.End()

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		span.RecordError(err)

		return nil, err //nolint:wrapcheck // wrapped inside the worker.
	}

	return sigs, nil
}

func (r *Runner) text(doc input.Document) string {
	if r.cfg.Shingle.Normalize {
		return shingle.Normalize(doc.Text)
	}

	return doc.Text
}
