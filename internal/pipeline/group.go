package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Sumatoshi-tech/neardup/internal/input"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/neardup/pkg/dedup"
	"github.com/Sumatoshi-tech/neardup/pkg/observability"
)

// group runs both passes over the signatures: counting buckets, then
// recording documents into the large ones. It must stay single-threaded.
func (r *Runner) group(ctx context.Context, docs []input.Document, sigs [][]int32, stats *Stats) (dedup.Grouper, error) {
	ctx, span := r.tracer.Start(ctx, spanGroup)
	defer span.End()

	var (
		grouper dedup.Grouper
		err     error
	)

	if r.cfg.UsePacked() {
		stats.Mode = ModePacked
		grouper, err = r.groupPacked(docs, sigs, stats)
	} else {
		stats.Mode = ModeRaw
		grouper, err = r.groupRaw(docs, sigs, stats)
	}

	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String("grouping.mode", stats.Mode),
		attribute.Int("grouping.large_buckets", stats.LargeBuckets),
		attribute.Int("grouping.memberships", stats.Memberships),
	)

	r.logger.DebugContext(ctx, "grouping pass finished",
		"mode", stats.Mode,
		"large_buckets", stats.LargeBuckets,
		"memberships", stats.Memberships,
	)

	return grouper, nil
}

func (r *Runner) groupRaw(docs []input.Document, sigs [][]int32, stats *Stats) (dedup.Grouper, error) {
	start := time.Now()
	counter := lsh.NewBucketCounter(r.computer.Stages())

	for _, sig := range sigs {
		if sig != nil {
			counter.Put(sig)
		}
	}

	large := counter.LargeBuckets(r.cfg.Grouping.BucketMinSize)
	stats.LargeBuckets = len(large)
	stats.PassDurations[observability.PassCount] = time.Since(start)

	start = time.Now()
	grouper := dedup.NewGrouper32(r.computer.Stages(), large)

	for i, sig := range sigs {
		if sig != nil {
			grouper.Put(docs[i].ID, sig)
		}
	}

	stats.Memberships = grouper.Memberships()
	stats.PassDurations[observability.PassGroup] = time.Since(start)

	return grouper, nil
}

func (r *Runner) groupPacked(docs []input.Document, sigs [][]int32, stats *Stats) (dedup.Grouper, error) {
	conv, err := r.converter()
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	start := time.Now()

	// Pack once; both passes read the same values.
	packed := make([][]int64, len(sigs))
	counter := lsh.NewBucket64Counter(conv)

	for i, sig := range sigs {
		if sig == nil {
			continue
		}

		packed[i] = conv.To64Bit(sig)
		if packed[i] != nil {
			counter.Put64(packed[i])
		}
	}

	large := counter.LargeBuckets(r.cfg.Grouping.BucketMinSize)
	for _, stage := range large {
		stats.LargeBuckets += len(stage)
	}

	stats.PassDurations[observability.PassCount] = time.Since(start)

	start = time.Now()

	grouper, err := dedup.NewGrouper64(conv, large, r.cfg.Grouping.NoiseReduction)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	for i, p := range packed {
		if p != nil {
			grouper.Put64(docs[i].ID, p)
		}
	}

	stats.Memberships = grouper.Memberships()
	stats.WrittenGroups = grouper.WrittenGroups()
	stats.PassDurations[observability.PassGroup] = time.Since(start)

	return grouper, nil
}

func (r *Runner) converter() (*lsh.Sig64Converter, error) {
	if r.cfg.Grouping.ReducedStages == lsh.NoReduction {
		return r.computer.Sig64Converter()
	}

	return r.computer.ReducedSig64Converter(r.cfg.Grouping.ReducedStages, r.cfg.Grouping.ReducedMinAppearance)
}
