package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricDocumentsTotal = "neardup.documents.total"
	metricClustersTotal  = "neardup.clusters.total"
	metricPassDuration   = "neardup.pass.duration.seconds"
	metricLargeBuckets   = "neardup.buckets.large"

	attrOutcome = "outcome"
	attrSource  = "source"
	attrPass    = "pass"
)

// Document outcomes of the signature phase.
const (
	OutcomeSigned  = "signed"
	OutcomeSkipped = "skipped"
	OutcomeGrouped = "grouped"
)

// Cluster sources.
const (
	SourceGroups = "groups"
	SourcePairs  = "pairs"
)

// Pass names.
const (
	PassSignature = "signature"
	PassCount     = "count"
	PassGroup     = "group"
	PassExtract   = "extract"
)

// durationBucketBoundaries covers 1ms to 10 minutes.
var durationBucketBoundaries = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600}

// DedupMetrics holds the OTel instruments of a deduplication run.
type DedupMetrics struct {
	documents    metric.Int64Counter
	clusters     metric.Int64Counter
	passDuration metric.Float64Histogram
	largeBuckets metric.Int64UpDownCounter
}

// RunStats summarizes one completed run, decoupled from pipeline types.
type RunStats struct {
	Signed, Skipped, Grouped int64
	FromGroups, FromPairs    int64
	LargeBuckets             int64
	PassDurations            map[string]time.Duration
}

// NewDedupMetrics creates the run instruments from mt.
func NewDedupMetrics(mt metric.Meter) (*DedupMetrics, error) {
	docs, err := mt.Int64Counter(metricDocumentsTotal,
		metric.WithDescription("Documents processed by outcome"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDocumentsTotal, err)
	}

	clusters, err := mt.Int64Counter(metricClustersTotal,
		metric.WithDescription("Duplicate clusters emitted by source"),
		metric.WithUnit("{cluster}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricClustersTotal, err)
	}

	passDur, err := mt.Float64Histogram(metricPassDuration,
		metric.WithDescription("Pass duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPassDuration, err)
	}

	large, err := mt.Int64UpDownCounter(metricLargeBuckets,
		metric.WithDescription("Buckets at or above the minimum size after pass one"),
		metric.WithUnit("{bucket}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLargeBuckets, err)
	}

	return &DedupMetrics{
		documents:    docs,
		clusters:     clusters,
		passDuration: passDur,
		largeBuckets: large,
	}, nil
}

// RecordRun records the statistics of a completed run.
// Safe to call on a nil receiver (no-op).
func (dm *DedupMetrics) RecordRun(ctx context.Context, stats RunStats) {
	if dm == nil {
		return
	}

	dm.documents.Add(ctx, stats.Signed, metric.WithAttributes(attribute.String(attrOutcome, OutcomeSigned)))
	dm.documents.Add(ctx, stats.Skipped, metric.WithAttributes(attribute.String(attrOutcome, OutcomeSkipped)))
	dm.documents.Add(ctx, stats.Grouped, metric.WithAttributes(attribute.String(attrOutcome, OutcomeGrouped)))

	dm.clusters.Add(ctx, stats.FromGroups, metric.WithAttributes(attribute.String(attrSource, SourceGroups)))
	dm.clusters.Add(ctx, stats.FromPairs, metric.WithAttributes(attribute.String(attrSource, SourcePairs)))

	dm.largeBuckets.Add(ctx, stats.LargeBuckets)

	for pass, d := range stats.PassDurations {
		dm.passDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrPass, pass)))
	}
}
