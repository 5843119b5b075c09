// Package pipeline runs a two-pass near-duplicate detection over an in-memory
// corpus: a parallel signature phase followed by a single-threaded bucket
// counting, grouping and extraction phase.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/neardup/internal/input"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/shingle"
	"github.com/Sumatoshi-tech/neardup/pkg/config"
	"github.com/Sumatoshi-tech/neardup/pkg/dedup"
	"github.com/Sumatoshi-tech/neardup/pkg/observability"
)

// Modes reported in Stats.
const (
	ModeRaw    = "raw"
	ModePacked = "packed"
)

const (
	spanRun       = "neardup.pipeline.run"
	spanSignature = "neardup.pipeline.signature"
	spanGroup     = "neardup.pipeline.group"
	spanExtract   = "neardup.pipeline.extract"
	spanSources   = "neardup.pipeline.sources"
)

// ErrNilConfig is returned by New without a configuration.
var ErrNilConfig = errors.New("pipeline: nil config")

// Runner executes deduplication runs with one fixed configuration.
type Runner struct {
	cfg      *config.Config
	computer *lsh.Computer
	shingler shingle.Shingler
	workers  int

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.DedupMetrics
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithTracer sets the tracer. The default is a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

// WithMetrics records every run into m.
func WithMetrics(m *observability.DedupMetrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New builds the shingler and LSH described by cfg.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	sh, err := newShingler(cfg.Shingle)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	l, err := newLSH(cfg.LSH)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	workers := cfg.Pipeline.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	r := &Runner{
		cfg:      cfg,
		computer: lsh.NewComputer(sh, l),
		shingler: sh,
		workers:  workers,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   nooptrace.NewTracerProvider().Tracer(observability.TracerName),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

func newShingler(cfg config.ShingleConfig) (shingle.Shingler, error) {
	if cfg.Kind == config.ShingleChar {
		return shingle.NewChar(cfg.K)
	}

	return shingle.NewWord(cfg.K)
}

func newLSH(cfg config.LSHConfig) (*lsh.MinHashLSH, error) {
	if cfg.SignatureSize == 0 {
		return lsh.NewForThreshold(cfg.Stages, cfg.DictSize, cfg.Seed, cfg.Threshold)
	}

	var (
		engine minhash.Engine
		err    error
	)

	if cfg.DictSize == lsh.SimplifiedDictSize {
		engine, err = minhash.NewSimplified(cfg.SignatureSize, cfg.Seed)
	} else {
		engine, err = minhash.NewDictSized(cfg.SignatureSize, cfg.DictSize, cfg.Seed)
	}

	if err != nil {
		return nil, err
	}

	return lsh.New(cfg.Stages, engine)
}

// Computer exposes the signature computer.
func (r *Runner) Computer() *lsh.Computer {
	return r.computer
}

// Run finds near-duplicate clusters in docs. Document IDs must be unique.
func (r *Runner) Run(ctx context.Context, docs []input.Document) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, spanRun, trace.WithAttributes(
		attribute.Int("documents", len(docs)),
		attribute.Int("lsh.stages", r.computer.Stages()),
		attribute.Int("lsh.signature_size", r.computer.LSH().SignatureSize()),
		attribute.Int("pipeline.workers", r.workers),
	))
	defer span.End()

	start := time.Now()
	stats := Stats{Documents: len(docs), PassDurations: make(map[string]time.Duration)}

	r.logger.DebugContext(ctx, "signature pass started", "documents", len(docs), "workers", r.workers)

	sigs, err := r.signatures(ctx, docs)
	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	stats.PassDurations[observability.PassSignature] = time.Since(start)

	for _, sig := range sigs {
		if sig == nil {
			stats.Skipped++
		} else {
			stats.Signed++
		}
	}

	grouper, err := r.group(ctx, docs, sigs, &stats)
	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	extractStart := time.Now()

	_, extractSpan := r.tracer.Start(ctx, spanExtract)

	found, err := dedup.ExtractDuplicateGroups(grouper, dedup.ExtractOptions{
		GroupSimilarity: r.cfg.Grouping.GroupSimilarity,
		MinAppearance:   r.cfg.Grouping.MinAppearance,
	})

	extractSpan.End()

	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("pipeline: extract: %w", err)
	}

	stats.PassDurations[observability.PassExtract] = time.Since(extractStart)
	stats.BigGroups = found.BigGroups
	stats.Pairs = found.Pairs
	stats.FromGroups = found.FromGroups
	stats.FromPairs = found.FromPairs

	result := &Result{Clusters: r.describeClusters(docs, found.Clusters)}

	result.Sources, err = r.sources(ctx, docs, result.Clusters)
	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	stats.summarizeClusters(result.Clusters)
	stats.Elapsed = time.Since(start)
	result.Stats = stats

	r.metrics.RecordRun(ctx, stats.runStats())

	r.logger.InfoContext(ctx, "deduplication finished",
		"documents", stats.Documents,
		"skipped", stats.Skipped,
		"mode", stats.Mode,
		"large_buckets", stats.LargeBuckets,
		"clusters", len(result.Clusters),
		"from_groups", stats.FromGroups,
		"from_pairs", stats.FromPairs,
		"elapsed", stats.Elapsed,
	)

	return result, nil
}
