package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/neardup/internal/input"
	"github.com/Sumatoshi-tech/neardup/internal/pipeline"
	"github.com/Sumatoshi-tech/neardup/internal/report"
	"github.com/Sumatoshi-tech/neardup/pkg/config"
	"github.com/Sumatoshi-tech/neardup/pkg/observability"
	"github.com/Sumatoshi-tech/neardup/pkg/version"
)

const (
	stdinPath       = "-"
	inputFormatAuto = "auto"
)

// ErrStdinFormat is returned when stdin input has no explicit format.
var ErrStdinFormat = errors.New("reading stdin requires --input-format jsonl or tsv")

// RunCommand holds the flags of the run command.
type RunCommand struct {
	configPath  string
	inputFormat string
	format      string
	output      string
	diffs       bool
	noColor     bool
	maxClusters int
	metricsAddr string

	stages    int
	threshold float64
	mode      string
	workers   int
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Find near-duplicate documents",
		Long: `Read documents from a JSONL or TSV file (or stdin with "-") and print
clusters of near-duplicates.

JSONL records are {"id": 1, "text": "...", "source": "optional"}.
TSV lines are "id<TAB>text" or "id<TAB>source<TAB>text".`,
		Args: cobra.MaximumNArgs(1),
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Config file (default: .neardup.yaml in . or $HOME)")
	cmd.Flags().StringVar(&rc.inputFormat, "input-format", inputFormatAuto, "Input format: auto, jsonl, tsv")
	cmd.Flags().StringVarP(&rc.format, "format", "f", string(report.FormatTable), "Output format: table, json, yaml")
	cmd.Flags().StringVarP(&rc.output, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().BoolVar(&rc.diffs, "diff", false, "Show member diffs against each cluster representative")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().IntVar(&rc.maxClusters, "max-clusters", 0, "Clusters shown in table output (0 = all)")
	cmd.Flags().StringVar(&rc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	cmd.Flags().IntVar(&rc.stages, "stages", 0, "Override lsh.stages")
	cmd.Flags().Float64Var(&rc.threshold, "threshold", 0, "Override lsh.threshold")
	cmd.Flags().StringVar(&rc.mode, "mode", "", "Override grouping.mode: auto, raw, packed")
	cmd.Flags().IntVar(&rc.workers, "workers", 0, "Override pipeline.workers (0 = CPU count)")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	outFormat, err := report.ParseFormat(rc.format)
	if err != nil {
		return err
	}

	cfg, err := rc.loadConfig(cmd)
	if err != nil {
		return err
	}

	providers, err := initObservability(cfg, observability.ModeRun, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer shutdownProviders(providers)

	if providers.MetricsHandler != nil {
		stop, serveErr := serveMetrics(cfg.Observability.MetricsAddr, providers.MetricsHandler, providers.Logger)
		if serveErr != nil {
			return serveErr
		}

		defer func() { _ = stop(cmd.Context()) }()
	}

	path := stdinPath
	if len(args) == 1 {
		path = args[0]
	}

	docs, err := rc.readDocuments(cmd.InOrStdin(), path, cfg)
	if err != nil {
		return err
	}

	providers.Logger.Debug("documents loaded", "documents", len(docs), "input", path)

	metrics, err := observability.NewDedupMetrics(providers.Meter)
	if err != nil {
		return err
	}

	runner, err := pipeline.New(cfg,
		pipeline.WithLogger(providers.Logger),
		pipeline.WithTracer(providers.Tracer),
		pipeline.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	res, err := runner.Run(cmd.Context(), docs)
	if err != nil {
		return err
	}

	return rc.write(cmd, res, docs, outFormat)
}

// loadConfig reads the config file and applies flag overrides.
func (rc *RunCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("stages") {
		cfg.LSH.Stages = rc.stages
	}

	if flags.Changed("threshold") {
		cfg.LSH.Threshold = rc.threshold
	}

	if flags.Changed("mode") {
		cfg.Grouping.Mode = rc.mode
	}

	if flags.Changed("workers") {
		cfg.Pipeline.Workers = rc.workers
	}

	if flags.Changed("metrics-addr") {
		cfg.Observability.MetricsAddr = rc.metricsAddr
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

func (rc *RunCommand) readDocuments(stdin io.Reader, path string, cfg *config.Config) ([]input.Document, error) {
	maxBytes, err := cfg.MaxInputBytes()
	if err != nil {
		return nil, err
	}

	opts := input.Options{MaxBytes: maxBytes}

	var format input.Format

	if rc.inputFormat != inputFormatAuto {
		format, err = input.ParseFormat(rc.inputFormat)
		if err != nil {
			return nil, err
		}
	}

	if path == stdinPath {
		if format == "" {
			return nil, ErrStdinFormat
		}

		return input.Read(stdin, format, opts)
	}

	return input.ReadFile(path, format, opts)
}

func (rc *RunCommand) write(cmd *cobra.Command, res *pipeline.Result, docs []input.Document, format report.Format) error {
	writer := cmd.OutOrStdout()

	if rc.output != "" {
		file, err := os.Create(rc.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}

		defer file.Close()

		writer = file
	}

	return report.Write(writer, res, docs, report.Options{
		Format:      format,
		Version:     version.Version,
		Diffs:       rc.diffs,
		NoColor:     rc.noColor,
		MaxClusters: rc.maxClusters,
	})
}
