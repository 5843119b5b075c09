package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/neardup/internal/report"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/neardup/pkg/config"
	"github.com/Sumatoshi-tech/neardup/pkg/observability"
)

const defaultCurveSteps = 20

// ErrRowsAndBands is returned when only one of --rows and --bands is set.
var ErrRowsAndBands = errors.New("--rows and --bands must be given together")

// CurveCommand holds the flags of the curve command.
type CurveCommand struct {
	configPath string
	rows       int
	bands      int
	steps      int
	format     string
	html       string
	noColor    bool
}

// NewCurveCommand creates the curve command.
func NewCurveCommand() *cobra.Command {
	cc := &CurveCommand{}

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Show the candidate probability curve of an LSH layout",
		Long: `Print P(candidate) = 1-(1-s^rows)^bands for similarities s in [0, 1].

Without --rows and --bands the layout comes from the configured lsh.stages and
lsh.threshold.`,
		Args: cobra.NoArgs,
		RunE: cc.run,
	}

	cmd.Flags().StringVarP(&cc.configPath, "config", "c", "", "Config file (default: .neardup.yaml in . or $HOME)")
	cmd.Flags().IntVar(&cc.rows, "rows", 0, "Rows per band")
	cmd.Flags().IntVar(&cc.bands, "bands", 0, "Number of bands (stages)")
	cmd.Flags().IntVar(&cc.steps, "steps", defaultCurveSteps, "Similarity samples between 0 and 1")
	cmd.Flags().StringVarP(&cc.format, "format", "f", string(report.FormatTable), "Output format: table, json, yaml")
	cmd.Flags().StringVar(&cc.html, "html", "", "Also write an HTML chart to this file")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "Disable colored table output")

	return cmd
}

func (cc *CurveCommand) run(cmd *cobra.Command, _ []string) error {
	format, err := report.ParseFormat(cc.format)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(cc.configPath)
	if err != nil {
		return err
	}

	providers, err := initObservability(cfg, observability.ModeCurve, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer shutdownProviders(providers)

	rows, bands, err := cc.layout(cfg)
	if err != nil {
		return err
	}

	curve, err := report.NewCurve(rows, bands, cc.steps)
	if err != nil {
		return err
	}

	providers.Logger.Debug("curve computed", "rows", rows, "bands", bands, "threshold", curve.Threshold)

	if cc.html != "" {
		err = writeCurveHTML(cc.html, curve)
		if err != nil {
			return err
		}
	}

	return curve.Write(cmd.OutOrStdout(), format, cc.noColor)
}

func (cc *CurveCommand) layout(cfg *config.Config) (rows, bands int, err error) {
	switch {
	case cc.rows > 0 && cc.bands > 0:
		return cc.rows, cc.bands, nil
	case cc.rows > 0 || cc.bands > 0:
		return 0, 0, ErrRowsAndBands
	}

	size := cfg.LSH.SignatureSize
	if size == 0 {
		size, err = lsh.SignatureSize(cfg.LSH.Stages, cfg.LSH.Threshold)
		if err != nil {
			return 0, 0, fmt.Errorf("curve layout: %w", err)
		}
	}

	return size / cfg.LSH.Stages, cfg.LSH.Stages, nil
}

func writeCurveHTML(path string, curve *report.Curve) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	defer file.Close()

	return curve.WriteHTML(file)
}
