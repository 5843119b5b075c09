package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
)

// Chart display constants.
const (
	curveChartWidth  = "100%"
	curveChartHeight = "500px"
)

// ErrInvalidCurve is returned for non-positive curve parameters.
var ErrInvalidCurve = errors.New("report: rows, bands and steps must be positive")

// Curve is the candidate probability of an LSH layout sampled over [0, 1].
type Curve struct {
	Rows      int          `json:"rows"      yaml:"rows"`
	Bands     int          `json:"bands"     yaml:"bands"`
	Threshold float64      `json:"threshold" yaml:"threshold"`
	Points    []CurvePoint `json:"points"    yaml:"points"`
}

// CurvePoint is one sample of a Curve.
type CurvePoint struct {
	Similarity  float64 `json:"similarity"  yaml:"similarity"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// NewCurve samples steps+1 evenly spaced similarities.
func NewCurve(rows, bands, steps int) (*Curve, error) {
	if rows <= 0 || bands <= 0 || steps <= 0 {
		return nil, fmt.Errorf("%w: rows %d, bands %d, steps %d", ErrInvalidCurve, rows, bands, steps)
	}

	points := make([]CurvePoint, steps+1)

	for i := range points {
		s := float64(i) / float64(steps)
		points[i] = CurvePoint{Similarity: s, Probability: lsh.CandidateProbability(s, rows, bands)}
	}

	return &Curve{
		Rows:      rows,
		Bands:     bands,
		Threshold: lsh.Threshold(rows, bands),
		Points:    points,
	}, nil
}

// nearest returns the index of the sample closest to the threshold.
func (c *Curve) nearest() int {
	best := 0

	for i, pt := range c.Points {
		if math.Abs(pt.Similarity-c.Threshold) < math.Abs(c.Points[best].Similarity-c.Threshold) {
			best = i
		}
	}

	return best
}

// WriteTable renders the curve as a table, highlighting the sample nearest
// to the threshold.
func (c *Curve) WriteTable(w io.Writer, noColor bool) error {
	p := newPalette(noColor)
	mark := c.nearest()

	tbl := newTable()
	tbl.SetTitle(fmt.Sprintf("rows=%d bands=%d threshold≈%.3f", c.Rows, c.Bands, c.Threshold))
	tbl.AppendHeader(table.Row{"Similarity", "P(candidate)"})

	for i, pt := range c.Points {
		sim := fmt.Sprintf("%.3f", pt.Similarity)
		prob := fmt.Sprintf("%.4f", pt.Probability)

		if i == mark {
			sim, prob = p.highlight.Sprint(sim), p.highlight.Sprint(prob)
		}

		tbl.AppendRow(table.Row{sim, prob})
	}

	_, err := io.WriteString(w, tbl.Render()+"\n")
	if err != nil {
		return fmt.Errorf("curve write: %w", err)
	}

	return nil
}

// Chart builds the curve as an echarts line chart.
func (c *Curve) Chart() *charts.Line {
	labels := make([]string, len(c.Points))
	data := make([]opts.LineData, len(c.Points))

	for i, pt := range c.Points {
		labels[i] = strconv.FormatFloat(pt.Similarity, 'f', 2, 64)
		data[i] = opts.LineData{Value: pt.Probability}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "neardup LSH curve",
			Width:     curveChartWidth,
			Height:    curveChartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Candidate probability",
			Subtitle: fmt.Sprintf("%d bands of %d rows, threshold ≈ %.3f", c.Bands, c.Rows, c.Threshold),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Jaccard similarity",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "P(candidate)",
			Min:  0,
			Max:  1,
		}),
	)
	line.SetXAxis(labels)
	line.AddSeries(
		fmt.Sprintf("r=%d b=%d", c.Rows, c.Bands),
		data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
	)

	return line
}

// WriteHTML renders the chart as a standalone HTML page.
func (c *Curve) WriteHTML(w io.Writer) error {
	err := c.Chart().Render(w)
	if err != nil {
		return fmt.Errorf("render curve: %w", err)
	}

	return nil
}

// Write renders the curve in format. Table output honors noColor.
func (c *Curve) Write(w io.Writer, format Format, noColor bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, c)
	case FormatYAML:
		return marshalAndWrite(c, yaml.Marshal, w, "yaml")
	case FormatTable, "":
		return c.WriteTable(w, noColor)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
