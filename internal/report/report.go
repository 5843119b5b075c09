// Package report renders deduplication results as JSON, YAML or terminal
// tables, and the LSH candidate-probability curve as a table or HTML chart.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/neardup/internal/input"
	"github.com/Sumatoshi-tech/neardup/internal/pipeline"
)

// Format selects how a result is rendered.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ErrUnsupportedFormat is returned for an unknown output format.
var ErrUnsupportedFormat = errors.New("report: unsupported format")

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Options control rendering.
type Options struct {
	Format  Format
	Version string

	// Diffs attaches a member-versus-representative text diff to every
	// non-representative cluster member.
	Diffs bool

	// NoColor disables ANSI colors in table output.
	NoColor bool

	// MaxClusters limits the clusters shown in table output. Zero shows all.
	MaxClusters int
}

// Document is the serialized form of a run.
type Document struct {
	Version  string            `json:"version,omitempty"  yaml:"version,omitempty"`
	Clusters []ClusterReport   `json:"clusters"           yaml:"clusters"`
	Sources  *pipeline.Sources `json:"sources,omitempty"  yaml:"sources,omitempty"`
	Stats    pipeline.Stats    `json:"stats"              yaml:"stats"`
}

// ClusterReport is a cluster with optional member diffs.
type ClusterReport struct {
	pipeline.Cluster `yaml:",inline"`

	Diffs []MemberDiff `json:"diffs,omitempty" yaml:"diffs,omitempty"`
}

// NewDocument assembles the serialized form of res. docs supplies member
// texts when opts.Diffs is set and may be nil otherwise.
func NewDocument(res *pipeline.Result, docs []input.Document, opts Options) Document {
	var texts map[int64]string

	if opts.Diffs {
		texts = make(map[int64]string, len(docs))
		for _, d := range docs {
			texts[d.ID] = d.Text
		}
	}

	clusters := make([]ClusterReport, len(res.Clusters))

	for i, c := range res.Clusters {
		clusters[i] = ClusterReport{Cluster: c}
		if opts.Diffs {
			clusters[i].Diffs = clusterDiffs(c, texts)
		}
	}

	return Document{
		Version:  opts.Version,
		Clusters: clusters,
		Sources:  res.Sources,
		Stats:    res.Stats,
	}
}

// Write renders res to w in opts.Format.
func Write(w io.Writer, res *pipeline.Result, docs []input.Document, opts Options) error {
	doc := NewDocument(res, docs, opts)

	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, doc)
	case FormatYAML:
		return marshalAndWrite(doc, yaml.Marshal, w, "yaml")
	case FormatTable, "":
		return writeTable(w, doc, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// marshalAndWrite marshals data and writes the result to writer.
func marshalAndWrite(data any, marshal func(any) ([]byte, error), writer io.Writer, label string) error {
	encoded, err := marshal(data)
	if err != nil {
		return fmt.Errorf("%s encode: %w", label, err)
	}

	_, err = writer.Write(encoded)
	if err != nil {
		return fmt.Errorf("%s write: %w", label, err)
	}

	return nil
}
