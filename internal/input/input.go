// Package input reads documents for a deduplication run from JSON Lines or
// tab-separated files.
package input

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Format names an input encoding.
type Format string

const (
	// FormatJSONL is one JSON object per line: {"id": 1, "text": "...", "source": "..."}.
	FormatJSONL Format = "jsonl"
	// FormatTSV is "id<TAB>text" or "id<TAB>source<TAB>text" per line.
	FormatTSV Format = "tsv"
)

const (
	maxLineBytes  = 16 << 20
	initialBuffer = 64 << 10
	tsvMaxFields  = 3
	commentPrefix = "#"
	maxSchemaErrs = 3
)

var (
	// ErrUnknownFormat is returned for an unsupported format name or extension.
	ErrUnknownFormat = errors.New("input: unknown format")

	// ErrInvalidRecord is returned for a line that does not decode or validate.
	ErrInvalidRecord = errors.New("input: invalid record")

	// ErrDuplicateID is returned when two records share an ID.
	ErrDuplicateID = errors.New("input: duplicate document id")

	// ErrTooLarge is returned when the input exceeds Options.MaxBytes.
	ErrTooLarge = errors.New("input: exceeds size limit")
)

//go:embed document.schema.json
var documentSchema []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(documentSchema))
})

// Document is one input text.
type Document struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// Options tunes reading.
type Options struct {
	// MaxBytes caps the total input size. Zero means no limit.
	MaxBytes uint64
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatJSONL, FormatTSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".tsv", ".txt":
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// ReadFile opens path and reads it in the given format. An empty format is
// inferred from the extension.
func ReadFile(path string, format Format, opts Options) ([]Document, error) {
	if format == "" {
		var err error

		format, err = FormatFromPath(path)
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	return Read(f, format, opts)
}

// Read decodes all documents from r. Blank lines and, in TSV, lines starting
// with '#' are skipped.
func Read(r io.Reader, format Format, opts Options) ([]Document, error) {
	var parse func([]byte, int) (Document, bool, error)

	switch format {
	case FormatJSONL:
		schema, err := compiledSchema()
		if err != nil {
			return nil, fmt.Errorf("compile document schema: %w", err)
		}

		parse = func(line []byte, lineNo int) (Document, bool, error) {
			doc, err := parseJSONL(schema, line, lineNo)

			return doc, err == nil, err
		}
	case FormatTSV:
		parse = parseTSV
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	limited := newLimitReader(r, opts.MaxBytes)

	scanner := bufio.NewScanner(limited)
	scanner.Buffer(make([]byte, 0, initialBuffer), maxLineBytes)

	var docs []Document

	seen := make(map[int64]int)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		doc, ok, err := parse(line, lineNo)
		if err != nil {
			if limited.exceeded {
				// The line was cut at the limit.
				break
			}

			return nil, err
		}

		if !ok {
			continue
		}

		if prev, dup := seen[doc.ID]; dup {
			return nil, fmt.Errorf("%w: %d on lines %d and %d", ErrDuplicateID, doc.ID, prev, lineNo)
		}

		seen[doc.ID] = lineNo
		docs = append(docs, doc)
	}

	if limited.exceeded {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, opts.MaxBytes)
	}

	err := scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	return docs, nil
}

func parseJSONL(schema *gojsonschema.Schema, line []byte, lineNo int) (Document, error) {
	var raw any

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	err := dec.Decode(&raw)
	if err != nil {
		return Document{}, fmt.Errorf("%w: line %d: %w", ErrInvalidRecord, lineNo, err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return Document{}, fmt.Errorf("%w: line %d: %w", ErrInvalidRecord, lineNo, err)
	}

	if !result.Valid() {
		return Document{}, fmt.Errorf("%w: line %d: %s", ErrInvalidRecord, lineNo, describe(result.Errors()))
	}

	var doc Document

	err = json.Unmarshal(line, &doc)
	if err != nil {
		return Document{}, fmt.Errorf("%w: line %d: %w", ErrInvalidRecord, lineNo, err)
	}

	return doc, nil
}

func describe(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, min(len(errs), maxSchemaErrs))

	for _, e := range errs[:min(len(errs), maxSchemaErrs)] {
		parts = append(parts, e.String())
	}

	return strings.Join(parts, "; ")
}

// parseTSV reports ok=false for comment lines.
func parseTSV(line []byte, lineNo int) (Document, bool, error) {
	if bytes.HasPrefix(line, []byte(commentPrefix)) {
		return Document{}, false, nil
	}

	fields := strings.SplitN(string(line), "\t", tsvMaxFields)
	if len(fields) < 2 {
		return Document{}, false, fmt.Errorf("%w: line %d: want id<TAB>text", ErrInvalidRecord, lineNo)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Document{}, false, fmt.Errorf("%w: line %d: id: %w", ErrInvalidRecord, lineNo, err)
	}

	doc := Document{ID: id, Text: fields[len(fields)-1]}
	if len(fields) == tsvMaxFields {
		doc.Source = fields[1]
	}

	return doc, true, nil
}

// limitReader stops after max bytes and remembers that it did.
type limitReader struct {
	r         io.Reader
	remaining uint64
	exceeded  bool
}

func newLimitReader(r io.Reader, maxBytes uint64) *limitReader {
	if maxBytes == 0 {
		maxBytes = math.MaxUint64
	}

	return &limitReader{r: r, remaining: maxBytes}
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining == 0 {
		// Probe for one more byte to tell "exactly at the limit" from "over".
		var probe [1]byte

		n, err := l.r.Read(probe[:])
		if n > 0 {
			l.exceeded = true
		}

		if err == nil {
			err = io.EOF
		}

		return 0, err
	}

	if uint64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}

	n, err := l.r.Read(p)
	l.remaining -= uint64(n) //nolint:gosec // n is never negative.

	return n, err //nolint:wrapcheck // io.Reader contract.
}
