package report

import (
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/neardup/internal/pipeline"
)

// MemberDiff describes how one cluster member differs from the
// representative.
type MemberDiff struct {
	ID         int64   `json:"id"         yaml:"id"`
	Similarity float64 `json:"similarity" yaml:"similarity"`

	// Inserted and Deleted count runes relative to the representative.
	Inserted int `json:"inserted" yaml:"inserted"`
	Deleted  int `json:"deleted"  yaml:"deleted"`

	// Patch is the member expressed as a patch of the representative.
	Patch string `json:"patch" yaml:"patch"`

	edits []diffmatchpatch.Diff
}

func clusterDiffs(c pipeline.Cluster, texts map[int64]string) []MemberDiff {
	rep := texts[c.Representative]
	dmp := diffmatchpatch.New()

	out := make([]MemberDiff, 0, len(c.IDs)-1)

	for i, id := range c.IDs {
		if id == c.Representative {
			continue
		}

		edits := dmp.DiffMain(rep, texts[id], false)
		edits = dmp.DiffCleanupSemantic(edits)

		d := MemberDiff{
			ID:         id,
			Similarity: c.Similarities[i],
			Patch:      dmp.PatchToText(dmp.PatchMake(rep, edits)),
			edits:      edits,
		}

		for _, e := range edits {
			switch e.Type {
			case diffmatchpatch.DiffInsert:
				d.Inserted += utf8.RuneCountInString(e.Text)
			case diffmatchpatch.DiffDelete:
				d.Deleted += utf8.RuneCountInString(e.Text)
			case diffmatchpatch.DiffEqual:
			}
		}

		out = append(out, d)
	}

	return out
}

// inline renders the edits as one line with [-deleted-] and {+inserted+}
// markers, colored when the palette allows it.
func (d MemberDiff) inline(p palette) string {
	var sb strings.Builder

	for _, e := range d.edits {
		text := strings.ReplaceAll(e.Text, "\n", "⏎")

		switch e.Type {
		case diffmatchpatch.DiffInsert:
			sb.WriteString(p.insert.Sprint("{+" + text + "+}"))
		case diffmatchpatch.DiffDelete:
			sb.WriteString(p.remove.Sprint("[-" + text + "-]"))
		case diffmatchpatch.DiffEqual:
			sb.WriteString(text)
		}
	}

	return sb.String()
}

// palette holds the colors of table output.
type palette struct {
	title, good, fair, poor, insert, remove, highlight *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		title:     color.New(color.Bold),
		good:      color.New(color.FgGreen),
		fair:      color.New(color.FgYellow),
		poor:      color.New(color.FgRed),
		insert:    color.New(color.FgGreen),
		remove:    color.New(color.FgRed, color.CrossedOut),
		highlight: color.New(color.FgYellow, color.Bold),
	}

	if noColor {
		for _, c := range []*color.Color{p.title, p.good, p.fair, p.poor, p.insert, p.remove, p.highlight} {
			c.DisableColor()
		}
	}

	return p
}

// Similarity bands for coloring.
const (
	similarityGood = 0.9
	similarityFair = 0.7
)

func (p palette) similarity(sim float64) *color.Color {
	switch {
	case sim >= similarityGood:
		return p.good
	case sim >= similarityFair:
		return p.fair
	default:
		return p.poor
	}
}
