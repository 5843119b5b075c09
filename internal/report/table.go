package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/mapx"
)

// maxMembersShown bounds the member list of one table row.
const maxMembersShown = 8

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

func writeTable(w io.Writer, doc Document, opts Options) error {
	p := newPalette(opts.NoColor)

	var sb strings.Builder

	sb.WriteString(p.title.Sprint(summaryLine(doc)))
	sb.WriteString("\n\n")

	if len(doc.Clusters) > 0 {
		sb.WriteString(clusterTable(doc.Clusters, opts.MaxClusters, p))
		sb.WriteString("\n")
	}

	if opts.Diffs {
		writeDiffs(&sb, doc.Clusters, opts.MaxClusters, p)
	}

	if doc.Sources != nil {
		sb.WriteString("\n")
		sb.WriteString(sourceTable(doc))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(statsTable(doc))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("table write: %w", err)
	}

	return nil
}

func summaryLine(doc Document) string {
	s := doc.Stats

	return fmt.Sprintf("%s documents, %s clusters, %s duplicates (%s skipped) in %s",
		humanize.Comma(int64(s.Documents)),
		humanize.Comma(int64(len(doc.Clusters))),
		humanize.Comma(int64(s.Duplicates)),
		humanize.Comma(int64(s.Skipped)),
		s.Elapsed.Round(time.Millisecond),
	)
}

func shown[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}

	return items
}

func clusterTable(clusters []ClusterReport, limit int, p palette) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "Size", "Representative", "Members", "Min Sim", "Sources"})

	for i, c := range shown(clusters, limit) {
		tbl.AppendRow(table.Row{
			i + 1,
			len(c.IDs),
			c.Representative,
			memberList(c.IDs),
			p.similarity(c.MinSimilarity).Sprintf("%.3f", c.MinSimilarity),
			strings.Join(c.Sources, ","),
		})
	}

	footer := fmt.Sprintf("Total: %d clusters", len(clusters))
	if limit > 0 && len(clusters) > limit {
		footer = fmt.Sprintf("Showing %d of %d clusters", limit, len(clusters))
	}

	tbl.AppendFooter(table.Row{footer})

	return tbl.Render()
}

func memberList(ids []int64) string {
	parts := make([]string, 0, min(len(ids), maxMembersShown)+1)

	for _, id := range shown(ids, maxMembersShown) {
		parts = append(parts, strconv.FormatInt(id, 10))
	}

	if len(ids) > maxMembersShown {
		parts = append(parts, fmt.Sprintf("+%d", len(ids)-maxMembersShown))
	}

	return strings.Join(parts, " ")
}

func writeDiffs(sb *strings.Builder, clusters []ClusterReport, limit int, p palette) {
	for i, c := range shown(clusters, limit) {
		if len(c.Diffs) == 0 {
			continue
		}

		fmt.Fprintf(sb, "\n%s\n", p.title.Sprintf("Cluster %d (representative %d)", i+1, c.Representative))

		for _, d := range c.Diffs {
			fmt.Fprintf(sb, "  %d %s +%d -%d: %s\n",
				d.ID,
				p.similarity(d.Similarity).Sprintf("%.3f", d.Similarity),
				d.Inserted, d.Deleted,
				d.inline(p),
			)
		}
	}
}

func sourceTable(doc Document) string {
	tbl := newTable()
	tbl.SetTitle("Sources")
	tbl.AppendHeader(table.Row{"Source", "Documents", "Distinct (est.)"})

	for _, s := range doc.Sources.Stats {
		tbl.AppendRow(table.Row{s.Source, humanize.Comma(int64(s.Documents)), humanize.Comma(int64(s.Distinct))})
	}

	out := tbl.Render()

	if len(doc.Sources.Overlaps) == 0 {
		return out
	}

	overlaps := newTable()
	overlaps.SetTitle("Shared content (est.)")
	overlaps.AppendHeader(table.Row{"Source A", "Source B", "Shared"})

	for _, o := range doc.Sources.Overlaps {
		overlaps.AppendRow(table.Row{o.A, o.B, humanize.Comma(int64(o.Shared))})
	}

	return out + "\n\n" + overlaps.Render()
}

func statsTable(doc Document) string {
	s := doc.Stats

	tbl := newTable()
	tbl.SetTitle("Run")
	tbl.AppendRows([]table.Row{
		{"Mode", s.Mode},
		{"Signed", humanize.Comma(int64(s.Signed))},
		{"Large buckets", humanize.Comma(int64(s.LargeBuckets))},
		{"Memberships", humanize.Comma(int64(s.Memberships))},
		{"Big groups / pairs", fmt.Sprintf("%s / %s", humanize.Comma(int64(s.BigGroups)), humanize.Comma(int64(s.Pairs)))},
		{"From groups / pairs", fmt.Sprintf("%d / %d", s.FromGroups, s.FromPairs)},
	})

	if len(doc.Clusters) > 0 {
		tbl.AppendRows([]table.Row{
			{"Mean / max cluster size", fmt.Sprintf("%.2f / %d", s.MeanSize, s.MaxSize)},
			{"P95 cluster size", humanize.FtoaWithDigits(s.P95ClusterSize, 2)},
			{"Median / lowest min similarity", fmt.Sprintf("%.3f / %.3f", s.MedianMinSim, s.LowestMinSim)},
		})
	}

	for pass, d := range mapx.Sorted(s.PassDurations) {
		tbl.AppendRow(table.Row{"Pass " + pass, d.Round(time.Microsecond)})
	}

	return tbl.Render()
}
