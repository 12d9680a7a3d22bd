package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/marmos91/tokenmig/pkg/catalog"
	"github.com/marmos91/tokenmig/pkg/migration"
)

// styles renders for one writer; colors are dropped when it is not a
// terminal.
type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		header:  r.NewStyle().Bold(true).Padding(0, 1),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// newTable returns a bordered table whose header row uses the header style.
func (s styles) newTable(headers ...string) *table.Table {
	cell := s.header.UnsetBold()
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.header
			}
			return cell
		})
}

// printSummary writes the per-token table and the run totals.
func printSummary(w io.Writer, summary *migration.Summary) {
	s := newStyles(w)

	elapsed := summary.Finished.Sub(summary.Started).Round(time.Millisecond)
	fmt.Fprintln(w, s.title.Render(fmt.Sprintf("Run %s (%s) finished in %s", summary.RunID, summary.Direction, elapsed)))

	if len(summary.Tokens) > 0 {
		t := s.newTable("TOKEN", "FILES", "MOVED", "FAILED", "STATUS")
		for _, ts := range summary.Tokens {
			t.Row(tokenRow(ts)...)
		}
		fmt.Fprintln(w, t.String())
	}

	totals := fmt.Sprintf("Total: %s processed, %s moved, %s failed, %s directories created",
		humanize.Comma(int64(summary.Processed())),
		humanize.Comma(int64(summary.Moved())),
		humanize.Comma(int64(summary.Failed())),
		humanize.Comma(int64(summary.DirectoriesCreated)))

	switch {
	case summary.CatalogErrors() > 0:
		fmt.Fprintln(w, s.failure.Render(totals))
	case summary.Failed() > 0:
		fmt.Fprintln(w, s.warning.Render(totals))
	default:
		fmt.Fprintln(w, s.success.Render(totals))
	}
}

func tokenRow(ts *migration.TokenSummary) []string {
	name := ts.Token.Name
	if ts.Skipped() {
		return []string{name, "-", "-", "-", "skipped (" + strings.ReplaceAll(ts.SkipReason, "_", " ") + ")"}
	}
	return []string{
		name,
		humanize.Comma(int64(ts.Processed)),
		humanize.Comma(int64(ts.Moved)),
		humanize.Comma(int64(ts.Failed)),
		tokenStatus(ts),
	}
}

// tokenStatus lists failures per stage in migration order.
func tokenStatus(ts *migration.TokenSummary) string {
	var parts []string
	for _, stage := range []migration.Stage{migration.StageDiscovery, migration.StageResolve, migration.StageRename} {
		if n := ts.Failures[stage]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", stage, n))
		}
	}
	if ts.CatalogErr != nil {
		parts = append(parts, "catalog stream failed")
	}
	if len(parts) == 0 {
		return "ok"
	}
	return strings.Join(parts, " ")
}

// printTokens writes the token list with each token's selection status.
func printTokens(w io.Writer, tokens []catalog.Token, selection catalog.Selection) {
	s := newStyles(w)

	if len(tokens) == 0 {
		fmt.Fprintln(w, s.muted.Render("No space tokens found"))
		return
	}

	t := s.newTable("ID", "NAME", "STATUS")
	selected := 0
	for _, token := range tokens {
		status := "selected"
		switch {
		case !selection.Selects(token.Name):
			status = "not selected"
		case !catalog.ValidTokenName(token.Name):
			status = "invalid name"
		default:
			selected++
		}
		t.Row(fmt.Sprintf("%d", token.ID), token.Name, status)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%s of %s tokens selected\n",
		humanize.Comma(int64(selected)), humanize.Comma(int64(len(tokens))))
}
