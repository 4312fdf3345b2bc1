package output

import (
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"entrascan/internal/ruleeval"
)

// RenderFindingsTable prints findings as an aligned console table.
func RenderFindingsTable(w io.Writer, findings []ruleeval.Finding) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Status", "Rule", "Title", "Severity", "Module"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, f := range findings {
		table.Append([]string{f.Status, f.ID, f.Title, f.Severity, f.SourceModule})
	}
	table.Render()
}

// RenderSummaryTable prints a module summary map as a two-column
// table, keys sorted for stable output.
func RenderSummaryTable(w io.Writer, title string, summary map[string]any) {
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{title, "Value"})
	table.SetBorder(false)
	for _, k := range keys {
		table.Append([]string{k, stringifyCell(summary[k])})
	}
	table.Render()
}
