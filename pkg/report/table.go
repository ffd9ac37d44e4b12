package report

import (
	"bytes"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table renders the aggregation as a terminal table, one row per project
// and one per non-empty tag under it.
func (a *Aggregator) Table(title string) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Group", "Project", "Total", "Passed", "Failed", "Skipped"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Group", AutoMerge: true},
		{Name: "Project", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Total", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
	})

	for _, group := range a.Groups() {
		for _, project := range a.Projects(group) {
			ps := a.Project(group, project)
			t.AppendRow(table.Row{group, project, ps.Total, ps.Passed, ps.Failed, ps.Skipped})
			for _, tag := range tagsWithTests(ps) {
				c := ps.Tags[tag]
				t.AppendRow(table.Row{group, "├── " + string(tag), c.Total, c.Passed, c.Failed, c.Skipped})
			}
		}
		t.AppendSeparator()
	}

	totals := a.Totals()
	t.AppendFooter(table.Row{"TOTAL", "", totals.Total, totals.Passed, totals.Failed, totals.Skipped})

	switch {
	case totals.Failed > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case totals.Skipped > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.Render()
	return buf.String()
}
