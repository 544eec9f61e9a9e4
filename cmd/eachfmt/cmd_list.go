package main

import (
	"fmt"
	"io"
	"strconv"

	"eachfmt/internal/runner"
	"eachfmt/internal/table"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const maxNameLen = 40

var listCmd = &cobra.Command{
	Use:   "list [paths...]",
	Short: "List every located test.each table",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := run(cmd.Context(), args, runner.ModeList)
		if report == nil {
			return err
		}
		renderList(cmd.OutOrStdout(), report)
		return err
	},
}

func renderList(w io.Writer, report *runner.Report) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"File", "Position", "Name", "Columns", "Status"})
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetAutoWrapText(false)
	t.SetRowLine(false)

	for _, f := range report.Files {
		if f.Plan == nil {
			continue
		}
		for _, res := range f.Plan.Results {
			status := "formatted"
			if res.Changed {
				status = "needs formatting"
			}
			t.Append([]string{
				f.Path,
				res.Site.Template.Span.Start.String(),
				truncateStr(res.Site.Name.Text),
				strconv.Itoa(len(table.ColumnWidths(table.Parse(res.Site.Template.Text), 1))),
				status,
			})
		}
	}
	t.Render()
	fmt.Fprintf(w, "%d table(s) in %d file(s)\n", report.Tables(), len(report.Files))
}

func truncateStr(s string) string {
	r := []rune(s)
	if len(r) <= maxNameLen {
		return s
	}
	return string(r[:maxNameLen]) + "..."
}
