package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/DrSkyle/cloudreaper/pkg/engine/executor"
)

// RenderVerdicts writes the verdict table for terminal display.
func (r *Report) RenderVerdicts(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Resource", "Type", "Eligible", "Reason", "Detail"})

	for _, v := range r.Verdicts {
		name := v.ResourceID
		if v.Name != "" && v.Name != v.ResourceID {
			name = fmt.Sprintf("%s (%s)", v.Name, v.ResourceID)
		}
		eligible := "no"
		if v.Eligible {
			eligible = "YES"
		}
		t.AppendRow(table.Row{name, v.Type, eligible, string(v.Reason), v.Detail})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignCenter},
		{Number: 5, WidthMax: 48},
	})
	t.Render()
}

// RenderExecutions writes the execution outcome table.
func (r *Report) RenderExecutions(w io.Writer) {
	if len(r.Executions) == 0 {
		fmt.Fprintln(w, "No actions executed.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Resource", "Action", "Dry Run", "Detail"})

	for _, rec := range r.Executions {
		t.AppendRow(table.Row{rec.ResourceID, string(rec.Action), rec.DryRun, rec.Detail})
	}
	t.Render()

	counts := r.CountByAction()
	fmt.Fprintf(w, "Summary: %d deleted, %d scheduled, %d skipped, %d failed\n",
		counts[executor.ActionDeleted], counts[executor.ActionScheduled],
		counts[executor.ActionSkipped], counts[executor.ActionFailed])
}
