package progress

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/amosWeiskopf/corpusmith/internal/models"
)

// RenderSummary writes one row per job of run to w.
func RenderSummary(w io.Writer, run *models.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Seed", "Visited", "Stored", "High quality", "Evicted", "Rejected", "Dropped", "Errors", "Status"})

	for _, j := range run.Jobs {
		status := "done"
		switch {
		case j.Err != "":
			status = "failed: " + j.Err
		case j.Cancelled:
			status = "cancelled"
		}
		t.AppendRow(table.Row{
			j.Seed,
			j.URLsVisited,
			j.FilesStored,
			j.HighQuality,
			j.Evicted,
			j.Rejected,
			j.Dropped,
			j.FetchErrors + j.StoreErrors,
			status,
		})
	}
	t.AppendFooter(table.Row{"Total", "", run.TotalStored()})
	t.Render()
}
