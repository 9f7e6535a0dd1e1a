package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ppiankov/qaverify/internal/model"
)

// RenderSummary writes the end-of-run table and the DONE line
func RenderSummary(w io.Writer, stats Stats, output string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Count"})

	rows := []struct {
		name  string
		value int
	}{
		{"rows", stats.Rows},
		{"answers", stats.Answers},
		{"skipped", stats.Skipped},
		{"judged", stats.Judged},
		{"recorded", stats.Recorded},
		{"errors", stats.Errors},
		{string(model.VerdictSupported), stats.Verdicts[model.VerdictSupported]},
		{string(model.VerdictUnsupported), stats.Verdicts[model.VerdictUnsupported]},
		{string(model.VerdictUnknown), stats.Verdicts[model.VerdictUnknown]},
	}
	for i, r := range rows {
		if i == 6 {
			tw.AppendSeparator()
		}
		tw.AppendRow(table.Row{r.name, strconv.Itoa(r.value)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.Render()

	fmt.Fprintf(w, "DONE: questions=%d answers=%d skipped=%d out=%s (%s)\n",
		stats.Rows, stats.Answers, stats.Skipped, output, stats.Elapsed.Round(time.Millisecond))
}
