package cli

import (
	"fmt"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/forPelevin/livecut/internal/domain/timecode"
	"github.com/forPelevin/livecut/internal/render"
	"github.com/forPelevin/livecut/internal/types"
)

const topMoments = 5

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func momentsTable(ranked []types.Candidate, limit int) string {
	rows := make([][]string, 0, min(limit, len(ranked)))
	for i, c := range ranked {
		if i >= limit {
			break
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			c.Title,
			timecode.Format(c.Start) + "-" + timecode.Format(c.End),
			fmt.Sprintf("%.0fs", c.Duration().Seconds()),
			fmt.Sprintf("%d/10", c.Priority),
		})
	}
	return renderTable(
		[]string{"#", "Title", "Window", "Duration", "Priority"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func resultsTable(results []render.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status, detail := "ok", filepath.Base(r.Path)
		if !r.OK() {
			status = "failed"
			if r.Err != nil {
				detail = r.Err.Error()
			}
		}
		rows = append(rows, []string{
			r.Job.Name,
			string(r.Job.Kind),
			fmt.Sprintf("%.0fs", r.Job.Duration().Seconds()),
			status,
			detail,
		})
	}
	return renderTable(
		[]string{"Short", "Kind", "Duration", "Status", "File"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}
