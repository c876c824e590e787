package display

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

// JobRow is one line of the job summary table.
type JobRow struct {
	Job     string
	Status  string
	Size    int64 // bytes; negative when unknown
	Elapsed time.Duration
	Path    string
}

// JobTable renders the job summary with a footer holding the totals.
func JobTable(rows []JobRow) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Job", "Status", "Size", "Time", "Output"})

	var total time.Duration
	var size int64
	for _, r := range rows {
		sz := "-"
		if r.Size >= 0 {
			sz = FormatBytes(r.Size)
			size += r.Size
		}
		total += r.Elapsed
		table.Append([]string{r.Job, r.Status, sz, FormatDuration(r.Elapsed), r.Path})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d jobs", len(rows)), FormatBytes(size), FormatDuration(total), ""})
	table.Render()
	return buf.String()
}

// SceneRow describes one scene for the scenes listing.
type SceneRow struct {
	Scene    string
	Engine   string
	Settings [][2]string // name, value
}

// SceneTable renders scenes with their current render settings, one
// setting per line.
func SceneTable(rows []SceneRow) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Scene", "Engine", "Setting", "Value"})
	for i, r := range rows {
		if i > 0 {
			table.Append([]string{" ", " ", " ", " "})
		}
		if len(r.Settings) == 0 {
			table.Append([]string{r.Scene, r.Engine, "", ""})
			continue
		}
		for j, s := range r.Settings {
			scene, eng := "", ""
			if j == 0 {
				scene, eng = r.Scene, r.Engine
			}
			table.Append([]string{scene, eng, s[0], s[1]})
		}
	}
	table.Render()
	return buf.String()
}

// HistoryRow is one ledger entry for the history listing.
type HistoryRow struct {
	When    time.Time
	RunID   string
	Job     string
	Status  string
	Elapsed time.Duration
	Error   string
}

// HistoryTable renders ledger entries, newest first as given.
func HistoryTable(rows []HistoryRow) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"When", "Run", "Job", "Status", "Time", "Error"})
	for _, r := range rows {
		run := r.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		table.Append([]string{
			r.When.Local().Format("2006-01-02 15:04:05"),
			run,
			r.Job,
			r.Status,
			FormatDuration(r.Elapsed),
			r.Error,
		})
	}
	table.Render()
	return buf.String()
}
