package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/xoelrdgz/roomwatch/internal/domain"
	"github.com/xoelrdgz/roomwatch/pkg/sanitize"
)

// ScanRow is one event found by the scan command together with what the
// notifier decided for it.
type ScanRow struct {
	Timestamp time.Time        `json:"timestamp"`
	Level     domain.Level     `json:"level"`
	Kind      domain.EventKind `json:"kind"`
	UserName  string           `json:"user_name,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Decision  string           `json:"decision"`
	Title     string           `json:"title,omitempty"`
}

// WriteScanRows writes rows to w as "table", "plain", "json" or "jsonl".
func WriteScanRows(w io.Writer, rows []ScanRow, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeScanTable(w, rows)
	case "plain":
		return writeScanPlain(w, rows)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "jsonl":
		enc := json.NewEncoder(w)
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeScanPlain(w io.Writer, rows []ScanRow) error {
	if _, err := fmt.Fprintln(w, "timestamp\tlevel\tevent\tuser\tdecision\ttitle"); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Timestamp.Format(time.RFC3339),
			row.Level,
			row.Kind,
			sanitize.ForTerminal(row.UserName),
			row.Decision,
			sanitize.ForTerminal(row.Title),
		); err != nil {
			return err
		}
	}
	return nil
}

func writeScanTable(w io.Writer, rows []ScanRow) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 32},
		{Number: 5, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 6, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 40},
	})

	tw.AppendHeader(table.Row{"Time", "Level", "Event", "User", "Decision", "Notification"})

	notified := 0
	for _, row := range rows {
		if row.Title != "" {
			notified++
		}
		tw.AppendRow(table.Row{
			row.Timestamp.Format("2006-01-02 15:04:05"),
			row.Level.String(),
			string(row.Kind),
			sanitize.ForTerminal(row.UserName),
			row.Decision,
			sanitize.ForTerminal(row.Title),
		})
	}

	if len(rows) == 0 {
		tw.AppendRow(table.Row{"-", "-", "(no events)", "-", "-", "-"})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d events", len(rows)), "", fmt.Sprintf("%d notify", notified), ""})

	_ = tw.Render()
	return nil
}
