package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/roomwatch/internal/adapters/input"
	"github.com/xoelrdgz/roomwatch/internal/adapters/output"
	"github.com/xoelrdgz/roomwatch/internal/app"
)

var scanCmd = &cobra.Command{
	Use:   "scan [FILE]",
	Short: "List the events in a log and what would have been notified",
	Long: `Read a whole log file once and print every event with the decision the
notifier would have taken had it been watching live. The suppression
window is replayed against the log timestamps.

Without FILE the newest log in --dir is used.

Examples:
  roomwatch scan
  roomwatch scan output_log_2024-06-01_20-00-00.txt --format jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("format", "table", "output format: table, plain, json or jsonl")
}

// replayClock reports the timestamp of the line being decided.
type replayClock struct {
	now time.Time
}

func (c *replayClock) Now() time.Time { return c.now }

func runScan(cmd *cobra.Command, args []string) error {
	setupLogging()

	path, err := scanTarget(args)
	if err != nil {
		return err
	}

	parser, err := newParser()
	if err != nil {
		return err
	}
	policy, err := app.LoadPolicy(viper.GetViper())
	if err != nil {
		return err
	}

	clock := &replayClock{}
	sink := output.NewMemorySink(1)
	notifier := app.NewNotifier(sink, clock, policy, nil)

	var rows []output.ScanRow
	skipped := 0
	reader := input.NewContinuousFileReader(path)
	err = reader.ReadAppended(func(raw string) {
		line, err := parser.Parse(raw)
		if err != nil {
			skipped++
			return
		}
		if !line.HasEvent() {
			return
		}

		clock.now = line.Timestamp
		n, decision := notifier.Decide(line, false)
		row := output.ScanRow{
			Timestamp: line.Timestamp,
			Level:     line.Level,
			Kind:      line.Event.Kind,
			UserName:  line.Event.UserName,
			UserID:    line.Event.UserID,
			Decision:  decision.String(),
		}
		if n != nil {
			row.Title = n.Title
		}
		rows = append(rows, row)
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("file", path).
		Int("events", len(rows)).
		Int("skipped", skipped).
		Msg("Scan complete")

	format, _ := cmd.Flags().GetString("format")
	return output.WriteScanRows(os.Stdout, rows, format)
}

func scanTarget(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	selector, err := input.NewLogFileSelector(viper.GetString(app.KeyLogPattern))
	if err != nil {
		return "", err
	}
	path, err := selector.SelectLatest(logDir())
	if err != nil {
		return "", fmt.Errorf("no log to scan: %w", err)
	}
	return path, nil
}
