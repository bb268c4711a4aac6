package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xoelrdgz/roomwatch/internal/adapters/input"
	"github.com/xoelrdgz/roomwatch/internal/adapters/output"
)

var followCmd = &cobra.Command{
	Use:   "follow [FILE]",
	Short: "Stream parsed lines of one log file",
	Long: `Tail a single log file and print each parsed line, with events
highlighted. Unlike watch it never switches to a newer file and sends no
notifications.

Examples:
  roomwatch follow
  roomwatch follow --events-only
  roomwatch follow output_log_2024-06-01_20-00-00.txt --json --from-beginning`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().Bool("json", false, "print lines as JSON")
	followCmd.Flags().Bool("events-only", false, "print only lines carrying an event")
	followCmd.Flags().Bool("from-beginning", false, "start at the beginning of the file instead of the end")
	followCmd.Flags().Bool("poll", false, "poll for changes instead of using file system notifications")
	followCmd.Flags().Bool("no-color", false, "disable colored output")
}

func runFollow(cmd *cobra.Command, args []string) error {
	setupLogging()

	path, err := scanTarget(args)
	if err != nil {
		return err
	}
	parser, err := newParser()
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	eventsOnly, _ := cmd.Flags().GetBool("events-only")
	fromBeginning, _ := cmd.Flags().GetBool("from-beginning")
	poll, _ := cmd.Flags().GetBool("poll")
	noColor, _ := cmd.Flags().GetBool("no-color")

	var renderer output.Renderer
	if jsonOut {
		renderer = output.NewJSONRenderer(os.Stdout, eventsOnly)
	} else {
		renderer = output.NewTextRenderer(os.Stdout, !noColor && isTerminal(os.Stdout), eventsOnly)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tailer := input.NewFileTailer(path, parser, 0)
	tailer.SetFromBeginning(fromBeginning)
	tailer.SetPoll(poll)
	defer tailer.Stop()

	lines, errs := tailer.Start(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn().Err(err).Str("file", path).Msg("Tail error")
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := renderer.Render(line); err != nil {
				return err
			}
		}
	}
}
