package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/roomwatch/internal/adapters/input"
	"github.com/xoelrdgz/roomwatch/internal/adapters/output"
	"github.com/xoelrdgz/roomwatch/internal/app"
	"github.com/xoelrdgz/roomwatch/internal/domain"
	"github.com/xoelrdgz/roomwatch/internal/ports"
)

var demoMode bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the VRChat log and send join/leave notifications",
	Long: `Follow the newest VRChat output log and send a popup to XSOverlay for
every player joining or leaving your instance.

Examples:
  roomwatch watch
  roomwatch watch --dir "/mnt/c/Users/me/AppData/LocalLow/VRChat/VRChat"
  roomwatch watch --dry-run --pretty
  roomwatch watch --demo --metrics`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("dry-run", false, "print notifications as JSON instead of sending them")
	watchCmd.Flags().Bool("echo", false, "print notifications as JSON while also sending them")
	watchCmd.Flags().Bool("metrics", false, "serve Prometheus metrics and /ready")
	watchCmd.Flags().String("metrics-addr", "", "metrics listen address")
	watchCmd.Flags().Bool("room-transitions", false, "also notify when you join or leave a room")
	watchCmd.Flags().Duration("grace-period", 0, "suppress joins/leaves this long after a room transition")
	watchCmd.Flags().Duration("interval", 0, "polling interval")
	watchCmd.Flags().BoolVar(&demoMode, "demo", false, "generate a synthetic VRChat session into a temp dir and watch it")

	_ = viper.BindPFlag(app.KeySinkDryRun, watchCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag(app.KeySinkEcho, watchCmd.Flags().Lookup("echo"))
	_ = viper.BindPFlag(app.KeyMetricsEnabled, watchCmd.Flags().Lookup("metrics"))
	_ = viper.BindPFlag(app.KeyMetricsAddr, watchCmd.Flags().Lookup("metrics-addr"))
	_ = viper.BindPFlag(app.KeyRoomTransitions, watchCmd.Flags().Lookup("room-transitions"))
	_ = viper.BindPFlag(app.KeyGracePeriod, watchCmd.Flags().Lookup("grace-period"))
	_ = viper.BindPFlag(app.KeyPollInterval, watchCmd.Flags().Lookup("interval"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if demoMode {
		dir, cleanup, err := startDemo(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		viper.Set(app.KeyLogDir, dir)
		if !cmd.Flags().Changed("dry-run") {
			viper.Set(app.KeySinkDryRun, true)
		}
	}

	cfg, err := app.LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	parser, err := newParser()
	if err != nil {
		return err
	}
	selector, err := input.NewLogFileSelector(cfg.LogPattern)
	if err != nil {
		return err
	}

	sink, err := newSink(cfg.Sink, os.Stdout)
	if err != nil {
		return err
	}
	defer sink.Close()

	metrics := domain.NewPipelineMetrics()

	var collector ports.MetricsCollector
	var promMetrics *output.PrometheusMetrics
	if cfg.MetricsEnabled {
		promMetrics = output.NewPrometheusMetrics("roomwatch", metrics, nil)
		collector = promMetrics

		health := output.NewHealthChecker(metrics, output.DefaultHealthCheckerConfig(cfg.PollInterval))
		metricsConfig := output.DefaultMetricsConfig()
		metricsConfig.Addr = cfg.MetricsAddr
		if err := promMetrics.StartServer(metricsConfig, health); err != nil {
			log.Warn().Err(err).Msg("Failed to start metrics server")
		} else {
			log.Debug().Str("addr", promMetrics.Addr()).Msg("Metrics server started")
		}
		defer promMetrics.StopServer()
	}

	notifier := app.NewNotifier(sink, ports.SystemClock{}, cfg.Policy, collector)
	notifier.SetMetrics(metrics)

	processor, err := app.NewLogProcessor(cfg.LogDir, selector, func(path string) ports.AppendedLineReader {
		return input.NewContinuousFileReader(path)
	}, parser, notifier, metrics)
	if err != nil {
		return err
	}
	if promMetrics != nil {
		processor.SetObserver(promMetrics)
		processor.SetCollector(promMetrics)
	}

	watcher := app.NewWatcher(processor, notifier, metrics, app.WatcherConfig{
		PollInterval: cfg.PollInterval,
		WatchFS:      cfg.WatchFS,
		Startup:      cfg.Startup,
	})
	watcher.SetCollector(collector)

	hotReload := app.NewHotReloadConfig(viper.GetViper(), notifier)
	hotReload.StartWatching()

	log.Info().
		Str("dir", cfg.LogDir).
		Str("pattern", selector.Pattern()).
		Dur("grace_period", cfg.Policy.GracePeriod).
		Bool("dry_run", cfg.Sink.DryRun).
		Msg("roomwatch started")

	if err := watcher.Run(ctx); err != nil {
		return err
	}

	snap := watcher.Metrics()
	log.Info().
		Int64("lines", snap.LinesRead).
		Int64("events", snap.Events).
		Int64("sent", snap.NotificationsSent).
		Int64("suppressed", snap.NotificationsDropped).
		Int64("failed", snap.NotificationsFailed).
		Msg("Shutting down")
	return nil
}

// newSink returns the XSOverlay sink, or a stdout JSON sink on a dry run.
// With echo set the XSOverlay sink is paired with the JSON one.
func newSink(cfg app.SinkConfig, stdout io.Writer) (ports.NotificationSink, error) {
	if cfg.DryRun {
		sink, err := output.NewJSONSink(output.JSONSinkConfig{Writer: stdout})
		if err != nil {
			return nil, fmt.Errorf("create dry-run sink: %w", err)
		}
		return sink, nil
	}

	sink, err := output.NewXSOverlaySink(output.XSOverlayConfig{
		Host:      cfg.Host,
		Port:      cfg.Port,
		SourceApp: cfg.SourceApp,
	})
	if err != nil {
		return nil, fmt.Errorf("create XSOverlay sink: %w", err)
	}
	log.Info().Str("target", sink.Target()).Msg("Sending notifications to XSOverlay")

	if !cfg.Echo {
		return sink, nil
	}
	echo, err := output.NewJSONSink(output.JSONSinkConfig{Writer: stdout})
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("create echo sink: %w", err)
	}
	return output.NewFanOutSink(sink, echo), nil
}

func startDemo(ctx context.Context) (string, func(), error) {
	dir, err := os.MkdirTemp("", "roomwatch-demo-")
	if err != nil {
		return "", nil, fmt.Errorf("create demo dir: %w", err)
	}

	gen := input.NewDemoGenerator(input.DefaultDemoConfig(dir))
	errs := gen.Start(ctx)
	go func() {
		for err := range errs {
			log.Error().Err(err).Msg("Demo generator failed")
		}
	}()

	cleanup := func() {
		_ = gen.Stop()
		_ = os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}
