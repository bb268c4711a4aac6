package main

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xoelrdgz/roomwatch/internal/adapters/input"
	"github.com/xoelrdgz/roomwatch/internal/app"
)

var (
	cfgFile string
	pretty  bool

	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "roomwatch",
	Short: "VRChat join and leave notifications for XSOverlay",
	Long: `roomwatch follows the newest VRChat output log, picks out players
joining and leaving your instance and shows them as XSOverlay popups.

The burst of joins VRChat logs while entering a room is suppressed for a
short grace period, and your own account is never announced.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("roomwatch %s\n", Version)
		fmt.Printf("Commit:  %s\n", Commit)
		fmt.Printf("Built:   %s\n", BuildTime)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/roomwatch.yaml)")
	rootCmd.PersistentFlags().String("dir", "", "VRChat log directory (default: platform location)")
	rootCmd.PersistentFlags().String("pattern", "", "log file name pattern")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("timezone", "", "zone the log timestamps are written in (default: Local)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human readable logs even when stderr is not a terminal")

	_ = viper.BindPFlag(app.KeyLogDir, rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag(app.KeyLogPattern, rootCmd.PersistentFlags().Lookup("pattern"))
	_ = viper.BindPFlag(app.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(app.KeyParserLocation, rootCmd.PersistentFlags().Lookup("timezone"))

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("roomwatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/roomwatch")
		}
	}

	app.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Err(err).Msg("Error reading config file")
		}
	}

	viper.SetEnvPrefix("ROOMWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := viper.GetString(app.KeyLogLevel)
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if pretty || isTerminal(os.Stderr) {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    !isTerminal(os.Stderr),
		})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newParser builds the parser from parser.location and parser.patterns.
func newParser() (*input.VRChatParser, error) {
	cfg := input.DefaultParserConfig()

	loc, err := loadLocation(viper.GetString(app.KeyParserLocation))
	if err != nil {
		return nil, &app.ConfigValidationError{Field: app.KeyParserLocation, Value: viper.GetString(app.KeyParserLocation), Reason: err.Error()}
	}
	cfg.Location = loc

	if viper.IsSet(app.KeyParserPatterns) {
		var patterns []input.EventPattern
		if err := viper.UnmarshalKey(app.KeyParserPatterns, &patterns); err != nil {
			return nil, fmt.Errorf("decode %s: %w", app.KeyParserPatterns, err)
		}
		cfg.Patterns = patterns
	}

	parser, err := input.NewVRChatParser(cfg)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("timezone", loc.String()).
		Int("patterns", len(cfg.Patterns)).
		Msg("Parser ready")
	return parser, nil
}

func loadLocation(name string) (*time.Location, error) {
	switch strings.ToLower(name) {
	case "", "local":
		return time.Local, nil
	case "utc":
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func logDir() string {
	if dir := viper.GetString(app.KeyLogDir); dir != "" {
		return dir
	}
	return app.DefaultLogDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
