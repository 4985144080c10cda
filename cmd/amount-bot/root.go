package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/facturaIA/amount-extractor-bot/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile string
	debug   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "amount-bot",
	Short: "Extract billed amounts from screenshots",
	Long: `amount-bot reads the billed total from payment screenshots and reports
it together with its half.

It runs as a Discord bot with an optional HTTP API, or one-shot on a local file:
  amount-bot serve              Connect to Discord and serve the HTTP API
  amount-bot extract shot.png   Print the amount found in shot.png`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./amount-bot.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and applies the log settings
func loadConfig() (*config.Config, error) {
	setupLogger(os.Stderr, "info", "console")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	setupLogger(os.Stderr, level, cfg.Log.Format)

	return cfg, nil
}

// setupLogger configures the global logger
func setupLogger(out io.Writer, level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "json" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "amount-bot %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}
