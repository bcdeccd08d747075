package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/killallgit/media-transcript-api/internal/telemetry"
	"github.com/killallgit/media-transcript-api/pkg/config"
)

var (
	configFile string
	logLevel   string
	jsonLogs   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "transcript-api",
	Short: "Media Transcript API server",
	Long: `Media Transcript API - turns videos into multilingual timed transcripts

A YouTube link or an uploaded mp4 is reduced to audio, transcribed with
Whisper (the OpenAI API or a local whisper.cpp install), translated into
English and Nepali with Google Cloud Translation and stored as one content
record per job.

Features:
  • HTTP API for submitting videos and reading stored transcripts
  • Whole-word transcript search with matching cue timings
  • Metadata curation that survives reprocessing
  • Per-run history with failure stage and diagnostics
  • sqlite or MongoDB content storage`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultConfigFile, "settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "enable JSON formatted logs")
}

// loadConfig loads the configuration when a command needs it. Flags the
// user set explicitly win over the settings file and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.SetConfigFile(configFile)
	if err := config.Init(); err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}

	if changed(cmd, "log-level") {
		config.Set("logging.level", logLevel)
	}
	if changed(cmd, "json-logs") {
		format := telemetry.FormatConsole
		if jsonLogs {
			format = telemetry.FormatJSON
		}
		config.Set("logging.format", format)
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}

	telemetry.SetupLogging(cfg.Logging)
	log.Debug().Str("config", configFile).Str("environment", cfg.Environment).Msg("configuration loaded")
	return cfg, nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}
