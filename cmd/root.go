package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Used for flags
	cfgPath   string
	logLevel  string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "doku-seal",
	Short: "Envelope signing service",
	Long: `Doku Seal manages signature envelopes for teams.

Functions:
- Create draft envelopes with recipients, fields and documents
- Send envelopes and notify recipients through Azure Service Bus
- Keep the envelope search index in Elasticsearch up to date`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "directory containing config.yaml or app.env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console)")
}

// setupLogging configures the global logger from the command line flags.
// Flags left empty fall back to the logging section of the configuration.
func setupLogging() {
	applyLogging(logLevel, logFormat)
}

func applyLogging(level, format string) {
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unknown log level %q, using info\n", level)
			parsed = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(parsed)
	}

	switch format {
	case "console", "text":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
