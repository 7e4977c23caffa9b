// Package cli implements the soapmsg command line: encode builds an
// envelope from a values file, decode prints the structure of an envelope.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/xmlwire/soapmsg/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:           "soapmsg",
	Short:         "Encode and decode SOAP 1.1 messages",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() *slog.Logger {
	return logging.New(logging.Config{Level: logging.ParseLevel(logLevel)})
}
