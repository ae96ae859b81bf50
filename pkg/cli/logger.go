package cli

import (
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func addVerboseFlag(verbosity *int, cmd *cobra.Command) {
	cmd.Flags().CountVarP(verbosity, "verbose", "v", "logging verbosity (-v is debug)")
}

func newLogger(verbosity int) *slog.Logger {
	level := charmlog.InfoLevel
	if verbosity >= 1 {
		level = charmlog.DebugLevel
	}

	return slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: false,
		Level:           level,
	}))
}
