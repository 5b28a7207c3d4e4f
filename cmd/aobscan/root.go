package main

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool

	// logger is replaced by the root command before any subcommand runs.
	logger = log.New(io.Discard)
)

var rootCmd = &cobra.Command{
	Use:   "aobscan",
	Short: "aobscan - array-of-bytes signature scanner",
	Long: `aobscan finds byte patterns with wildcards ("48 8B 05 ? ? ? ?") in files,
binaries and sample archives.

Patterns can be given in IDA style, as code-style escaped bytes with a mask,
or as plain hex strings. Scans can be restricted to a named section of ELF,
PE and Mach-O binaries, and results are stored in a SQLite datastore.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(signaturesCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the stderr logger for the --verbose and --quiet flags.
func newLogger(w io.Writer) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          "aobscan",
		Level:           log.InfoLevel,
		ReportTimestamp: false,
	})
	switch {
	case quiet:
		l.SetLevel(log.ErrorLevel)
	case verbose:
		l.SetLevel(log.DebugLevel)
	}
	return l
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
