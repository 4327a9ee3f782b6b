// nbtrans translates the prose of Jupyter notebooks while leaving code untouched.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/notebook-translator/internal/errs"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nbtrans",
		Short: "Translate Jupyter notebooks with an LLM",
		Long: `nbtrans translates markdown cells, and optionally code comments, of
Jupyter notebooks. Code, outputs and metadata are never changed.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&globals.envFile, "env", "", "Load environment variables from this file (default: ./.env)")
	root.PersistentFlags().StringVar(&globals.configFile, "config", "", "Settings file (default: ./"+defaultSettingsFile+" when present)")
	root.PersistentFlags().StringVar(&globals.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&globals.logFile, "log-file", "", "Write logs to this file instead of stderr")

	root.AddCommand(
		newTranslateCmd(),
		newInfoCmd(),
		newLanguagesCmd(),
		newWatchCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if kind := errs.KindOf(err); kind != errs.Unknown {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", errs.Advice(kind))
		}
		os.Exit(1)
	}
}
