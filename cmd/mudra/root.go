package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/logutil"
)

const version = "0.3.0"

var verbose bool

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mudra",
	Short: "Hand-gesture pointer control",
	Long: `mudra turns hand landmarks from a tracker process into pointer commands:
a thumb-index pinch clicks, adding a ring-finger curl drags, a thumb-middle
pinch right-clicks and a middle-ring pinch scrolls.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func initLogging() {
	logutil.SetVerbose(verbose)
	flags := log.LstdFlags
	if verbose {
		flags |= log.Lmicroseconds
	}
	log.SetFlags(flags)
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
