package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lcd-translator/pkg/config"
	"lcd-translator/pkg/logging"
)

var (
	// Root command flags
	verbose   bool
	trace     bool
	logFile   string
	configDir string

	// Root command
	rootCmd = &cobra.Command{
		Use:   "lcd-translator",
		Short: "Drive an SLCD character display from a Matrix Orbital serial stream",
		Long: `lcd-translator reads the Matrix Orbital LCD command protocol from a
serial port and replays it on a NuttX segment LCD (SLCD) character device,
or on a simulated display that can be previewed in the terminal.`,
		Version:           "1.0.0",
		Run:               runRoot,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "log every byte sent to the display")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write the log to a file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "profile directory (default: user config dir)")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(codesCmd)
}

// runRoot shows help when no subcommand is given
func runRoot(cmd *cobra.Command, args []string) {
	cmd.Help()
}

// newLogger builds the process logger from the persistent flags
func newLogger() (zerolog.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		Verbose: verbose,
		Trace:   trace,
		File:    logFile,
	})
}

func profileManager() *config.FileProfileManager {
	return config.NewFileProfileManager(configDir)
}
