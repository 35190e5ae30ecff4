package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lcd-translator/pkg/app"
	"lcd-translator/pkg/config"
	"lcd-translator/pkg/history"
	"lcd-translator/pkg/retry"
	"lcd-translator/pkg/serial"
)

var (
	runFlags         profileFlags
	runView          bool
	runRecord        string
	runHistoryFile   string
	runHistoryFormat = history.FormatTimestamped
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [port|profile]",
	Short: "Translate a Matrix Orbital stream onto an SLCD display",
	Long: `Read Matrix Orbital LCD commands from a serial port and replay them on an
SLCD character device until the port closes or the process is interrupted.

The argument can be a serial port or the name of a saved profile. Flags
override the corresponding profile fields. Without an argument the default
profile is used.

Examples:
  lcd-translator run /dev/ttyUSB0
  lcd-translator run /dev/ttyUSB0 --display /dev/slcd1 -b 19200
  lcd-translator run panel --simulate --view
  lcd-translator run panel --record panel.cap --history panel.log`,
	Aliases: []string{"connect", "c"},
	Args:    cobra.MaximumNArgs(1),
	RunE:    runRun,
}

func init() {
	runFlags.register(runCmd.Flags())
	runCmd.Flags().BoolVar(&runView, "view", false, "preview the simulated display in the terminal")
	runCmd.Flags().StringVar(&runRecord, "record", "", "record the upstream stream to a capture file")
	runCmd.Flags().StringVar(&runHistoryFile, "history", "", "save the traffic history to a file on exit")
	runCmd.Flags().Var(&runHistoryFormat, "history-format", "history file format (plain, timestamped, json)")
}

func runRun(cmd *cobra.Command, args []string) error {
	name, profile, err := resolveProfile(args)
	if err != nil {
		return err
	}
	runFlags.apply(cmd.Flags(), &profile)

	log, closer, err := newLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	opts := app.RunnerOptions{
		Name:          name,
		Profile:       profile,
		Logger:        log,
		OpenRetry:     retry.DefaultConfig(),
		HistoryFile:   runHistoryFile,
		HistoryFormat: runHistoryFormat,
		Title:         name,
	}

	if runRecord != "" {
		f, err := os.Create(runRecord)
		if err != nil {
			return fmt.Errorf("creating capture file: %w", err)
		}
		defer f.Close()
		opts.Record = f
	}

	if runView {
		if !profile.Simulate {
			return errors.New("--view needs a simulated display (--simulate)")
		}
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("--view needs a terminal")
		}
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("opening terminal: %w", err)
		}
		opts.Screen = screen
		// Log lines on stderr would scribble over the preview.
		if logFile == "" {
			opts.Logger = zerolog.Nop()
		}
	}

	r, err := app.NewRunner(opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !runView {
		fmt.Fprintf(out, "Translating %s -> %s (%s)\n", profile.Upstream.Port, displayName(profile), profile.Upstream)
		fmt.Fprintln(out, "Press Ctrl+C to stop")
	}

	if err := r.Run(cmd.Context()); err != nil {
		return err
	}

	if sim := r.Simulator(); sim != nil && !runView {
		fmt.Fprintln(out)
		renderScreen(out, sim.Snapshot())
	}
	printSessionSummary(out, r)
	return nil
}

// resolveProfile turns the run target into a profile name and settings
func resolveProfile(args []string) (string, config.Profile, error) {
	profile := config.DefaultProfile()
	if len(args) == 0 {
		return "default", profile, nil
	}

	target := args[0]
	if isSerialPort(target) {
		profile.Upstream.Port = target
		return target, profile, nil
	}

	manager := profileManager()
	loaded, err := manager.LoadProfile(target)
	if err == nil {
		return target, loaded, nil
	}
	if !errors.Is(err, config.ErrProfileNotFound) {
		return "", profile, err
	}

	var hint strings.Builder
	if ports, perr := serial.ListPorts(); perr == nil && len(ports) > 0 {
		hint.WriteString("\nAvailable ports: " + strings.Join(ports, ", "))
	}
	if infos, lerr := manager.ListProfiles(); lerr == nil && len(infos) > 0 {
		names := make([]string, 0, len(infos))
		for _, info := range infos {
			names = append(names, info.Name)
		}
		hint.WriteString("\nSaved profiles: " + strings.Join(names, ", "))
	}
	return "", profile, fmt.Errorf("'%s' is neither a serial port nor a saved profile%s", target, hint.String())
}

func isSerialPort(name string) bool {
	lower := strings.ToLower(name)

	// Windows COM ports
	if strings.HasPrefix(lower, "com") {
		return true
	}

	// Unix-like serial devices
	if strings.HasPrefix(name, "/dev/") {
		return true
	}

	return serial.IsPortAvailable(name)
}

func displayName(p config.Profile) string {
	if p.Simulate {
		return fmt.Sprintf("simulated %dx%d", p.Rows, p.Columns)
	}
	return p.Display
}
