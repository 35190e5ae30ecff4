package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"lcd-translator/pkg/app"
	"lcd-translator/pkg/capture"
	"lcd-translator/pkg/config"
	"lcd-translator/pkg/retry"
)

var (
	replaySpeed   float64
	replayView    bool
	replayDisplay string
	replayRows    int
	replayColumns int
	replayCodes   codeOverrides
)

// replayCmd feeds a recorded capture through the translator
var replayCmd = &cobra.Command{
	Use:   "replay <capture>",
	Short: "Replay a recorded upstream capture onto a display",
	Long: `Replay a capture written by 'lcd-translator run --record'. By default the
capture drives a simulated display and the final screen is printed.

Examples:
  lcd-translator replay panel.cap
  lcd-translator replay panel.cap --speed 1 --view
  lcd-translator replay panel.cap --display /dev/slcd0`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	def := config.DefaultProfile()

	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "playback speed relative to the recording (0 plays as fast as possible)")
	replayCmd.Flags().BoolVar(&replayView, "view", false, "preview the simulated display in the terminal")
	replayCmd.Flags().StringVar(&replayDisplay, "display", "", "replay onto an SLCD device instead of a simulator")
	replayCmd.Flags().IntVar(&replayRows, "rows", def.Rows, "rows of the simulated display")
	replayCmd.Flags().IntVar(&replayColumns, "cols", def.Columns, "columns of the simulated display")
	replayCmd.Flags().Var(&replayCodes, "codes", "move a command to another code, e.g. clr_display=0x10 (repeatable)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening capture: %w", err)
	}
	defer f.Close()

	profile := config.DefaultProfile()
	profile.Simulate = replayDisplay == ""
	if replayDisplay != "" {
		profile.Display = replayDisplay
	}
	profile.Rows = replayRows
	profile.Columns = replayColumns
	if len(replayCodes) > 0 {
		profile.Codes = replayCodes
	}

	log, closer, err := newLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	pr, pw := io.Pipe()
	opts := app.RunnerOptions{
		Name:      "replay",
		Profile:   profile,
		Logger:    log,
		OpenRetry: retry.DefaultConfig(),
		Upstream:  pr,
		Title:     args[0],
	}

	if replayView {
		if !profile.Simulate {
			return errors.New("--view cannot be combined with --display")
		}
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("--view needs a terminal")
		}
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("opening terminal: %w", err)
		}
		opts.Screen = screen
		if logFile == "" {
			opts.Logger = zerolog.Nop()
		}
	}

	r, err := app.NewRunner(opts)
	if err != nil {
		return err
	}

	msgs := make(chan capture.Message, 64)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return capture.ReadIn(msgs, f)
	})
	g.Go(func() error {
		// Keep ReadIn unblocked if playback stops early.
		defer func() {
			for range msgs {
			}
		}()
		err := capture.Play(ctx, msgs, replaySpeed, func(msg capture.Message) error {
			_, err := pw.Write(msg.Data)
			return err
		})
		pw.CloseWithError(err)
		if errors.Is(err, io.ErrClosedPipe) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer pr.Close()
		return r.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if sim := r.Simulator(); sim != nil && !replayView {
		renderScreen(out, sim.Snapshot())
	}
	printSessionSummary(out, r)
	return nil
}
