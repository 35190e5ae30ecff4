package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"lcd-translator/pkg/capture"
	"lcd-translator/pkg/config"
	"lcd-translator/pkg/history"
	"lcd-translator/pkg/lcdview"
	"lcd-translator/pkg/retry"
	"lcd-translator/pkg/serial"
	"lcd-translator/pkg/slcd"
	"lcd-translator/pkg/translator"
)

const readBufferSize = 4096

// RunnerOptions configures a Runner
type RunnerOptions struct {
	Name    string
	Profile config.Profile
	Logger  zerolog.Logger

	// OpenRetry governs opening and reopening the upstream serial port
	OpenRetry retry.Config

	// Upstream replaces the serial port named by the profile. It is read
	// until EOF and closed when the session ends if it is an io.Closer.
	Upstream io.Reader
	// Display replaces the device named by the profile
	Display slcd.Device

	// Record receives a capture of the upstream traffic
	Record io.Writer
	// HistoryFile receives the traffic history when the session ends
	HistoryFile   string
	HistoryFormat history.FileFormat

	// Screen shows a live preview of a simulated display
	Screen tcell.Screen
	Title  string
}

// Runner opens both ends of a session and pumps bytes between them
type Runner struct {
	opts RunnerOptions
	log  zerolog.Logger

	session *Session
	bridge  *Bridge
	sim     *slcd.Simulator
	hist    history.HistoryManager
	rec     *capture.Recorder
}

// NewRunner validates opts and creates a runner
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := opts.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	if err := opts.OpenRetry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	if opts.Name == "" {
		opts.Name = "session"
	}

	return &Runner{opts: opts, log: opts.Logger}, nil
}

// Run translates until the upstream ends, ctx is cancelled, the process
// is interrupted or the preview is closed
func (r *Runner) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := r.opts.Profile

	codes, err := p.CodeTable()
	if err != nil {
		return err
	}

	dev, displayName, err := r.openDisplay()
	if err != nil {
		return err
	}
	if r.opts.Screen != nil && r.sim == nil {
		dev.Close()
		return fmt.Errorf("the preview needs a simulated display")
	}

	upstream, upstreamName, closeUpstream, err := r.openUpstream(ctx)
	if err != nil {
		dev.Close()
		return err
	}
	defer closeUpstream()

	r.session = NewSession(r.opts.Name, upstreamName, displayName)
	if p.HistorySize > 0 || r.opts.HistoryFile != "" {
		r.hist = history.NewRingBufferHistoryManager(p.HistorySize)
	}
	if r.opts.Record != nil {
		r.rec = &capture.Recorder{Dest: r.opts.Record}
	}

	streamOpts := slcd.DefaultStreamOptions()
	streamOpts.Retry = p.Flush
	streamOpts.Tap = r.tapDisplay

	tr, err := translator.New(dev, translator.Options{Logger: r.log, Stream: streamOpts})
	if err != nil {
		dev.Close()
		return err
	}
	defer tr.Close()

	r.bridge, err = NewBridge(tr, codes, p.QueueSize, r.log)
	if err != nil {
		return err
	}

	r.log.Info().
		Str("session", r.session.ID).
		Str("upstream", upstreamName).
		Str("display", displayName).
		Msg("session started")

	g, gctx := errgroup.WithContext(ctx)
	if c, ok := r.opts.Upstream.(io.Closer); ok {
		// unblocks a pending Read when the preview closes or ctx ends
		context.AfterFunc(gctx, func() { c.Close() })
	}
	g.Go(func() error { return r.readLoop(gctx, upstream) })
	if r.opts.Screen != nil {
		view := lcdview.New(r.opts.Screen, r.sim, lcdview.Options{Title: r.opts.Title})
		g.Go(func() error { return view.Run(gctx) })
	}

	err = g.Wait()
	r.session.End()

	if errors.Is(err, lcdview.ErrQuit) || errors.Is(err, context.Canceled) {
		err = nil
	}

	if r.opts.HistoryFile != "" {
		if herr := r.hist.SaveToFile(r.opts.HistoryFile, r.opts.HistoryFormat); herr != nil {
			err = errors.Join(err, fmt.Errorf("failed to save history: %w", herr))
		}
	}

	r.logSummary()
	return err
}

// openDisplay returns the display device and a name for it
func (r *Runner) openDisplay() (slcd.Device, string, error) {
	if r.opts.Display != nil {
		r.sim, _ = r.opts.Display.(*slcd.Simulator)
		return r.opts.Display, "custom", nil
	}

	p := r.opts.Profile
	if p.Simulate {
		opts := slcd.DefaultSimulatorOptions()
		opts.Attributes.Rows = p.Rows
		opts.Attributes.Columns = p.Columns
		sim, err := slcd.NewSimulator(opts)
		if err != nil {
			return nil, "", err
		}
		r.sim = sim
		return sim, fmt.Sprintf("simulator %dx%d", p.Columns, p.Rows), nil
	}

	dev, err := slcd.OpenCharDevice(p.Display)
	if err != nil {
		return nil, "", err
	}
	return dev, p.Display, nil
}

// openUpstream returns the byte source, a name for it and a cleanup func
func (r *Runner) openUpstream(ctx context.Context) (io.Reader, string, func(), error) {
	if up := r.opts.Upstream; up != nil {
		return up, "reader", func() {}, nil
	}

	cfg := r.opts.Profile.Upstream
	if cfg.Timeout <= 0 {
		// reads must time out for cancellation to be noticed
		cfg.Timeout = serial.DefaultConfig().Timeout
	}
	port := serial.NewResilientSerialPort(r.opts.OpenRetry)
	if err := port.OpenWithRetry(ctx, cfg); err != nil {
		return nil, "", nil, err
	}
	return &serialSource{port: port, log: r.log}, cfg.Port + " " + cfg.String(), func() { port.Close() }, nil
}

// readLoop feeds upstream reads into the bridge until EOF or ctx is done
func (r *Runner) readLoop(ctx context.Context, upstream io.Reader) error {
	buf := make([]byte, readBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, err := upstream.Read(buf)
		if n > 0 {
			r.receive(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			if rerr := reconnect(ctx, upstream, err); rerr != nil {
				return rerr
			}
		}
	}
}

// receive records and translates one upstream read
func (r *Runner) receive(data []byte) {
	r.session.UpdateStats(int64(len(data)), 0)

	if r.hist != nil {
		r.hist.Write(data, history.DirectionUpstream)
	}
	if r.rec != nil {
		if err := r.rec.Record(data); err != nil {
			r.log.Warn().Err(err).Msg("failed to record upstream traffic")
		}
	}

	if err := r.bridge.Process(data); err != nil {
		r.log.Warn().Err(err).Msg("display error")
	}
}

// tapDisplay sees every buffer flushed to the display
func (r *Runner) tapDisplay(p []byte) {
	if r.session != nil {
		r.session.UpdateStats(0, int64(len(p)))
	}
	if r.hist != nil {
		r.hist.Write(p, history.DirectionDisplay)
	}
}

func (r *Runner) logSummary() {
	in, out := r.session.GetStats()
	stats := r.bridge.Stats()

	e := r.log.Info()
	if r.hist != nil {
		e = e.Int("history_bytes", r.hist.GetSize())
	}
	e.Str("session", r.session.ID).
		Dur("duration", r.session.Duration()).
		Int64("bytes_in", in).
		Int64("bytes_out", out).
		Int64("literals", stats.Literals).
		Int64("commands", stats.Commands).
		Int64("unsupported", stats.Unsupported).
		Int64("invalid", stats.Invalid).
		Int64("errors", stats.Errors).
		Msg("session ended")
}

// Session returns the session of the last Run
func (r *Runner) Session() *Session {
	return r.session
}

// Stats returns the bridge counters of the last Run
func (r *Runner) Stats() Stats {
	if r.bridge == nil {
		return Stats{}
	}
	return r.bridge.Stats()
}

// Simulator returns the simulated display, or nil for a real one
func (r *Runner) Simulator() *slcd.Simulator {
	return r.sim
}

// History returns the traffic history, or nil when it is disabled
func (r *Runner) History() history.HistoryManager {
	return r.hist
}

// serialSource reads from a serial port and can reopen it
type serialSource struct {
	port *serial.ResilientSerialPort
	log  zerolog.Logger
}

func (s *serialSource) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *serialSource) reconnect(ctx context.Context, cause error) error {
	s.log.Warn().Err(cause).Stringer("state", s.port.GetState()).Msg("upstream read failed, reconnecting")
	if err := s.port.Reconnect(ctx); err != nil {
		s.log.Error().
			Err(s.port.GetLastError()).
			Stringer("state", s.port.GetState()).
			Msg("upstream reconnect failed")
		return fmt.Errorf("upstream lost: %w", errors.Join(cause, err))
	}
	s.log.Info().Msg("upstream reconnected")
	return nil
}

// reconnect recovers from a read error where the source supports it
func reconnect(ctx context.Context, upstream io.Reader, cause error) error {
	if s, ok := upstream.(*serialSource); ok {
		return s.reconnect(ctx, cause)
	}
	return fmt.Errorf("upstream read failed: %w", cause)
}
