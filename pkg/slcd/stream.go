package slcd

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"lcd-translator/pkg/retry"
)

// BufferSize is the capacity of a Stream
const BufferSize = 256

// FlushError reports failed writes during a flush. Dropped is zero when
// the buffer was delivered in the end.
type FlushError struct {
	Dropped  int
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *FlushError) Error() string {
	if e.Dropped == 0 {
		return fmt.Sprintf("display flush needed %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("display flush dropped %d bytes after %d attempts: %v", e.Dropped, e.Attempts, e.Err)
}

// Unwrap returns the last write error
func (e *FlushError) Unwrap() error {
	return e.Err
}

// StreamOptions configures a Stream
type StreamOptions struct {
	// Retry governs how failed writes are retried. retry.Forever keeps
	// retrying until the buffer drains.
	Retry  retry.Config
	Logger zerolog.Logger
	// Tap, when set, receives a copy of every flushed buffer
	Tap func(p []byte)
}

// DefaultStreamOptions retries failed writes until the buffer drains
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		Retry: retry.Config{
			MaxRetries:    retry.Forever,
			RetryInterval: 10 * time.Millisecond,
			BackoffFactor: 2.0,
			MaxInterval:   500 * time.Millisecond,
		},
		Logger: zerolog.Nop(),
	}
}

// Stream buffers encoded bytes for a device and writes them out on Flush
// or when the buffer fills up.
type Stream struct {
	w     io.Writer
	buf   [BufferSize]byte
	n     int
	opts  StreamOptions
	sleep func(time.Duration)
}

// NewStream creates a stream writing to w
func NewStream(w io.Writer, opts StreamOptions) *Stream {
	return &Stream{
		w:     w,
		opts:  opts,
		sleep: time.Sleep,
	}
}

// Buffered returns the number of bytes waiting to be flushed
func (s *Stream) Buffered() int {
	return s.n
}

// WriteByte appends c and flushes when the buffer is full.
// The byte is always accepted; the error comes from the automatic flush.
func (s *Stream) WriteByte(c byte) error {
	s.buf[s.n] = c
	s.n++

	if s.n >= BufferSize {
		return s.Flush()
	}
	return nil
}

// Flush writes all buffered bytes, retrying short and interrupted writes.
// The buffer is empty afterwards even if bytes had to be dropped. A flush
// that only succeeded after failed writes still returns a *FlushError.
func (s *Stream) Flush() error {
	defer func() { s.n = 0 }()

	p := s.buf[:s.n]
	if len(p) == 0 {
		return nil
	}

	if e := s.opts.Logger.Trace(); e.Enabled() {
		e.Int("len", len(p)).Msg("slcd buffer dump\n" + Dump(p))
	}
	if s.opts.Tap != nil {
		s.opts.Tap(p)
	}

	var (
		lastErr  error
		failures int
	)
	backoff := retry.NewBackoff(s.opts.Retry)
	for len(p) > 0 {
		n, err := s.w.Write(p)
		if n > 0 {
			p = p[n:]
		}
		if err == nil && n > 0 {
			backoff.Reset()
			continue
		}
		if err == nil {
			err = io.ErrShortWrite
		}
		if interrupted(err) {
			continue
		}

		lastErr = err
		failures++
		s.opts.Logger.Error().Err(err).Int("remaining", len(p)).Msg("display write failed")

		wait, ok := backoff.Next()
		if !ok {
			return &FlushError{Dropped: len(p), Attempts: backoff.Attempts() + 1, Err: err}
		}
		s.sleep(wait)
	}

	if lastErr != nil {
		return &FlushError{Attempts: failures + 1, Err: lastErr}
	}
	return nil
}
