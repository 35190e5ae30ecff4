// Package app runs translation sessions between an upstream byte source
// and an SLCD display
package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"lcd-translator/pkg/proto"
	"lcd-translator/pkg/queue"
	"lcd-translator/pkg/translator"
)

// Stats counts what a Bridge has processed
type Stats struct {
	Bytes       int64
	Literals    int64
	Commands    int64
	Invalid     int64
	Unsupported int64
	Errors      int64
}

// Bridge feeds upstream bytes through a decoder into a translator.
// Process is not safe for concurrent use; Stats is.
type Bridge struct {
	dec *proto.Decoder
	q   *queue.Queue
	tr  *translator.Translator
	log zerolog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewBridge creates a bridge decoding with codes through a queue of queueSize bytes
func NewBridge(tr *translator.Translator, codes proto.CodeTable, queueSize int, log zerolog.Logger) (*Bridge, error) {
	q, err := queue.New(queueSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create input queue: %w", err)
	}

	return &Bridge{
		dec: proto.NewDecoder(codes),
		q:   q,
		tr:  tr,
		log: log,
	}, nil
}

// Process queues p and applies every message it completes. A message
// split across calls is completed by a later call. Display errors are
// logged and returned joined; processing always continues.
func (b *Bridge) Process(p []byte) error {
	b.count(func(s *Stats) { s.Bytes += int64(len(p)) })

	var errs []error
	for len(p) > 0 {
		n, _ := b.q.Write(p)
		p = p[n:]
		errs = append(errs, b.drain()...)
	}
	return errors.Join(errs...)
}

// drain decodes until the queue runs dry
func (b *Bridge) drain() []error {
	var errs []error

	for {
		res, ev := b.dec.FeedQueue(b.q)
		switch res {
		case proto.Complete:
			out := b.tr.Apply(ev)
			b.count(func(s *Stats) {
				switch {
				case ev.Kind == proto.KindASCII:
					s.Literals++
				case !out.Supported:
					s.Unsupported++
				default:
					s.Commands++
				}
				if out.Err != nil {
					s.Errors++
				}
			})
			if out.Err != nil {
				errs = append(errs, out.Err)
			}
		case proto.Invalid:
			b.log.Debug().Str("code", fmt.Sprintf("0x%02x", ev.Value)).Msg("invalid command code")
			b.count(func(s *Stats) { s.Invalid++ })
		default:
			return errs
		}
	}
}

func (b *Bridge) count(fn func(*Stats)) {
	b.mu.Lock()
	fn(&b.stats)
	b.mu.Unlock()
}

// Stats returns a copy of the counters
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
