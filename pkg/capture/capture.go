// Package capture records upstream traffic to a gob stream and plays it back
package capture

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Message is one upstream read
type Message struct {
	Data      []byte
	Timestamp time.Time
}

// Recorder appends messages to Dest. It is safe for concurrent use.
type Recorder struct {
	Dest io.Writer

	mu   sync.Mutex
	enc  *gob.Encoder
	once sync.Once
}

// Receive encodes msg onto Dest
func (r *Recorder) Receive(msg Message) error {
	r.init()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(msg)
}

// Record stamps data with the current time and encodes it
func (r *Recorder) Record(data []byte) error {
	return r.Receive(Message{Data: data, Timestamp: time.Now()})
}

func (r *Recorder) init() {
	r.once.Do(func() {
		r.enc = gob.NewEncoder(r.Dest)
	})
}

// ReadIn decodes messages from r onto out until EOF, then closes out
func ReadIn(out chan<- Message, r io.Reader) error {
	defer close(out)

	dec := gob.NewDecoder(r)

	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("while decoding: %w", err)
		}

		out <- msg
	}
}

// Play hands each message to fn. With speed > 0 the original gaps between
// messages are reproduced, divided by speed; otherwise messages are
// delivered back to back.
func Play(ctx context.Context, msgs <-chan Message, speed float64, fn func(Message) error) error {
	var last time.Time

	for msg := range msgs {
		if speed > 0 && !last.IsZero() {
			if gap := msg.Timestamp.Sub(last); gap > 0 {
				t := time.NewTimer(time.Duration(float64(gap) / speed))
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
		}
		last = msg.Timestamp

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}

	return nil
}
