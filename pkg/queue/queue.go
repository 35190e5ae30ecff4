// Package queue provides a bounded circular byte queue
package queue

import (
	"errors"
	"fmt"
)

// ErrFull is returned by Write when not all bytes fit
var ErrFull = errors.New("queue is full")

// Queue is a power-of-two sized ring of bytes with head and tail indices.
// One slot stays free so that an empty and a full queue can be told apart.
// A Queue has a single owner and is not safe for concurrent use.
type Queue struct {
	buf  []byte
	mask int
	head int
	tail int
}

// New creates a queue backed by size bytes; it holds at most size-1 bytes
func New(size int) (*Queue, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("queue size must be a power of two >= 2, got: %d", size)
	}

	return &Queue{
		buf:  make([]byte, size),
		mask: size - 1,
	}, nil
}

// Len returns the number of queued bytes
func (q *Queue) Len() int {
	return (q.head - q.tail) & q.mask
}

// Space returns how many bytes can still be pushed
func (q *Queue) Space() int {
	return (q.tail - q.head - 1) & q.mask
}

// Cap returns the maximum number of queued bytes
func (q *Queue) Cap() int {
	return q.mask
}

// Push appends b, reporting false if the queue is full
func (q *Queue) Push(b byte) bool {
	if q.Space() == 0 {
		return false
	}
	q.buf[q.head] = b
	q.head = (q.head + 1) & q.mask
	return true
}

// Write appends as many bytes of p as fit
func (q *Queue) Write(p []byte) (int, error) {
	for i, b := range p {
		if !q.Push(b) {
			return i, ErrFull
		}
	}
	return len(p), nil
}

// Pop removes the oldest byte
func (q *Queue) Pop() (byte, bool) {
	if q.Len() == 0 {
		return 0, false
	}
	b := q.buf[q.tail]
	q.tail = (q.tail + 1) & q.mask
	return b, true
}

// Reset discards all queued bytes
func (q *Queue) Reset() {
	q.head = 0
	q.tail = 0
}
