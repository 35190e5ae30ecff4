package proto

import "lcd-translator/pkg/queue"

// Result reports what a Feed call produced
type Result int

const (
	// Incomplete means more bytes are needed to finish the current message
	Incomplete Result = iota
	// Invalid means the byte after a header selected no known command
	Invalid
	// Complete means an event was decoded
	Complete
	// Empty means FeedQueue ran out of bytes with no message in progress
	Empty
)

// String returns the string representation of Result
func (r Result) String() string {
	switch r {
	case Incomplete:
		return "incomplete"
	case Invalid:
		return "invalid"
	case Complete:
		return "complete"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// State is the decoder's position within a message
type State int

const (
	StateIdle State = iota
	StateSawHeader
	StateExpectingData
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSawHeader:
		return "saw_header"
	case StateExpectingData:
		return "expecting_data"
	default:
		return "unknown"
	}
}

// Decoder turns the upstream byte stream into events, one byte at a time.
// Each session owns its own Decoder.
type Decoder struct {
	codes   CodeTable
	state   State
	event   Event
	want    int
	pending int
}

// NewDecoder creates a decoder using codes, or DefaultCodes when codes is empty
func NewDecoder(codes CodeTable) *Decoder {
	if codes.Len() == 0 {
		codes = DefaultCodes()
	}
	return &Decoder{codes: codes}
}

// Codes returns the table the decoder resolves command codes with
func (d *Decoder) Codes() CodeTable {
	return d.codes
}

// State returns the current decoder state
func (d *Decoder) State() State {
	return d.state
}

// Pending returns the number of data bytes still expected
func (d *Decoder) Pending() int {
	return d.pending
}

// Reset drops any partial message
func (d *Decoder) Reset() {
	d.state = StateIdle
	d.event = Event{}
	d.want = 0
	d.pending = 0
}

// Feed consumes one byte.
// The returned event is meaningful for Complete and Invalid results.
func (d *Decoder) Feed(b byte) (Result, Event) {
	switch d.state {
	case StateSawHeader:
		kind, ok := d.codes.Lookup(b)
		if !ok {
			d.Reset()
			return Invalid, Event{Kind: KindInvalid, Value: b}
		}

		d.event = Event{Kind: kind}
		if n := DataLen(kind); n > 0 {
			d.state = StateExpectingData
			d.want = n
			d.pending = n
			return Incomplete, Event{}
		}
		return d.complete()

	case StateExpectingData:
		d.store(d.want-d.pending, b)
		d.pending--
		if d.pending > 0 {
			return Incomplete, Event{}
		}
		return d.complete()

	default:
		if b == Header {
			d.state = StateSawHeader
			return Incomplete, Event{}
		}
		return Complete, Event{Kind: KindASCII, Char: remapLiteral(b)}
	}
}

// FeedQueue drains q oldest first until an event completes, a header turns
// out invalid, or q runs dry. On a dry queue it returns Incomplete when a
// message is still in progress and Empty otherwise.
func (d *Decoder) FeedQueue(q *queue.Queue) (Result, Event) {
	for {
		b, ok := q.Pop()
		if !ok {
			break
		}
		if res, ev := d.Feed(b); res != Incomplete {
			return res, ev
		}
	}

	if d.state != StateIdle {
		return Incomplete, Event{}
	}
	return Empty, Event{}
}

func (d *Decoder) complete() (Result, Event) {
	ev := d.event
	d.Reset()
	return Complete, ev
}

// store places data byte i of the current message into the payload
func (d *Decoder) store(i int, b byte) {
	switch d.event.Kind {
	case KindSetCursorPos:
		if i == 0 {
			d.event.Pos.Col = b
		} else {
			d.event.Pos.Row = b
		}
	case KindAddCustomChar:
		d.event.Glyph[i] = b
	default:
		d.event.Value = b
	}
}
