// Package history keeps a bounded record of the traffic passing through a session
package history

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Direction represents which side of the translator the bytes belong to
type Direction int

const (
	// DirectionUpstream is Matrix Orbital traffic read from the host
	DirectionUpstream Direction = iota
	// DirectionDisplay is SLCD traffic written to the display
	DirectionDisplay
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case DirectionUpstream:
		return "upstream"
	case DirectionDisplay:
		return "display"
	default:
		return "unknown"
	}
}

// MarshalText renders the direction by name in JSON exports
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// FileFormat represents different file export formats
type FileFormat int

const (
	FormatPlainText FileFormat = iota
	FormatTimestamped
	FormatJSON
)

// String returns the string representation of FileFormat
func (f FileFormat) String() string {
	switch f {
	case FormatPlainText:
		return "plain"
	case FormatTimestamped:
		return "timestamped"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Set parses a format name, so FileFormat can be used as a command line flag
func (f *FileFormat) Set(s string) error {
	switch strings.ToLower(s) {
	case "plain", "raw":
		*f = FormatPlainText
	case "timestamped", "ts":
		*f = FormatTimestamped
	case "json":
		*f = FormatJSON
	default:
		return fmt.Errorf("unknown history format %q (want plain, timestamped or json)", s)
	}
	return nil
}

// Type names the flag value type
func (f *FileFormat) Type() string {
	return "format"
}

// HistoryManager records traffic and exports it
type HistoryManager interface {
	Write(data []byte, direction Direction) error
	GetEntries(start, count int) ([]HistoryEntry, error)
	GetEntryCount() int
	GetSize() int
	SaveToFile(filename string, format FileFormat) error
	Clear() error
}

// HistoryEntry is one chunk of traffic
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	Data      []byte    `json:"data"`
}

// Validate checks if the history entry is valid
func (h HistoryEntry) Validate() error {
	if h.Timestamp.IsZero() {
		return fmt.Errorf("timestamp cannot be zero")
	}

	if h.Direction != DirectionUpstream && h.Direction != DirectionDisplay {
		return fmt.Errorf("invalid direction: %d", h.Direction)
	}

	if h.Data == nil {
		return fmt.Errorf("data cannot be nil")
	}

	return nil
}

// NewHistoryEntry creates a new history entry with current timestamp
func NewHistoryEntry(data []byte, direction Direction) HistoryEntry {
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return HistoryEntry{
		Timestamp: time.Now(),
		Direction: direction,
		Data:      dataCopy,
	}
}

// HistoryStats provides statistics about the history buffer
type HistoryStats struct {
	TotalEntries   int        `json:"total_entries"`
	UpstreamBytes  int        `json:"upstream_bytes"`
	DisplayBytes   int        `json:"display_bytes"`
	DroppedEntries int        `json:"dropped_entries"`
	MaxSize        int        `json:"max_size"`
	CurrentSize    int        `json:"current_size"`
	OldestEntry    *time.Time `json:"oldest_entry,omitempty"`
	NewestEntry    *time.Time `json:"newest_entry,omitempty"`
}

// RingBufferHistoryManager keeps the most recent entries whose data fits in
// maxSize bytes. It is safe for concurrent use.
type RingBufferHistoryManager struct {
	mu      sync.Mutex
	entries []HistoryEntry
	head    int
	size    int
	maxSize int
	dropped int
}

// DefaultMaxSize is used when a non-positive size is requested
const DefaultMaxSize = 64 * 1024

// NewRingBufferHistoryManager creates a new ring buffer history manager
func NewRingBufferHistoryManager(maxSize int) *RingBufferHistoryManager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &RingBufferHistoryManager{maxSize: maxSize}
}

// Write adds data to the history, evicting the oldest entries to stay within
// the size limit. A chunk larger than the limit keeps only its tail.
func (rbhm *RingBufferHistoryManager) Write(data []byte, direction Direction) error {
	if data == nil {
		return fmt.Errorf("data cannot be nil")
	}

	if direction != DirectionUpstream && direction != DirectionDisplay {
		return fmt.Errorf("invalid direction: %d", direction)
	}

	rbhm.mu.Lock()
	defer rbhm.mu.Unlock()

	if len(data) > rbhm.maxSize {
		data = data[len(data)-rbhm.maxSize:]
	}
	entry := NewHistoryEntry(data, direction)

	rbhm.entries = append(rbhm.entries, entry)
	rbhm.size += len(entry.Data)
	rbhm.evict()

	return nil
}

// evict drops entries from the front until the size limit holds
func (rbhm *RingBufferHistoryManager) evict() {
	for rbhm.size > rbhm.maxSize && rbhm.head < len(rbhm.entries) {
		rbhm.size -= len(rbhm.entries[rbhm.head].Data)
		rbhm.entries[rbhm.head] = HistoryEntry{}
		rbhm.head++
		rbhm.dropped++
	}

	// compact once the dead prefix dominates
	if rbhm.head > 0 && rbhm.head >= len(rbhm.entries)/2 {
		live := copy(rbhm.entries, rbhm.entries[rbhm.head:])
		for i := live; i < len(rbhm.entries); i++ {
			rbhm.entries[i] = HistoryEntry{}
		}
		rbhm.entries = rbhm.entries[:live]
		rbhm.head = 0
	}
}

// GetSize returns the number of data bytes held
func (rbhm *RingBufferHistoryManager) GetSize() int {
	rbhm.mu.Lock()
	defer rbhm.mu.Unlock()
	return rbhm.size
}

// GetEntryCount returns the number of entries in the history
func (rbhm *RingBufferHistoryManager) GetEntryCount() int {
	rbhm.mu.Lock()
	defer rbhm.mu.Unlock()
	return len(rbhm.entries) - rbhm.head
}

// GetEntries returns up to count entries starting at start, oldest first
func (rbhm *RingBufferHistoryManager) GetEntries(start, count int) ([]HistoryEntry, error) {
	if start < 0 {
		return nil, fmt.Errorf("start cannot be negative")
	}

	if count < 0 {
		return nil, fmt.Errorf("count cannot be negative")
	}

	rbhm.mu.Lock()
	defer rbhm.mu.Unlock()

	live := rbhm.entries[rbhm.head:]
	if start >= len(live) {
		return []HistoryEntry{}, nil
	}

	if start+count > len(live) {
		count = len(live) - start
	}

	result := make([]HistoryEntry, count)
	copy(result, live[start:start+count])
	return result, nil
}

// Clear clears all data from the history buffer
func (rbhm *RingBufferHistoryManager) Clear() error {
	rbhm.mu.Lock()
	defer rbhm.mu.Unlock()

	rbhm.entries = nil
	rbhm.head = 0
	rbhm.size = 0
	rbhm.dropped = 0
	return nil
}

// GetStats returns statistics about the history buffer
func (rbhm *RingBufferHistoryManager) GetStats() HistoryStats {
	rbhm.mu.Lock()
	defer rbhm.mu.Unlock()

	live := rbhm.entries[rbhm.head:]
	stats := HistoryStats{
		TotalEntries:   len(live),
		DroppedEntries: rbhm.dropped,
		MaxSize:        rbhm.maxSize,
		CurrentSize:    rbhm.size,
	}

	for _, entry := range live {
		switch entry.Direction {
		case DirectionUpstream:
			stats.UpstreamBytes += len(entry.Data)
		case DirectionDisplay:
			stats.DisplayBytes += len(entry.Data)
		}
	}

	if len(live) > 0 {
		oldest := live[0].Timestamp
		newest := live[len(live)-1].Timestamp
		stats.OldestEntry = &oldest
		stats.NewestEntry = &newest
	}

	return stats
}

// SaveToFile saves the history to a file in the specified format
func (rbhm *RingBufferHistoryManager) SaveToFile(filename string, format FileFormat) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	entries, err := rbhm.GetEntries(0, rbhm.GetEntryCount())
	if err != nil {
		return fmt.Errorf("failed to get entries: %w", err)
	}

	return saveEntriesToFile(entries, filename, format)
}

// saveEntriesToFile saves history entries to a file in the specified format
func saveEntriesToFile(entries []HistoryEntry, filename string, format FileFormat) error {
	var write func(*os.File, []HistoryEntry) error
	switch format {
	case FormatPlainText:
		write = saveAsPlainText
	case FormatTimestamped:
		write = saveAsTimestamped
	case FormatJSON:
		write = saveAsJSON
	default:
		return fmt.Errorf("unsupported format: %v", format)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return write(file, entries)
}

// saveAsPlainText writes the upstream bytes back to back, which replays the session
func saveAsPlainText(file *os.File, entries []HistoryEntry) error {
	for _, entry := range entries {
		if entry.Direction != DirectionUpstream {
			continue
		}
		if _, err := file.Write(entry.Data); err != nil {
			return fmt.Errorf("failed to write data: %w", err)
		}
	}
	return nil
}

// saveAsTimestamped writes one hex line per entry
func saveAsTimestamped(file *os.File, entries []HistoryEntry) error {
	for _, entry := range entries {
		direction := "<<"
		if entry.Direction == DirectionDisplay {
			direction = ">>"
		}

		line := fmt.Sprintf("[%s] %s %s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05.000"),
			direction,
			hex.EncodeToString(entry.Data))

		if _, err := file.WriteString(line); err != nil {
			return fmt.Errorf("failed to write timestamped data: %w", err)
		}
	}
	return nil
}

// saveAsJSON saves entries as JSON
func saveAsJSON(file *os.File, entries []HistoryEntry) error {
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	data := struct {
		Entries []HistoryEntry `json:"entries"`
		Count   int            `json:"count"`
	}{
		Entries: entries,
		Count:   len(entries),
	}

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
