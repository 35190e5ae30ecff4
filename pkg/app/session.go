package app

import (
	"fmt"
	"sync"
	"time"
)

// Session describes one translation run
type Session struct {
	ID        string
	Name      string
	Upstream  string
	Display   string
	StartTime time.Time
	EndTime   *time.Time
	BytesIn   int64
	BytesOut  int64
	IsActive  bool
	mu        sync.RWMutex
}

// NewSession creates a new session
func NewSession(name, upstream, display string) *Session {
	return &Session{
		ID:        generateSessionID(),
		Name:      name,
		Upstream:  upstream,
		Display:   display,
		StartTime: time.Now(),
		IsActive:  true,
	}
}

// End marks the session as ended
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsActive {
		return
	}
	now := time.Now()
	s.EndTime = &now
	s.IsActive = false
}

// UpdateStats adds to the byte counters
func (s *Session) UpdateStats(bytesIn, bytesOut int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.BytesIn += bytesIn
	s.BytesOut += bytesOut
}

// GetStats returns the upstream bytes read and display bytes written
func (s *Session) GetStats() (bytesIn, bytesOut int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.BytesIn, s.BytesOut
}

// Duration returns how long the session ran, or has been running
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// generateSessionID generates a unique session ID
func generateSessionID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
