package service

import (
	"sync"
	"time"
)

const defaultEventCapacity = 200

// Event is one pipeline occurrence kept for the admin event feed.
type Event struct {
	At        time.Time `json:"at"`
	Kind      string    `json:"kind"`
	RequestID string    `json:"requestId,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// EventLog is a bounded in-memory feed of recent pipeline events. Oldest
// entries are dropped once capacity is reached.
type EventLog struct {
	mu       sync.Mutex
	capacity int
	entries  []Event
	now      func() time.Time
}

func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	return &EventLog{capacity: capacity, now: time.Now}
}

// Record appends one event, evicting the oldest entry when full.
func (l *EventLog) Record(kind, requestID, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Event{
		At:        l.now(),
		Kind:      kind,
		RequestID: requestID,
		Message:   message,
	})
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
}

// Recent returns up to limit events, newest first.
func (l *EventLog) Recent(limit int) []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]Event, 0, limit)
	for i := len(l.entries) - 1; i >= len(l.entries)-limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}
