// Package endpoint keeps the most recent speech-boundary notifications.
package endpoint

import "live-transcript-service/internal/models"

// DefaultCapacity is the number of notifications retained.
const DefaultCapacity = 5

// Log is a fixed-capacity FIFO ring buffer. Pushing onto a full log evicts the
// oldest entry. Not safe for concurrent use.
type Log struct {
	buf   []models.EndpointNotification
	head  int
	count int
}

// NewLog creates a log holding at most capacity entries. Capacities below one
// fall back to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]models.EndpointNotification, capacity)}
}

// Push appends n, evicting the oldest entry when full.
func (l *Log) Push(n models.EndpointNotification) {
	tail := (l.head + l.count) % len(l.buf)
	l.buf[tail] = n
	if l.count < len(l.buf) {
		l.count++
		return
	}
	l.head = (l.head + 1) % len(l.buf)
}

// Entries returns the retained notifications in arrival order.
func (l *Log) Entries() []models.EndpointNotification {
	out := make([]models.EndpointNotification, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	return out
}

// Len returns the number of retained notifications.
func (l *Log) Len() int {
	return l.count
}

// Cap returns the capacity.
func (l *Log) Cap() int {
	return len(l.buf)
}

// Reset empties the log.
func (l *Log) Reset() {
	for i := range l.buf {
		l.buf[i] = models.EndpointNotification{}
	}
	l.head = 0
	l.count = 0
}
