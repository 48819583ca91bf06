package engine

import (
	"sync"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"
)

// ActionLog is a bounded in-memory history of completed processing attempts.
// Oldest entries are evicted first.
type ActionLog struct {
	mu       sync.Mutex
	entries  []models.LogEntry
	capacity int
}

func NewActionLog(capacity int) *ActionLog {
	if capacity <= 0 {
		capacity = models.DefaultLogCapacity
	}
	return &ActionLog{capacity: capacity}
}

func (l *ActionLog) Append(entry models.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
}

// Entries returns a snapshot, oldest first.
func (l *ActionLog) Entries() []models.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ActionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
