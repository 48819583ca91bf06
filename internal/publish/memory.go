package publish

import (
	"sync"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"
)

// MemoryPublisher retains the latest published engine state for in-process
// observers (the admin API and tests).
type MemoryPublisher struct {
	mu      sync.RWMutex
	queue   []models.Mutation
	status  models.EngineStatus
	entries []models.LogEntry
	cap     int
}

func NewMemoryPublisher(logCapacity int) *MemoryPublisher {
	if logCapacity <= 0 {
		logCapacity = models.DefaultLogCapacity
	}
	return &MemoryPublisher{status: models.StatusIdle, cap: logCapacity}
}

func (p *MemoryPublisher) PublishQueue(mutations []models.Mutation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = mutations
}

func (p *MemoryPublisher) PublishStatus(status models.EngineStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *MemoryPublisher) PublishLog(entry models.LogEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	if len(p.entries) > p.cap {
		p.entries = p.entries[len(p.entries)-p.cap:]
	}
}

func (p *MemoryPublisher) Queue() []models.Mutation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Mutation, len(p.queue))
	copy(out, p.queue)
	return out
}

func (p *MemoryPublisher) Status() models.EngineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *MemoryPublisher) LogEntries() []models.LogEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.LogEntry, len(p.entries))
	copy(out, p.entries)
	return out
}
