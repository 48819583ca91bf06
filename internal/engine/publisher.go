package engine

import "github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

// Publisher receives engine state after every transition. Implementations
// must not block and must not call back into the engine; failures stay inside
// the publisher.
type Publisher interface {
	PublishQueue(mutations []models.Mutation)
	PublishStatus(status models.EngineStatus)
	PublishLog(entry models.LogEntry)
}

// NopPublisher discards everything.
type NopPublisher struct{}

func (NopPublisher) PublishQueue([]models.Mutation)    {}
func (NopPublisher) PublishStatus(models.EngineStatus) {}
func (NopPublisher) PublishLog(models.LogEntry)        {}
