package models

import "time"

type LogStatus string

const (
	LogSynced  LogStatus = "synced"
	LogFailed  LogStatus = "failed"
	LogSkipped LogStatus = "skipped"
)

// LogEntry is an immutable record of one completed processing attempt. The log
// is an observability aid, never a source of truth.
type LogEntry struct {
	MutationID string       `json:"mutation_id"`
	Kind       MutationKind `json:"kind"`
	Timestamp  time.Time    `json:"timestamp"`
	Status     LogStatus    `json:"status"`
	Details    string       `json:"details,omitempty"`
}
