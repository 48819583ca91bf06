package models

import "encoding/json"

// MutationKind is the closed tag set of changes the executor understands.
// New kinds are added by extending this set.
type MutationKind string

const (
	KindUpsertRow    MutationKind = "upsert_row"
	KindDeleteRow    MutationKind = "delete_row"
	KindUpsertTable  MutationKind = "upsert_table"
	KindDeleteTable  MutationKind = "delete_table"
	KindUpsertFolder MutationKind = "upsert_folder"
	KindDeleteFolder MutationKind = "delete_folder"
	KindSaveStats    MutationKind = "save_stats"
	KindSaveSettings MutationKind = "save_settings"
)

// KnownKinds lists every kind the engine will accept on Push.
var KnownKinds = map[MutationKind]bool{
	KindUpsertRow:    true,
	KindDeleteRow:    true,
	KindUpsertTable:  true,
	KindDeleteTable:  true,
	KindUpsertFolder: true,
	KindDeleteFolder: true,
	KindSaveStats:    true,
	KindSaveSettings: true,
}

type MutationStatus string

const (
	MutationPending    MutationStatus = "pending"
	MutationProcessing MutationStatus = "processing"
	MutationFailed     MutationStatus = "failed"
)

// Mutation is a single queued, not-yet-confirmed change to remote state.
// The payload is opaque to the engine; only the executor for the given kind
// knows its schema.
type Mutation struct {
	ID         string          `json:"id"`
	Kind       MutationKind    `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	OwnerID    string          `json:"owner_id"`
	CreatedAt  int64           `json:"created_at"`
	Status     MutationStatus  `json:"status"`
	Attempt    int             `json:"attempt"`
	DeferCount int             `json:"defer_count"`
	LastError  *string         `json:"last_error,omitempty"`
}

// Clone returns a value copy safe to hand to observers.
func (m *Mutation) Clone() Mutation {
	c := *m
	if m.Payload != nil {
		c.Payload = append(json.RawMessage(nil), m.Payload...)
	}
	if m.LastError != nil {
		s := *m.LastError
		c.LastError = &s
	}
	return c
}
