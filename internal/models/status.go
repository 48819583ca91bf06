package models

// EngineStatus is the coarse state reported to observers after transitions.
type EngineStatus string

const (
	StatusIdle    EngineStatus = "idle"
	StatusSaving  EngineStatus = "saving"
	StatusPaused  EngineStatus = "paused"
	StatusOffline EngineStatus = "offline"
	StatusError   EngineStatus = "error"
	StatusSaved   EngineStatus = "saved"
)
