package engine

// Disposition is the classifier's output category for a failed remote call.
// It drives which recovery policy the engine applies.
type Disposition int

const (
	// DispositionRetryable covers transient failures (network blip, 5xx).
	DispositionRetryable Disposition = iota
	// DispositionDuplicate means the remote already holds this exact change;
	// the mutation is safe to discard silently.
	DispositionDuplicate
	// DispositionMissingDependency means a referenced parent entity has not
	// synced yet; the mutation is safe to reorder behind the rest of the queue.
	DispositionMissingDependency
	// DispositionOffline means no connectivity; the queue pauses without
	// charging the retry budget.
	DispositionOffline
	// DispositionFatal requires user action (retry or discard).
	DispositionFatal
)

func (d Disposition) String() string {
	switch d {
	case DispositionRetryable:
		return "retryable"
	case DispositionDuplicate:
		return "duplicate"
	case DispositionMissingDependency:
		return "missing_dependency"
	case DispositionOffline:
		return "offline"
	case DispositionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classifier maps a remote-call failure to exactly one disposition. It must be
// total and side-effect free; the backend-specific error codes live in the
// classifier, never in the engine.
type Classifier func(error) Disposition
