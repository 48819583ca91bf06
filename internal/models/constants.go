package models

import "time"

// Engine defaults. Backoff before attempt n is 2^n * DefaultBackoffBase,
// clamped to DefaultBackoffMax.
const (
	DefaultMaxRetries  = 5
	DefaultDeferLimit  = 5
	DefaultBackoffBase = time.Second
	DefaultBackoffMax  = time.Minute
	DefaultLogCapacity = 100
)
