package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrLocked is returned by Push while the engine is suspended.
var ErrLocked = errors.New("sync engine is locked")

// ErrNotFound is returned when an operation names an unknown mutation id.
var ErrNotFound = errors.New("mutation not found")

// ErrUnknownKind is returned by Push for a kind outside the closed tag set.
var ErrUnknownKind = errors.New("unknown mutation kind")

// Store is the durable persistence contract backing the queue. The engine is
// its only writer; the in-memory queue is a cache rebuilt from LoadAll.
type Store interface {
	LoadAll(ctx context.Context) ([]models.Mutation, error)
	Save(ctx context.Context, m *models.Mutation) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// Executor translates one queued mutation into a remote-store call. It is the
// only component that knows the remote schema; the engine only sees
// success or a classifiable error.
type Executor interface {
	Execute(ctx context.Context, m *models.Mutation) error
}

// Options tune the engine's retry, defer and backoff policy.
type Options struct {
	MaxRetries  int
	DeferLimit  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	LogCapacity int
}

func (o *Options) applyDefaults() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = models.DefaultMaxRetries
	}
	if o.DeferLimit <= 0 {
		o.DeferLimit = models.DefaultDeferLimit
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = models.DefaultBackoffBase
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = models.DefaultBackoffMax
	}
	if o.LogCapacity <= 0 {
		o.LogCapacity = models.DefaultLogCapacity
	}
}

// Engine owns the in-memory mirror of the durable store and drives strict
// head-of-line processing: at most one mutation is in flight at any time.
// All state is private; every external access goes through the API.
type Engine struct {
	store    Store
	exec     Executor
	classify Classifier
	pub      Publisher
	log      *ActionLog
	logger   zerolog.Logger
	opts     Options

	mu         sync.Mutex
	queue      []*models.Mutation
	processing bool
	paused     bool
	locked     bool
	batching   bool
	retryTimer *time.Timer
	seq        int64
}

// New rebuilds the queue from the durable store. A mutation left in
// `processing` by a killed process is reset to pending, so an interrupted
// transition is recoverable.
func New(store Store, exec Executor, classify Classifier, pub Publisher, logger *zerolog.Logger, opts Options) (*Engine, error) {
	opts.applyDefaults()
	if pub == nil {
		pub = NopPublisher{}
	}

	e := &Engine{
		store:    store,
		exec:     exec,
		classify: classify,
		pub:      pub,
		log:      NewActionLog(opts.LogCapacity),
		logger:   logger.With().Str("component", "sync-engine").Logger(),
		opts:     opts,
	}

	ctx := context.Background()
	loaded, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sync queue: %w", err)
	}

	for i := range loaded {
		m := loaded[i]
		if m.Status == models.MutationProcessing {
			m.Status = models.MutationPending
			if err := store.Save(ctx, &m); err != nil {
				return nil, fmt.Errorf("recover mutation %s: %w", m.ID, err)
			}
		}
		if m.CreatedAt >= e.seq {
			e.seq = m.CreatedAt + 1
		}
		e.queue = append(e.queue, &m)
	}

	e.logger.Info().Int("pending", len(e.queue)).Msg("sync queue loaded")
	e.publishQueueLocked()
	e.pub.PublishStatus(models.StatusIdle)
	return e, nil
}

// Push appends a new pending mutation to the queue tail and persists it.
// It never starts processing; callers drive that with TriggerSync.
func (e *Engine) Push(ctx context.Context, kind models.MutationKind, payload []byte, ownerID string) (*models.Mutation, error) {
	if !models.KnownKinds[kind] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.locked {
		return nil, ErrLocked
	}

	m := &models.Mutation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   append([]byte(nil), payload...),
		OwnerID:   ownerID,
		CreatedAt: e.seq,
		Status:    models.MutationPending,
	}
	e.seq++

	if err := e.store.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("persist mutation: %w", err)
	}

	e.queue = append(e.queue, m)
	e.publishQueueLocked()

	clone := m.Clone()
	return &clone, nil
}

// TriggerSync clears the pause and batch flags and starts the processing loop
// if there is work and the engine is not locked. Idempotent while processing.
func (e *Engine) TriggerSync() {
	e.mu.Lock()
	e.paused = false
	e.batching = false
	if e.processing || e.locked || e.headIndexLocked() < 0 {
		e.mu.Unlock()
		return
	}
	e.processing = true
	e.mu.Unlock()

	go e.run()
}

// Retry resets a failed (or stuck) mutation for a fresh attempt and restarts
// processing. Silently a no-op while the engine is locked.
func (e *Engine) Retry(id string) error {
	e.mu.Lock()
	if e.locked {
		e.mu.Unlock()
		return nil
	}

	m := e.findLocked(id)
	if m == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e.interruptBackoffLocked()
	m.Attempt = 0
	m.LastError = nil
	m.Status = models.MutationPending
	err := e.store.Save(context.Background(), m)
	e.publishQueueLocked()
	e.mu.Unlock()

	if err != nil {
		return fmt.Errorf("persist retry: %w", err)
	}
	e.TriggerSync()
	return nil
}

// UpdatePending replaces a queued mutation's payload and resets its retry
// budget; an edit means "try again fresh". Silently a no-op while locked.
func (e *Engine) UpdatePending(id string, payload []byte) error {
	e.mu.Lock()
	if e.locked {
		e.mu.Unlock()
		return nil
	}

	m := e.findLocked(id)
	if m == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	interrupted := e.interruptBackoffLocked()
	m.Payload = append([]byte(nil), payload...)
	m.Attempt = 0
	m.LastError = nil
	m.Status = models.MutationPending
	err := e.store.Save(context.Background(), m)
	e.publishQueueLocked()
	e.mu.Unlock()

	if err != nil {
		return fmt.Errorf("persist update: %w", err)
	}
	if interrupted {
		// The backoff timer was aborted; reevaluate the queue now.
		e.TriggerSync()
	}
	return nil
}

// Discard removes a mutation from queue and store unconditionally. No remote
// call is made; this only clears local state.
func (e *Engine) Discard(id string) error {
	e.mu.Lock()
	m := e.findLocked(id)
	if m == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	interrupted := false
	if i := e.headIndexLocked(); i >= 0 && e.queue[i].ID == id {
		interrupted = e.interruptBackoffLocked()
	}

	err := e.store.Delete(context.Background(), id)
	e.removeLocked(id)
	e.publishQueueLocked()
	e.mu.Unlock()

	if err != nil {
		return fmt.Errorf("delete mutation: %w", err)
	}
	if interrupted {
		e.TriggerSync()
	}
	return nil
}

// Suspend locks the engine while a full remote-state pull is in progress:
// Push fails, the loop will not start, and any backoff timer is stopped.
func (e *Engine) Suspend() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.locked = true
	e.interruptBackoffLocked()
	e.pub.PublishStatus(models.StatusPaused)
}

// Unsuspend clears the lock. It does not resume processing; callers decide
// when to TriggerSync.
func (e *Engine) Unsuspend() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locked = false
}

// StartBatch soft-pauses processing while edits accumulate. Push still works.
func (e *Engine) StartBatch() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.batching = true
	e.interruptBackoffLocked()
}

// EndBatch clears the batch flag and resumes processing.
func (e *Engine) EndBatch() {
	e.mu.Lock()
	e.batching = false
	e.mu.Unlock()

	e.TriggerSync()
}

// HandleNetworkUp is the "became online" signal from the host environment.
func (e *Engine) HandleNetworkUp() {
	e.logger.Info().Msg("network recovered, resuming sync")
	e.TriggerSync()
}

// HandleNetworkDown is the "became offline" signal from the host environment.
func (e *Engine) HandleNetworkDown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.paused = true
	e.interruptBackoffLocked()
	e.pub.PublishStatus(models.StatusOffline)
}

// ValidateOwnership reloads the durable store and purges every mutation whose
// owner does not match the given principal. Invoked on auth/session change so
// stale-user mutations are never sent under a new identity.
func (e *Engine) ValidateOwnership(ctx context.Context, ownerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	loaded, err := e.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("reload sync queue: %w", err)
	}

	kept := make([]*models.Mutation, 0, len(loaded))
	purged := 0
	for i := range loaded {
		m := loaded[i]
		if m.OwnerID == ownerID {
			if existing := e.findLocked(m.ID); existing != nil {
				// Keep the in-memory instance; it may carry a fresher status.
				kept = append(kept, existing)
			} else {
				kept = append(kept, &m)
			}
			continue
		}
		if err := e.store.Delete(ctx, m.ID); err != nil {
			return fmt.Errorf("purge mutation %s: %w", m.ID, err)
		}
		purged++
	}

	e.queue = kept
	if purged > 0 {
		e.logger.Warn().Int("purged", purged).Str("owner", ownerID).Msg("purged mutations from other owners")
	}
	e.publishQueueLocked()
	return nil
}

// LatestPendingPayload scans tail to head for the most recently queued
// mutation of the given kind, so callers can read back a local edit that has
// not been confirmed remotely yet.
func (e *Engine) LatestPendingPayload(kind models.MutationKind) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.queue) - 1; i >= 0; i-- {
		if e.queue[i].Kind == kind {
			return append([]byte(nil), e.queue[i].Payload...)
		}
	}
	return nil
}

// Snapshot returns a value copy of the current queue in order.
func (e *Engine) Snapshot() []models.Mutation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// LogEntries returns the bounded action log, oldest first.
func (e *Engine) LogEntries() []models.LogEntry {
	return e.log.Entries()
}

// Processing reports whether the loop currently owns a head mutation.
func (e *Engine) Processing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processing
}

// run is the head-of-line processing loop. It executes on its own goroutine;
// exactly one instance exists while e.processing is true.
func (e *Engine) run() {
	ctx := context.Background()

	for {
		e.mu.Lock()
		if e.paused || e.locked || e.batching {
			e.processing = false
			e.mu.Unlock()
			return
		}

		i := e.headIndexLocked()
		if i < 0 {
			e.processing = false
			e.mu.Unlock()
			return
		}

		m := e.queue[i]
		if m.Status != models.MutationProcessing {
			m.Status = models.MutationProcessing
			if err := e.store.Save(ctx, m); err != nil {
				e.logger.Error().Err(err).Str("id", m.ID).Msg("persist processing status")
			}
			e.publishQueueLocked()
			e.pub.PublishStatus(models.StatusSaving)
		}
		// The executor works on a copy so a concurrent payload edit cannot
		// race the in-flight call; the edit takes effect on the next attempt.
		inFlight := m.Clone()
		e.mu.Unlock()

		err := e.exec.Execute(ctx, &inFlight)

		e.mu.Lock()
		if e.findLocked(m.ID) == nil {
			// Discarded or purged while in flight; nothing to record.
			e.mu.Unlock()
			continue
		}

		if err == nil {
			e.handleSuccessLocked(ctx, m)
			e.mu.Unlock()
			continue
		}

		disposition := e.classify(err)
		e.logger.Debug().
			Str("id", m.ID).
			Str("kind", string(m.Kind)).
			Str("disposition", disposition.String()).
			Err(err).
			Msg("mutation attempt failed")

		switch disposition {
		case DispositionDuplicate:
			e.handleDuplicateLocked(ctx, m, err)
			e.mu.Unlock()

		case DispositionMissingDependency:
			e.handleMissingDependencyLocked(ctx, m, err)
			e.mu.Unlock()

		case DispositionOffline:
			e.handleOfflineLocked(ctx, m)
			e.mu.Unlock()
			return

		case DispositionRetryable:
			if m.Attempt < e.opts.MaxRetries-1 {
				e.handleRetryableLocked(ctx, m, err)
				e.mu.Unlock()
				return
			}
			e.handleFatalLocked(ctx, m, fmt.Errorf("retries exhausted: %w", err))
			e.mu.Unlock()
			return

		default: // DispositionFatal
			e.handleFatalLocked(ctx, m, err)
			e.mu.Unlock()
			return
		}
	}
}

func (e *Engine) handleSuccessLocked(ctx context.Context, m *models.Mutation) {
	entry := models.LogEntry{
		MutationID: m.ID,
		Kind:       m.Kind,
		Timestamp:  time.Now(),
		Status:     models.LogSynced,
	}
	e.log.Append(entry)

	if err := e.store.Delete(ctx, m.ID); err != nil {
		e.logger.Error().Err(err).Str("id", m.ID).Msg("delete synced mutation")
	}
	e.removeLocked(m.ID)
	e.publishQueueLocked()
	e.pub.PublishLog(entry)

	if e.headIndexLocked() < 0 {
		e.pub.PublishStatus(models.StatusSaved)
		e.pub.PublishStatus(models.StatusIdle)
	}
}

// handleDuplicateLocked treats "remote already has this record" as applied:
// the mutation is removed without a failure entry and the loop continues.
func (e *Engine) handleDuplicateLocked(ctx context.Context, m *models.Mutation, cause error) {
	entry := models.LogEntry{
		MutationID: m.ID,
		Kind:       m.Kind,
		Timestamp:  time.Now(),
		Status:     models.LogSkipped,
		Details:    cause.Error(),
	}
	e.log.Append(entry)

	if err := e.store.Delete(ctx, m.ID); err != nil {
		e.logger.Error().Err(err).Str("id", m.ID).Msg("delete duplicate mutation")
	}
	e.removeLocked(m.ID)
	e.publishQueueLocked()
	e.pub.PublishLog(entry)
}

// handleMissingDependencyLocked moves the mutation to the tail so its parent
// gets a chance to land first. This is a reordering, not a backoff: the loop
// continues immediately. Past the defer cap it converts to a terminal failure.
func (e *Engine) handleMissingDependencyLocked(ctx context.Context, m *models.Mutation, cause error) {
	if m.DeferCount < e.opts.DeferLimit {
		m.DeferCount++
		m.Attempt = 0
		m.Status = models.MutationPending
		e.removeLocked(m.ID)
		e.queue = append(e.queue, m)
		if err := e.store.Save(ctx, m); err != nil {
			e.logger.Error().Err(err).Str("id", m.ID).Msg("persist deferred mutation")
		}
		e.publishQueueLocked()
		return
	}

	msg := fmt.Sprintf("dependency never resolved after %d deferrals: %v", m.DeferCount, cause)
	m.Status = models.MutationFailed
	m.LastError = &msg
	if err := e.store.Save(ctx, m); err != nil {
		e.logger.Error().Err(err).Str("id", m.ID).Msg("persist failed mutation")
	}

	entry := models.LogEntry{
		MutationID: m.ID,
		Kind:       m.Kind,
		Timestamp:  time.Now(),
		Status:     models.LogFailed,
		Details:    msg,
	}
	e.log.Append(entry)
	e.publishQueueLocked()
	e.pub.PublishLog(entry)
	// Head selection skips failed mutations, so the loop moves on.
}

// handleOfflineLocked keeps the mutation pending without charging its retry
// budget and pauses the loop until a network-recovery signal or TriggerSync.
func (e *Engine) handleOfflineLocked(ctx context.Context, m *models.Mutation) {
	m.Status = models.MutationPending
	if err := e.store.Save(ctx, m); err != nil {
		e.logger.Error().Err(err).Str("id", m.ID).Msg("persist pending mutation")
	}
	e.paused = true
	e.processing = false
	e.publishQueueLocked()
	e.pub.PublishStatus(models.StatusOffline)
}

// handleRetryableLocked schedules a resume after 2^attempt * base and stops
// the loop until the timer fires. The timer handle is the only way the loop
// can be re-entered, and every competing API call cancels it first.
func (e *Engine) handleRetryableLocked(ctx context.Context, m *models.Mutation, cause error) {
	m.Attempt++
	msg := cause.Error()
	m.LastError = &msg
	m.Status = models.MutationPending
	if err := e.store.Save(ctx, m); err != nil {
		e.logger.Error().Err(err).Str("id", m.ID).Msg("persist retry state")
	}

	delay := e.backoffDelay(m.Attempt)
	e.logger.Info().
		Str("id", m.ID).
		Int("attempt", m.Attempt).
		Dur("delay", delay).
		Msg("scheduling retry")

	e.retryTimer = time.AfterFunc(delay, e.onBackoffFired)
	e.processing = false
	e.publishQueueLocked()
	e.pub.PublishStatus(models.StatusSaving)
}

func (e *Engine) handleFatalLocked(ctx context.Context, m *models.Mutation, cause error) {
	msg := cause.Error()
	m.Status = models.MutationFailed
	m.LastError = &msg
	if err := e.store.Save(ctx, m); err != nil {
		e.logger.Error().Err(err).Str("id", m.ID).Msg("persist failed mutation")
	}

	entry := models.LogEntry{
		MutationID: m.ID,
		Kind:       m.Kind,
		Timestamp:  time.Now(),
		Status:     models.LogFailed,
		Details:    msg,
	}
	e.log.Append(entry)

	e.paused = true
	e.processing = false
	e.publishQueueLocked()
	e.pub.PublishLog(entry)
	e.pub.PublishStatus(models.StatusError)
}

func (e *Engine) onBackoffFired() {
	e.mu.Lock()
	e.retryTimer = nil
	e.mu.Unlock()

	e.TriggerSync()
}

// backoffDelay is 2^attempt * base, clamped to the configured maximum.
func (e *Engine) backoffDelay(attempt int) time.Duration {
	delay := e.opts.BackoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= e.opts.BackoffMax {
			return e.opts.BackoffMax
		}
	}
	return delay
}

// interruptBackoffLocked stops a pending retry timer. Must run before any
// competing state transition so two resumptions of the loop cannot race.
func (e *Engine) interruptBackoffLocked() bool {
	if e.retryTimer == nil {
		return false
	}
	e.retryTimer.Stop()
	e.retryTimer = nil
	return true
}

// headIndexLocked picks the first mutation that is not terminally failed.
// Failed mutations stay visible in the queue until retried or discarded.
func (e *Engine) headIndexLocked() int {
	for i, m := range e.queue {
		if m.Status != models.MutationFailed {
			return i
		}
	}
	return -1
}

func (e *Engine) findLocked(id string) *models.Mutation {
	for _, m := range e.queue {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (e *Engine) removeLocked(id string) {
	for i, m := range e.queue {
		if m.ID == id {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return
		}
	}
}

func (e *Engine) snapshotLocked() []models.Mutation {
	out := make([]models.Mutation, 0, len(e.queue))
	for _, m := range e.queue {
		out = append(out, m.Clone())
	}
	return out
}

func (e *Engine) publishQueueLocked() {
	e.pub.PublishQueue(e.snapshotLocked())
}
