package netmon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Prober reports whether the backend is reachable right now.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor polls backend reachability and fires edge-triggered callbacks:
// onUp when connectivity returns, onDown when it is lost. The first
// successful probe after startup also fires onUp so a queue that filled up
// while offline starts draining.
type Monitor struct {
	prober   Prober
	interval time.Duration
	onUp     func()
	onDown   func()
	logger   zerolog.Logger
	online   atomic.Bool
	seeded   atomic.Bool
}

func New(prober Prober, interval time.Duration, onUp, onDown func(), logger *zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		onUp:     onUp,
		onDown:   onDown,
		logger:   logger.With().Str("component", "netmon").Logger(),
	}
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Start probes until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info().Dur("interval", m.interval).Msg("connectivity monitor started")
	defer m.logger.Info().Msg("connectivity monitor stopped")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.prober.Ping(probeCtx)
	nowOnline := err == nil

	wasOnline := m.online.Swap(nowOnline)
	first := !m.seeded.Swap(true)

	switch {
	case nowOnline && (first || !wasOnline):
		m.logger.Info().Msg("backend reachable")
		if m.onUp != nil {
			m.onUp()
		}
	case !nowOnline && (first || wasOnline):
		m.logger.Warn().Err(err).Msg("backend unreachable")
		if m.onDown != nil {
			m.onDown()
		}
	}
}
