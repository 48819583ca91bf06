package netmon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyProber returns the scripted results in order, then repeats the last.
type flakyProber struct {
	mu      sync.Mutex
	results []error
}

func (p *flakyProber) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.results) == 0 {
		return nil
	}
	err := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return err
}

func waitForCount(t *testing.T, c *atomic.Int32, want int32, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.Load() >= want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s (have %d, want %d)", msg, c.Load(), want)
}

func TestMonitorFiresOnUpAfterFirstSuccessfulProbe(t *testing.T) {
	var ups, downs atomic.Int32
	prober := &flakyProber{results: []error{nil}}
	logger := zerolog.Nop()

	m := New(prober, 5*time.Millisecond, func() { ups.Add(1) }, func() { downs.Add(1) }, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	waitForCount(t, &ups, 1, "initial onUp")
	assert.True(t, m.Online())
	assert.Equal(t, int32(0), downs.Load())
}

func TestMonitorIsEdgeTriggered(t *testing.T) {
	var ups, downs atomic.Int32
	down := errors.New("dial tcp: connection refused")
	// up, up, down, down, up, then stable up.
	prober := &flakyProber{results: []error{nil, nil, down, down, nil}}
	logger := zerolog.Nop()

	m := New(prober, 5*time.Millisecond, func() { ups.Add(1) }, func() { downs.Add(1) }, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	waitForCount(t, &downs, 1, "onDown edge")
	waitForCount(t, &ups, 2, "onUp edge after recovery")

	// Repeated identical states must not refire.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), ups.Load())
	assert.Equal(t, int32(1), downs.Load())
	assert.True(t, m.Online())
}

func TestMonitorStartsOfflineWhenBackendUnreachable(t *testing.T) {
	var ups, downs atomic.Int32
	prober := &flakyProber{results: []error{errors.New("no route to host")}}
	logger := zerolog.Nop()

	m := New(prober, 5*time.Millisecond, func() { ups.Add(1) }, func() { downs.Add(1) }, &logger)
	require.False(t, m.Online())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	waitForCount(t, &downs, 1, "initial onDown")
	assert.False(t, m.Online())
	assert.Equal(t, int32(0), ups.Load())
}

func TestMonitorStopsWithContext(t *testing.T) {
	prober := &flakyProber{}
	logger := zerolog.Nop()
	m := New(prober, time.Millisecond, nil, nil, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after context cancellation")
	}
}
