// Package health polls the inventory backend for reachability.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

type Status int

const (
	Checking Status = iota
	Connected
	Disconnected
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	default:
		return "Checking"
	}
}

// Pinger probes the backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor runs the single background reachability loop.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	up       prometheus.Gauge

	mu      sync.RWMutex
	status  Status
	checked time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a stopped monitor. A nil registerer skips the gauge.
func NewMonitor(p Pinger, interval time.Duration, reg prometheus.Registerer) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	m := &Monitor{
		pinger:   p,
		interval: interval,
		timeout:  interval,
		up: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backend_up",
			Help: "1 when the inventory backend answered the last probe",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.up)
	}
	return m
}

// Start probes immediately and then every interval until Stop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Check(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Check runs one probe and records the result.
func (m *Monitor) Check(ctx context.Context) Status {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	status := Connected
	if err := m.pinger.Ping(pctx); err != nil {
		if ctx.Err() != nil {
			return m.Status()
		}
		status = Disconnected
		log.Debug().Err(err).Msg("backend probe failed")
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.checked = time.Now()
	m.mu.Unlock()

	if status == Connected {
		m.up.Set(1)
	} else {
		m.up.Set(0)
	}
	if prev != status && prev != Checking {
		log.Warn().Str("from", prev.String()).Str("to", status.String()).Msg("backend reachability changed")
	}
	return status
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastChecked is the time of the last completed probe.
func (m *Monitor) LastChecked() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checked
}
