package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakePinger struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (f *fakePinger) Ping(context.Context) error {
	f.calls.Add(1)
	if f.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Checking", Checking.String())
	assert.Equal(t, "Connected", Connected.String())
	assert.Equal(t, "Disconnected", Disconnected.String())
}

func TestCheck(t *testing.T) {
	p := &fakePinger{}
	reg := prometheus.NewRegistry()
	m := NewMonitor(p, time.Second, reg)
	assert.Equal(t, Checking, m.Status())

	assert.Equal(t, Connected, m.Check(context.Background()))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.up))
	assert.False(t, m.LastChecked().IsZero())

	p.fail.Store(true)
	assert.Equal(t, Disconnected, m.Check(context.Background()))
	assert.Equal(t, Disconnected, m.Status())
	assert.Equal(t, float64(0), promtest.ToFloat64(m.up))
}

func TestStartStopPolls(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &fakePinger{}
	m := NewMonitor(p, 10*time.Millisecond, nil)
	m.Start(context.Background())
	m.Start(context.Background())

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Connected, m.Status())

	p.fail.Store(true)
	require.Eventually(t, func() bool { return m.Status() == Disconnected }, time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop()
	calls := p.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, p.calls.Load())
}
