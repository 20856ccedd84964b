package relay

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("test", true)
}

func TestSoftwareRelayIdempotentAndIgnoresExtraConfig(t *testing.T) {
	r := NewSoftware("heat", Config{DutyCycle: 0.75, CycleTime: time.Minute, Pin: 999})
	assert.True(t, r.IsOff())
	require.NoError(t, r.On())
	require.NoError(t, r.On())
	assert.True(t, r.IsOn())
	require.NoError(t, r.Off())
	assert.True(t, r.IsOff())
	assert.Equal(t, "heat", r.Name())
}

// fakePin records every energize transition with a timestamp so tests can
// reconstruct total energized time.
type fakePin struct {
	mu          sync.Mutex
	transitions []transition
	closed      bool
	failWrites  bool
}

type transition struct {
	at        time.Time
	energized bool
}

func (p *fakePin) Write(energized bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWrites {
		return assert.AnError
	}
	p.transitions = append(p.transitions, transition{at: time.Now(), energized: energized})
	return nil
}

func (p *fakePin) Close() error {
	p.closed = true
	return nil
}

func (p *fakePin) energizedDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total time.Duration
	var last time.Time
	var lastEnergized bool
	for _, tr := range p.transitions {
		if lastEnergized && !last.IsZero() {
			total += tr.at.Sub(last)
		}
		last = tr.at
		lastEnergized = tr.energized
	}
	if lastEnergized {
		total += time.Since(last)
	}
	return total
}

// TestGPIODutyCycleTiming exercises spec scenario 7, scaled down 1000x so it
// runs in milliseconds: duty_cycle=0.5, held on, energized fraction should
// land at 50% of the elapsed window within one tick's slack.
func TestGPIODutyCycleTiming(t *testing.T) {
	pin := &fakePin{}
	g, err := newGPIOWithPin("heat", Config{
		DutyCycle: 0.5,
		CycleTime: 60 * time.Millisecond,
		Pin:       1,
	}, testLogger(), pin)
	require.NoError(t, err)

	require.NoError(t, g.On())
	time.Sleep(120 * time.Millisecond)
	require.NoError(t, g.Off())

	energized := pin.energizedDuration()
	assert.InDelta(t, 60*time.Millisecond, energized, float64(30*time.Millisecond))
}

func TestGPIOSteadyOnWithoutDutyCycle(t *testing.T) {
	pin := &fakePin{}
	g, err := newGPIOWithPin("cool", Config{Pin: 2}, testLogger(), pin)
	require.NoError(t, err)

	require.NoError(t, g.On())
	assert.True(t, g.IsOn())
	require.NoError(t, g.Off())
	assert.True(t, g.IsOff())
}

func TestGPIOShutdownForcesOffAndClosesPin(t *testing.T) {
	pin := &fakePin{}
	g, err := newGPIOWithPin("cool", Config{Pin: 3}, testLogger(), pin)
	require.NoError(t, err)

	require.NoError(t, g.On())
	require.NoError(t, g.Shutdown())
	assert.True(t, g.IsOff())
	assert.True(t, pin.closed)
}

func TestGPIOWriteFailureLatchesBelievedOff(t *testing.T) {
	pin := &fakePin{}
	g, err := newGPIOWithPin("cool", Config{Pin: 4}, testLogger(), pin)
	require.NoError(t, err)

	pin.failWrites = true
	err = g.On()
	assert.Error(t, err)
	assert.True(t, g.IsOff(), "a failed actuation must be treated as off")
}
