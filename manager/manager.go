// Package manager implements the per-beer control loop: one goroutine per
// Manager, polling its Beer on a fixed period and driving its two Relays,
// with no state shared across Managers.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prairiedogbeer/fermenator/beer"
	"github.com/prairiedogbeer/fermenator/ferr"
	"github.com/prairiedogbeer/fermenator/flightrecorder"
	"github.com/prairiedogbeer/fermenator/relay"
)

// State is a Manager's position in its state machine:
// idle -> polling -> actuating -> sleeping -> polling ..., plus
// stopping -> stopped.
type State int

const (
	Idle State = iota
	Polling
	Actuating
	Sleeping
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Actuating:
		return "actuating"
	case Sleeping:
		return "sleeping"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultStopTimeout bounds how long the Supervisor waits for a Manager to
// acknowledge a stop request before forcing relays off itself.
const DefaultStopTimeout = 5 * time.Second

// Config configures a Manager. HeatingRelay/CoolingRelay may be nil,
// meaning that side is unconfigured and is always commanded off. Recorder
// may be nil, meaning ticks are not audited.
type Config struct {
	Name             string
	Beer             beer.Beer
	HeatingRelay     relay.Relay
	CoolingRelay     relay.Relay
	ActiveHeating    bool
	ActiveCooling    bool
	PollingFrequency time.Duration
	Recorder         *flightrecorder.Recorder
}

// Manager is a running controller bound to exactly one Beer and 0-2 Relays.
type Manager struct {
	cfg Config
	log *logrus.Entry

	mu    sync.Mutex
	state State

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Manager in the idle state. PollingFrequency must be >0; the
// spec leaves no core default, so New panics rather than silently picking
// one, forcing the ConfigStore layer to supply a sane value at assemble.
func New(cfg Config, log *logrus.Entry) *Manager {
	if cfg.PollingFrequency <= 0 {
		panic("manager: PollingFrequency must be > 0")
	}
	return &Manager{
		cfg:   cfg,
		log:   log.WithFields(logrus.Fields{"component": "manager", "name": cfg.Name}),
		state: Idle,
	}
}

func (m *Manager) Name() string { return m.cfg.Name }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Start launches the Manager's control loop goroutine. It returns
// immediately; the loop runs until Stop is called or ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.loop(ctx)
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.doneCh)
	defer func() {
		if r := recover(); r != nil {
			m.shutdown()
			panic(r)
		}
	}()
	for {
		select {
		case <-m.stopCh:
			m.shutdown()
			return
		case <-ctx.Done():
			m.shutdown()
			return
		default:
		}

		start := time.Now()
		m.tick(ctx)
		elapsed := time.Since(start)

		sleepFor := m.cfg.PollingFrequency - elapsed
		if sleepFor < 0 {
			sleepFor = 0
		}
		m.setState(Sleeping)

		select {
		case <-m.stopCh:
			m.shutdown()
			return
		case <-ctx.Done():
			m.shutdown()
			return
		case <-time.After(sleepFor):
		}
	}
}

// tick implements the five-step decision cycle of one polling interval.
func (m *Manager) tick(ctx context.Context) {
	m.setState(Polling)

	heating := m.cfg.Beer.RequiresHeating(ctx)
	cooling := m.cfg.Beer.RequiresCooling(ctx)
	m.record(ctx, heating, cooling)

	m.setState(Actuating)

	if heating && cooling {
		m.log.WithFields(logrus.Fields{"event": ferr.EventBeerContradict}).
			Error("beer reported both requires_heating and requires_cooling; forcing both relays off")
		m.commandRelay(m.cfg.HeatingRelay, false)
		m.commandRelay(m.cfg.CoolingRelay, false)
		return
	}

	m.actuate(m.cfg.HeatingRelay, m.cfg.ActiveHeating, heating)
	m.actuate(m.cfg.CoolingRelay, m.cfg.ActiveCooling, cooling)
}

// record persists this tick's decision if a flight recorder is configured.
func (m *Manager) record(ctx context.Context, heating, cooling bool) {
	if m.cfg.Recorder == nil {
		return
	}
	snap := m.cfg.Beer.Snapshot(ctx)
	t := flightrecorder.Tick{
		Manager:         m.cfg.Name,
		Beer:            m.cfg.Beer.Name(),
		RequiresHeating: heating,
		RequiresCooling: cooling,
		Temperature:     snap.Temperature,
		HasTemperature:  snap.HasTemperature,
		Gravity:         snap.Gravity,
		HasGravity:      snap.HasGravity,
		RecordedAt:      time.Now(),
	}
	if err := m.cfg.Recorder.Record(t); err != nil {
		m.log.WithFields(logrus.Fields{"event": ferr.EventFlightRecorderFault}).
			WithError(err).Warn("failed to record tick")
	}
}

func (m *Manager) actuate(r relay.Relay, active, required bool) {
	if !active || r == nil {
		m.commandRelay(r, false)
		return
	}
	m.commandRelay(r, required)
}

func (m *Manager) commandRelay(r relay.Relay, on bool) {
	if r == nil {
		return
	}
	var err error
	if on {
		err = r.On()
	} else {
		err = r.Off()
	}
	if err != nil {
		m.log.WithFields(logrus.Fields{"event": ferr.EventRelayFault}).
			Errorf("relay %s command failed, treating as off and continuing: %s", r.Name(), err)
	}
}

// shutdown forces both relays off. Called from the loop on any exit path:
// normal stop, external cancellation, or a panic escaping tick (caught by
// a deferred recover in loop and re-raised once the relays are off).
func (m *Manager) shutdown() {
	m.setState(Stopping)
	m.commandRelay(m.cfg.HeatingRelay, false)
	m.commandRelay(m.cfg.CoolingRelay, false)
	m.setState(Stopped)
}

// Stop requests the Manager stop and blocks until it acknowledges or
// timeout elapses, whichever comes first. Returns an error on timeout so
// the Supervisor knows to force relays off itself.
func (m *Manager) Stop(timeout time.Duration) error {
	if m.stopCh == nil {
		return nil // never started
	}
	select {
	case <-m.stopCh:
		// already stopping
	default:
		close(m.stopCh)
	}
	select {
	case <-m.doneCh:
		return nil
	case <-time.After(timeout):
		return ferr.New(ferr.RelayActuation, m.cfg.Name, "manager did not acknowledge stop within timeout")
	}
}
