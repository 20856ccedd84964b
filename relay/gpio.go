package relay

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prairiedogbeer/fermenator/ferr"
)

// digitalPin is the minimal surface GPIO needs from a hardware pin. The real
// implementation is backed by embd; gpio_rpi.go and gpio_unsupported.go
// provide platform-specific ways to obtain one, following the same
// real/sim split as the hardware abstraction this relay descends from.
type digitalPin interface {
	Write(energized bool) error
	Close() error
}

// GPIO drives a digital output pin. With DutyCycle in (0,1) it launches an
// internal ticker that alternates the pin between energized and
// de-energized for as long as the relay is logically on; with DutyCycle
// unset or 1 the pin is simply held energized. ActiveHigh controls which
// electrical level counts as "energized".
type GPIO struct {
	name string
	cfg  Config
	log  *logrus.Entry

	pin digitalPin

	mu        sync.Mutex
	on        bool
	believed  bool // false once a hardware write has failed; forced off until next On()
	stopCycle chan struct{}
	cycleDone chan struct{}
}

// NewGPIO opens the configured pin and returns a GPIO relay held
// de-energized.
func NewGPIO(name string, cfg Config, log *logrus.Entry) (*GPIO, error) {
	pin, err := openPin(cfg)
	if err != nil {
		return nil, ferr.Wrap(ferr.RelayActuation, name, err, "open pin failed")
	}
	return newGPIOWithPin(name, cfg, log, pin)
}

// newGPIOWithPin builds a GPIO relay around an already-opened pin, letting
// tests supply a fake pin without touching real hardware.
func newGPIOWithPin(name string, cfg Config, log *logrus.Entry, pin digitalPin) (*GPIO, error) {
	g := &GPIO{
		name:     name,
		cfg:      cfg,
		log:      log.WithFields(logrus.Fields{"component": "relay", "name": name}),
		pin:      pin,
		believed: true,
	}
	if err := g.writeLevel(false); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GPIO) Name() string { return g.name }

func (g *GPIO) writeLevel(energized bool) error {
	if err := g.pin.Write(energized); err != nil {
		g.log.WithFields(logrus.Fields{"event": ferr.EventRelayFault}).
			Errorf("pin write failed, treating relay as off: %s", err)
		g.believed = false
		return ferr.Wrap(ferr.RelayActuation, g.name, err, "pin write failed")
	}
	g.believed = true
	return nil
}

func (g *GPIO) On() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.on {
		if g.believed || g.stopCycle != nil {
			return nil
		}
		// A previous steady-on write failed: retry it.
		return g.writeLevel(true)
	}
	g.on = true
	duty := g.cfg.DutyCycle
	if duty > 0 && duty < 1 && g.cfg.CycleTime > 0 {
		g.stopCycle = make(chan struct{})
		g.cycleDone = make(chan struct{})
		go g.dutyCycleLoop(g.stopCycle, g.cycleDone)
		return nil
	}
	return g.writeLevel(true)
}

// dutyCycleLoop alternates the pin between energized and de-energized for
// as long as the relay is logically on.
func (g *GPIO) dutyCycleLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	onTime := time.Duration(float64(g.cfg.CycleTime) * g.cfg.DutyCycle)
	offTime := g.cfg.CycleTime - onTime
	energized := false
	timer := time.NewTimer(0)
	for {
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			energized = !energized
			g.mu.Lock()
			g.writeLevel(energized)
			g.mu.Unlock()
			if energized {
				timer.Reset(onTime)
			} else {
				timer.Reset(offTime)
			}
		}
	}
}

func (g *GPIO) Off() error {
	g.mu.Lock()
	if !g.on {
		g.mu.Unlock()
		return nil
	}
	g.on = false
	stop := g.stopCycle
	g.stopCycle = nil
	done := g.cycleDone
	g.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writeLevel(false)
}

func (g *GPIO) IsOn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.on && g.believed
}

func (g *GPIO) IsOff() bool {
	return !g.IsOn()
}

// Shutdown forces the pin de-energized and releases it. The spec requires
// this path to run on any process termination, normal or abnormal.
func (g *GPIO) Shutdown() error {
	err := g.Off()
	if closeErr := g.pin.Close(); closeErr != nil && err == nil {
		err = ferr.Wrap(ferr.RelayActuation, g.name, closeErr, "pin close failed")
	}
	return err
}
