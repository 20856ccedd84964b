package relay

import "sync"

// Software is the in-memory test double for Relay: it keeps logical state
// only, accepting on()/off() regardless of configuration. Extra config keys
// are never even looked at, which is how it satisfies "accepted and
// ignored" for free.
type Software struct {
	name string
	cfg  Config

	mu sync.Mutex
	on bool
}

// NewSoftware builds a Software relay. cfg is retained only so tests can
// assert on duty-cycle configuration; Software never actually duty-cycles.
func NewSoftware(name string, cfg Config) *Software {
	return &Software{name: name, cfg: cfg}
}

func (s *Software) Name() string { return s.name }

func (s *Software) On() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.on = true
	return nil
}

func (s *Software) Off() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.on = false
	return nil
}

func (s *Software) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

func (s *Software) IsOff() bool {
	return !s.IsOn()
}

func (s *Software) Shutdown() error {
	return s.Off()
}
