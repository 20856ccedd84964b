// Package supervisor owns the whole object graph (Relays, DataSources,
// Beers, Managers) described by a ConfigStore, and drives its lifecycle:
// assemble, run, reassemble on change, disassemble on shutdown.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prairiedogbeer/fermenator/beer"
	"github.com/prairiedogbeer/fermenator/configstore"
	"github.com/prairiedogbeer/fermenator/datasource"
	"github.com/prairiedogbeer/fermenator/ferr"
	"github.com/prairiedogbeer/fermenator/flightrecorder"
	"github.com/prairiedogbeer/fermenator/manager"
	"github.com/prairiedogbeer/fermenator/relay"
)

// DefaultManagerStopTimeout bounds how long Disassemble/Reassemble wait
// for each Manager to acknowledge a stop request.
const DefaultManagerStopTimeout = manager.DefaultStopTimeout

// graph is the full set of live objects built from one ConfigSpec.
type graph struct {
	version     string
	relays      map[string]relay.Relay
	dataSources map[string]datasource.GravityTemperatureSource
	beers       map[string]beer.Beer
	managers    map[string]*manager.Manager
}

// Supervisor is the sole owner of the object graph; Managers and Beers
// hold only non-owning references into it.
type Supervisor struct {
	store       configstore.Store
	log         *logrus.Entry
	stopTimeout time.Duration
	recorder    *flightrecorder.Recorder

	mu      sync.Mutex
	current *graph
}

// New builds a Supervisor around store. stopTimeout<=0 falls back to
// DefaultManagerStopTimeout. rec may be nil, in which case Managers run
// without tick auditing; its lifecycle belongs to the caller, not the
// Supervisor, so it survives across Reassemble and is never closed here.
func New(store configstore.Store, log *logrus.Entry, stopTimeout time.Duration, rec *flightrecorder.Recorder) *Supervisor {
	if stopTimeout <= 0 {
		stopTimeout = DefaultManagerStopTimeout
	}
	return &Supervisor{
		store:       store,
		log:         log.WithFields(logrus.Fields{"component": "supervisor", "name": store.Name()}),
		stopTimeout: stopTimeout,
		recorder:    rec,
	}
}

// buildGraph loads the current spec, validates it, and constructs every
// object in dependency order (relays, datasources, beers, managers)
// without touching s.current or starting anything, so a failed build
// never disturbs whatever graph is already running.
func (s *Supervisor) buildGraph(ctx context.Context) (*graph, error) {
	spec, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	relays, err := buildRelays(spec, s.log)
	if err != nil {
		return nil, err
	}
	dataSources, err := buildDataSources(spec, s.log)
	if err != nil {
		return nil, err
	}
	beers, err := buildBeers(spec, dataSources, s.log)
	if err != nil {
		return nil, err
	}
	managers, err := buildManagers(spec, beers, relays, s.recorder, s.log)
	if err != nil {
		return nil, err
	}

	return &graph{version: spec.Version, relays: relays, dataSources: dataSources, beers: beers, managers: managers}, nil
}

// Assemble builds and starts a fresh graph. Must only be called when no
// graph is currently running (startup); use Reassemble to swap a live one.
func (s *Supervisor) Assemble(ctx context.Context) error {
	g, err := s.buildGraph(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = g
	s.mu.Unlock()

	for name, m := range g.managers {
		s.log.WithField("manager", name).Debug("starting manager")
		m.Start(ctx)
	}
	s.log.Infof("assembled %d relays, %d datasources, %d beers, %d managers",
		len(g.relays), len(g.dataSources), len(g.beers), len(g.managers))
	return nil
}

// teardown stops every Manager (bounded by stopTimeout; on timeout forces
// relays off directly and logs), forces every Relay off, and releases
// every DataSource. Always leaves s.current nil.
func (s *Supervisor) teardown() {
	s.mu.Lock()
	g := s.current
	s.current = nil
	s.mu.Unlock()

	if g == nil {
		return
	}

	for name, m := range g.managers {
		if err := m.Stop(s.stopTimeout); err != nil {
			s.log.WithField("manager", name).WithError(err).
				Error("manager did not stop within timeout, forcing relays off directly")
		}
	}
	for name, r := range g.relays {
		if err := r.Shutdown(); err != nil {
			s.log.WithField("relay", name).WithError(err).Error("relay shutdown failed")
		}
	}
	for name, ds := range g.dataSources {
		if err := ds.Close(); err != nil {
			s.log.WithField("datasource", name).WithError(err).Error("datasource close failed")
		}
	}
}

// Disassemble stops all managers, forces all relays off, releases all
// datasources. Safe to call with no graph assembled.
func (s *Supervisor) Disassemble() {
	s.log.Info("disassembling")
	s.teardown()
}

// Reassemble builds a fresh graph from the current spec before touching
// anything already running. If the fresh spec fails validation or
// construction, the previous graph is left running untouched and the
// error is returned, so the Supervisor's run loop can keep polling and
// retry on the next change check. Only once the new graph builds
// successfully does the old one get torn down and the new one started;
// no ticks fire during that brief swap.
func (s *Supervisor) Reassemble(ctx context.Context) error {
	s.log.Info("reassembling")

	g, err := s.buildGraph(ctx)
	if err != nil {
		return err
	}

	s.teardown()

	s.mu.Lock()
	s.current = g
	s.mu.Unlock()

	for name, m := range g.managers {
		s.log.WithField("manager", name).Debug("starting manager")
		m.Start(ctx)
	}
	return nil
}

// Run executes the supervisory loop: assemble, then poll HasChanged every
// RefreshInterval, reassembling when it reports true, until ctx is
// cancelled, at which point it disassembles and returns.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Assemble(ctx); err != nil {
		return err
	}
	defer s.Disassemble()

	ticker := time.NewTicker(s.store.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changed, err := s.store.HasChanged(ctx)
			if err != nil {
				s.log.WithError(err).Error("change check failed, keeping current graph")
				continue
			}
			if !changed {
				continue
			}
			s.log.Info("detected configuration change")
			if err := s.Reassemble(ctx); err != nil {
				s.log.WithFields(logrus.Fields{"event": ferr.EventReassembleFail}).
					WithError(err).Error("reassemble failed, keeping the previous graph running")
			} else {
				s.log.WithFields(logrus.Fields{"event": ferr.EventReassembled}).Info("reassembled")
			}
		}
	}
}
