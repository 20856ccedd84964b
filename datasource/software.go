package datasource

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/prairiedogbeer/fermenator/ferr"
	"github.com/prairiedogbeer/fermenator/sample"
)

// Software is the in-memory DataSource test double: a manually-fed,
// newest-first sample store, the DataSource analogue of relay.Software.
// Used directly by Beer/Manager tests and by configstore.Inline-driven
// local deployments that have nothing remote to talk to.
type Software struct {
	name string

	mu      sync.Mutex
	series  map[string][]sample.Sample
	gravity map[string]sample.Sample
	temp    map[string]sample.Sample
}

// NewSoftware builds an empty Software datasource.
func NewSoftware(name string) *Software {
	return &Software{
		name:    name,
		series:  make(map[string][]sample.Sample),
		gravity: make(map[string]sample.Sample),
		temp:    make(map[string]sample.Sample),
	}
}

func (s *Software) Name() string { return s.name }

func key(p Path) string { return strings.Join(p, "/") }

// Feed appends a sample under path, keeping the series sorted newest-first.
// Test code calls this to seed readings before exercising a Beer.
func (s *Software) Feed(path Path, smp sample.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(path)
	s.series[k] = append(s.series[k], smp)
	sort.Slice(s.series[k], func(i, j int) bool {
		return s.series[k][i].Timestamp.After(s.series[k][j].Timestamp)
	})
}

// SetGravity seeds the most recent gravity reading for identifier, used by
// GetGravity.
func (s *Software) SetGravity(identifier string, smp sample.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gravity[identifier] = smp
}

// SetTemperature seeds the most recent temperature reading for identifier,
// used by GetTemperature.
func (s *Software) SetTemperature(identifier string, smp sample.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temp[identifier] = smp
}

// ClearGravity removes any seeded gravity reading, simulating missing data.
func (s *Software) ClearGravity(identifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gravity, identifier)
}

// ClearTemperature removes any seeded temperature reading, simulating
// missing data.
func (s *Software) ClearTemperature(identifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.temp, identifier)
}

func (s *Software) Get(_ context.Context, path Path, limit int) ([]sample.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series := s.series[key(path)]
	if limit <= 0 || limit > len(series) {
		limit = len(series)
	}
	out := make([]sample.Sample, limit)
	copy(out, series[:limit])
	return out, nil
}

func (s *Software) GetGravity(_ context.Context, identifier string) (sample.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	smp, ok := s.gravity[identifier]
	if !ok {
		return sample.Sample{}, ferr.New(ferr.DataSourceRead, s.name, "no gravity reading for "+identifier)
	}
	return smp, nil
}

func (s *Software) GetTemperature(_ context.Context, identifier string) (sample.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	smp, ok := s.temp[identifier]
	if !ok {
		return sample.Sample{}, ferr.New(ferr.DataSourceRead, s.name, "no temperature reading for "+identifier)
	}
	return smp, nil
}

func (s *Software) Set(context.Context, Path, sample.Sample) error {
	return ferr.New(ferr.NotImplemented, s.name, "Software datasource is read-only")
}

func (s *Software) Close() error { return nil }
