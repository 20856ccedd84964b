package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prairiedogbeer/fermenator/sample"
)

// medianFilter holds the last window values and reports their median,
// denoising a stream of float64 DataSource readings before a Beer sees
// them.
type medianFilter struct {
	window []float64
	size   int
	last   time.Time
}

func newMedianFilter(size int) *medianFilter {
	if size < 1 {
		size = 1
	}
	return &medianFilter{size: size}
}

// add records v as a new reading unless ts matches the previous reading's
// timestamp (a re-read of an unchanged upstream sample), then returns the
// median of the window.
func (f *medianFilter) add(v float64, ts time.Time) float64 {
	if len(f.window) == 0 || !ts.Equal(f.last) {
		f.window = append(f.window, v)
		f.last = ts
	}
	if len(f.window) > f.size {
		f.window = f.window[len(f.window)-f.size:]
	}
	sorted := make([]float64, len(f.window))
	copy(sorted, f.window)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// Smoothed wraps a GravityTemperatureSource, median-filtering the last K
// readings per identifier before returning the newest value.
type Smoothed struct {
	upstream GravityTemperatureSource
	size     int

	mu      sync.Mutex
	gravity map[string]*medianFilter
	temp    map[string]*medianFilter
}

// NewSmoothed wraps upstream, filtering over a window of size readings.
func NewSmoothed(upstream GravityTemperatureSource, size int) *Smoothed {
	return &Smoothed{
		upstream: upstream,
		size:     size,
		gravity:  make(map[string]*medianFilter),
		temp:     make(map[string]*medianFilter),
	}
}

func (s *Smoothed) Name() string { return s.upstream.Name() }

func (s *Smoothed) Get(ctx context.Context, path Path, limit int) ([]sample.Sample, error) {
	return s.upstream.Get(ctx, path, limit)
}

func (s *Smoothed) GetGravity(ctx context.Context, identifier string) (sample.Sample, error) {
	smp, err := s.upstream.GetGravity(ctx, identifier)
	if err != nil {
		return smp, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.gravity[identifier]
	if !ok {
		f = newMedianFilter(s.size)
		s.gravity[identifier] = f
	}
	smp.Value = f.add(smp.Value, smp.Timestamp)
	return smp, nil
}

func (s *Smoothed) GetTemperature(ctx context.Context, identifier string) (sample.Sample, error) {
	smp, err := s.upstream.GetTemperature(ctx, identifier)
	if err != nil {
		return smp, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.temp[identifier]
	if !ok {
		f = newMedianFilter(s.size)
		s.temp[identifier] = f
	}
	smp.Value = f.add(smp.Value, smp.Timestamp)
	return smp, nil
}

func (s *Smoothed) Set(ctx context.Context, path Path, value sample.Sample) error {
	return s.upstream.Set(ctx, path, value)
}

func (s *Smoothed) Close() error {
	return s.upstream.Close()
}
