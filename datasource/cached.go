package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/IvanMalison/bcast"
	"github.com/eapache/channels"

	"github.com/prairiedogbeer/fermenator/sample"
)

// Cached wraps a Source, de-duplicating concurrent reads for the same path
// within window: the first caller triggers the upstream Get, and every
// other caller that arrives before it completes joins a bcast.Group and
// receives the same result instead of issuing its own request, keeping N
// Beers sharing one upstream DataSource from generating N concurrent
// reads.
type Cached struct {
	upstream Source
	window   time.Duration

	mu        sync.Mutex
	cache     map[string]*cacheEntry
	observers *bcast.Group
}

type fetchResult struct {
	samples []sample.Sample
	err     error
}

type cacheEntry struct {
	fetchedAt time.Time
	result    fetchResult
	inflight  *bcast.Group // non-nil while a fetch for this key is underway
}

// NewCached wraps upstream with a dedup window.
func NewCached(upstream Source, window time.Duration) *Cached {
	observers := bcast.NewGroup()
	go observers.Broadcast(0)
	return &Cached{upstream: upstream, window: window, cache: make(map[string]*cacheEntry), observers: observers}
}

// Subscribe returns a channel that receives every sample slice this Cached
// fetches from upstream, successful fetches only. Intended for diagnostics
// tooling that wants to observe cache refreshes without polling Get itself.
func (c *Cached) Subscribe() <-chan []sample.Sample {
	ch := make(chan []sample.Sample)
	channels.Unwrap(channels.Wrap(c.observers.Join().Read), ch)
	return ch
}

func (c *Cached) Name() string { return c.upstream.Name() }

func (c *Cached) Get(ctx context.Context, path Path, limit int) ([]sample.Sample, error) {
	k := key(path)

	c.mu.Lock()
	entry, ok := c.cache[k]
	now := time.Now()
	if ok && entry.inflight == nil && now.Sub(entry.fetchedAt) < c.window {
		c.mu.Unlock()
		return entry.result.samples, entry.result.err
	}
	if ok && entry.inflight != nil {
		member := entry.inflight.Join()
		c.mu.Unlock()
		res := (<-member.Read).(fetchResult)
		return res.samples, res.err
	}

	group := bcast.NewGroup()
	go group.Broadcast(0)
	c.cache[k] = &cacheEntry{inflight: group}
	c.mu.Unlock()

	samples, err := c.upstream.Get(ctx, path, limit)
	res := fetchResult{samples: samples, err: err}

	c.mu.Lock()
	c.cache[k] = &cacheEntry{fetchedAt: time.Now(), result: res}
	c.mu.Unlock()

	group.Send(res)
	group.Close()
	if err == nil {
		c.observers.Send(samples)
	}
	return samples, err
}

func (c *Cached) Set(ctx context.Context, path Path, value sample.Sample) error {
	return c.upstream.Set(ctx, path, value)
}

func (c *Cached) Close() error {
	c.observers.Close()
	return c.upstream.Close()
}

// CachedGravityTemperature decorates a GravityTemperatureSource, applying
// the Cached dedup behavior to bulk Get reads while leaving the already
// cheap single-sample GetGravity/GetTemperature lookups passing straight
// through to upstream.
type CachedGravityTemperature struct {
	*Cached
	upstream GravityTemperatureSource
}

// WrapGravityTemperature builds a CachedGravityTemperature around upstream.
func WrapGravityTemperature(upstream GravityTemperatureSource, window time.Duration) *CachedGravityTemperature {
	return &CachedGravityTemperature{Cached: NewCached(upstream, window), upstream: upstream}
}

func (c *CachedGravityTemperature) GetGravity(ctx context.Context, identifier string) (sample.Sample, error) {
	return c.upstream.GetGravity(ctx, identifier)
}

func (c *CachedGravityTemperature) GetTemperature(ctx context.Context, identifier string) (sample.Sample, error) {
	return c.upstream.GetTemperature(ctx, identifier)
}
