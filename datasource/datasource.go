// Package datasource implements the read-only, timestamped sample providers
// a Beer queries. Authentication, caching, pagination and rate limiting are
// concerns of the concrete implementations and never leak into Beer/Manager
// logic, per the contract each variant satisfies.
package datasource

import (
	"context"

	"github.com/prairiedogbeer/fermenator/sample"
)

// Path is a hierarchical key identifying a series of samples within a
// DataSource, e.g. {"brewery", "fermenter-3", "temperature"}.
type Path []string

// Source is the minimal DataSource contract: a finite, newest-first read
// over a hierarchical key.
type Source interface {
	Name() string
	// Get returns up to limit samples for path, newest first. limit<=0 means
	// "implementation default".
	Get(ctx context.Context, path Path, limit int) ([]sample.Sample, error)
	// Set is reserved; the core never calls it. Implementations may refuse.
	Set(ctx context.Context, path Path, value sample.Sample) error
	// Close releases any network/auth resource opened lazily on first read.
	Close() error
}

// GravityTemperatureSource is the optional specialization a Beer requires
// of its bound DataSource: direct, single-sample lookups by identifier.
// Any DataSource bound to a Beer must implement this interface or assemble
// rejects the binding.
type GravityTemperatureSource interface {
	Source
	GetGravity(ctx context.Context, identifier string) (sample.Sample, error)
	GetTemperature(ctx context.Context, identifier string) (sample.Sample, error)
}
