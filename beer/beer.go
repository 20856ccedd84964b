// Package beer implements the fermentation-curve strategies that decide
// whether a Manager's relays should energize: SetPoint (dead-band on a
// fixed target) and LinearRamp (dead-band on a gravity-interpolated
// target). Both are specified as tagged variants of one capability set
// rather than a class hierarchy.
package beer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prairiedogbeer/fermenator/conv"
	"github.com/prairiedogbeer/fermenator/datasource"
	"github.com/prairiedogbeer/fermenator/ferr"
	"github.com/prairiedogbeer/fermenator/sample"
)

// Freshness classifies how recent the sample behind a decision was.
type Freshness int

const (
	Fresh Freshness = iota
	Stale
	Missing
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "missing"
	}
}

// Snapshot is the reading pair behind a Beer's most recent decision,
// exposed for audit logging. HasTemperature/HasGravity are false when the
// corresponding reading was unavailable.
type Snapshot struct {
	Temperature    float64
	HasTemperature bool
	Gravity        float64
	HasGravity     bool
}

// Beer decides whether its fermenter currently needs heating or cooling.
// Both queries are safe to call even when the backing DataSource has no
// data: they degrade to false rather than erroring.
type Beer interface {
	Name() string
	RequiresHeating(ctx context.Context) bool
	RequiresCooling(ctx context.Context) bool
	CheckFreshness(ctx context.Context) Freshness
	Snapshot(ctx context.Context) Snapshot
}

// DefaultDataAgeWarningTime is used when a beer's config omits
// data_age_warning_time.
const DefaultDataAgeWarningTime = 30 * time.Minute

// DefaultTolerance is used when a beer's config omits tolerance.
const DefaultTolerance = 0.5

// base carries the fields and datasource plumbing common to every variant.
type base struct {
	name               string
	identifier         string
	datasource         datasource.GravityTemperatureSource
	temperatureUnit    sample.TempUnit
	gravityUnit        sample.GravityUnit
	tolerance          float64
	dataAgeWarningTime time.Duration
	log                *logrus.Entry

	lastFreshness Freshness
}

func newBase(name, identifier string, ds datasource.GravityTemperatureSource,
	tempUnit sample.TempUnit, gravUnit sample.GravityUnit, tolerance float64,
	dataAgeWarningTime time.Duration, log *logrus.Entry) base {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if dataAgeWarningTime <= 0 {
		dataAgeWarningTime = DefaultDataAgeWarningTime
	}
	return base{
		name:               name,
		identifier:         identifier,
		datasource:         ds,
		temperatureUnit:    tempUnit,
		gravityUnit:        gravUnit,
		tolerance:          tolerance,
		dataAgeWarningTime: dataAgeWarningTime,
		log:                log.WithFields(logrus.Fields{"component": "beer", "name": name}),
	}
}

func (b *base) Name() string { return b.name }

// normalizedTemperature fetches the current temperature reading and
// converts it into the beer's declared unit.
func (b *base) normalizedTemperature(ctx context.Context) (float64, Freshness, error) {
	smp, err := b.datasource.GetTemperature(ctx, b.identifier)
	if err != nil {
		return 0, Missing, ferr.Wrap(ferr.DataSourceRead, b.name, err, "get temperature failed")
	}
	value := smp.Value
	if smp.TempUnit() != b.temperatureUnit {
		if b.temperatureUnit == sample.Fahrenheit {
			value = conv.CToF(value)
		} else {
			value = conv.FToC(value)
		}
	}
	fresh := b.assessFreshness(smp.Age(time.Now()))
	return value, fresh, nil
}

// normalizedGravity fetches the current gravity reading and converts it
// into the beer's declared unit.
func (b *base) normalizedGravity(ctx context.Context) (float64, Freshness, error) {
	smp, err := b.datasource.GetGravity(ctx, b.identifier)
	if err != nil {
		return 0, Missing, ferr.Wrap(ferr.DataSourceRead, b.name, err, "get gravity failed")
	}
	value := smp.Value
	if smp.GravityUnit() != b.gravityUnit {
		if b.gravityUnit == sample.SG {
			value = conv.PlatoToSG(value)
		} else {
			value = conv.SGToPlato(value)
		}
	}
	fresh := b.assessFreshness(smp.Age(time.Now()))
	return value, fresh, nil
}

func (b *base) assessFreshness(age time.Duration) Freshness {
	fresh := Fresh
	if age > b.dataAgeWarningTime {
		fresh = Stale
		// Throttled: only log on the transition into staleness, not on
		// every tick spent stale.
		if b.lastFreshness != Stale {
			b.log.WithFields(logrus.Fields{"event": ferr.EventStaleData}).
				Warnf("newest sample is %s old, exceeding warning threshold of %s", age, b.dataAgeWarningTime)
		}
	}
	b.lastFreshness = fresh
	return fresh
}
