package beer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prairiedogbeer/fermenator/datasource"
	"github.com/prairiedogbeer/fermenator/ferr"
	"github.com/prairiedogbeer/fermenator/sample"
)

// LinearRamp interpolates its set point linearly between startSetPoint (at
// originalGravity) and endSetPoint (at finalGravity) based on the most
// recent gravity reading, then applies the SetPoint dead-band rule against
// that effective target.
type LinearRamp struct {
	base
	originalGravity float64
	finalGravity    float64
	startSetPoint   float64
	endSetPoint     float64
}

// NewLinearRamp builds a LinearRamp beer. originalGravity must differ from
// finalGravity (an assemble-time invariant, checked by the supervisor's
// buildBeers, not here).
func NewLinearRamp(name, identifier string, ds datasource.GravityTemperatureSource,
	tempUnit sample.TempUnit, gravUnit sample.GravityUnit,
	originalGravity, finalGravity, startSetPoint, endSetPoint, tolerance float64,
	dataAgeWarningTime time.Duration, log *logrus.Entry) *LinearRamp {
	return &LinearRamp{
		base:            newBase(name, identifier, ds, tempUnit, gravUnit, tolerance, dataAgeWarningTime, log),
		originalGravity: originalGravity,
		finalGravity:    finalGravity,
		startSetPoint:   startSetPoint,
		endSetPoint:     endSetPoint,
	}
}

// progress clamps gravity into [0,1] of the way from originalGravity to
// finalGravity, regardless of which of the two is numerically larger.
func (l *LinearRamp) progress(gravity float64) float64 {
	lo, hi := l.originalGravity, l.finalGravity
	if lo > hi {
		lo, hi = hi, lo
	}
	if gravity < lo {
		gravity = lo
	}
	if gravity > hi {
		gravity = hi
	}
	return (l.originalGravity - gravity) / (l.originalGravity - l.finalGravity)
}

// effectiveSetPoint returns the current target temperature at a given
// fermentation progress in [0,1].
func (l *LinearRamp) effectiveSetPoint(progress float64) float64 {
	return l.startSetPoint + progress*(l.endSetPoint-l.startSetPoint)
}

// currentTargets returns the current temperature and the effective set
// point, falling back to startSetPoint (the conservative pre-fermentation
// target) and emitting a warning if gravity data is unavailable. Returns
// ok=false only if temperature itself is unavailable, in which case the
// caller treats both heating and cooling as not required.
func (l *LinearRamp) currentTargets(ctx context.Context) (temp, target float64, ok bool) {
	temp, _, err := l.normalizedTemperature(ctx)
	if err != nil {
		l.log.WithError(err).Debug("no temperature data, reporting no heating/cooling required")
		return 0, 0, false
	}
	gravity, _, err := l.normalizedGravity(ctx)
	if err != nil {
		l.log.WithFields(logrus.Fields{"event": ferr.EventMissingData}).
			Warn("no gravity data, falling back to conservative start set point")
		return temp, l.startSetPoint, true
	}
	return temp, l.effectiveSetPoint(l.progress(gravity)), true
}

func (l *LinearRamp) RequiresHeating(ctx context.Context) bool {
	temp, target, ok := l.currentTargets(ctx)
	if !ok {
		return false
	}
	return temp < target-l.tolerance
}

func (l *LinearRamp) RequiresCooling(ctx context.Context) bool {
	temp, target, ok := l.currentTargets(ctx)
	if !ok {
		return false
	}
	return temp > target+l.tolerance
}

func (l *LinearRamp) CheckFreshness(ctx context.Context) Freshness {
	_, freshness, err := l.normalizedTemperature(ctx)
	if err != nil {
		return Missing
	}
	return freshness
}

func (l *LinearRamp) Snapshot(ctx context.Context) Snapshot {
	var snap Snapshot
	if temp, _, err := l.normalizedTemperature(ctx); err == nil {
		snap.Temperature = temp
		snap.HasTemperature = true
	}
	if gravity, _, err := l.normalizedGravity(ctx); err == nil {
		snap.Gravity = gravity
		snap.HasGravity = true
	}
	return snap
}
