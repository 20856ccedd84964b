package beer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prairiedogbeer/fermenator/datasource"
	"github.com/prairiedogbeer/fermenator/sample"
)

// SetPoint implements the dumb dead-band strategy: heat below set_point -
// tolerance, cool above set_point + tolerance, do nothing in between.
type SetPoint struct {
	base
	setPoint float64
}

// NewSetPoint builds a SetPoint beer. tolerance<=0 and dataAgeWarningTime<=0
// fall back to the spec's defaults (0.5 degrees, 1800s).
func NewSetPoint(name, identifier string, ds datasource.GravityTemperatureSource,
	tempUnit sample.TempUnit, setPoint, tolerance float64,
	dataAgeWarningTime time.Duration, log *logrus.Entry) *SetPoint {
	return &SetPoint{
		base:     newBase(name, identifier, ds, tempUnit, sample.Plato, tolerance, dataAgeWarningTime, log),
		setPoint: setPoint,
	}
}

func (s *SetPoint) RequiresHeating(ctx context.Context) bool {
	temp, _, err := s.normalizedTemperature(ctx)
	if err != nil {
		s.log.WithError(err).Debug("no temperature data, reporting no heating required")
		return false
	}
	return temp < s.setPoint-s.tolerance
}

func (s *SetPoint) RequiresCooling(ctx context.Context) bool {
	temp, _, err := s.normalizedTemperature(ctx)
	if err != nil {
		s.log.WithError(err).Debug("no temperature data, reporting no cooling required")
		return false
	}
	return temp > s.setPoint+s.tolerance
}

func (s *SetPoint) CheckFreshness(ctx context.Context) Freshness {
	_, freshness, err := s.normalizedTemperature(ctx)
	if err != nil {
		return Missing
	}
	return freshness
}

func (s *SetPoint) Snapshot(ctx context.Context) Snapshot {
	temp, _, err := s.normalizedTemperature(ctx)
	if err != nil {
		return Snapshot{}
	}
	return Snapshot{Temperature: temp, HasTemperature: true}
}
