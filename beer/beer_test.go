package beer

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/prairiedogbeer/fermenator/datasource"
	"github.com/prairiedogbeer/fermenator/sample"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("test", true)
}

func TestSetPointDeadBand(t *testing.T) {
	ds := datasource.NewSoftware("ds")
	ds.SetTemperature("PB0044", sample.NewTemperature(time.Now(), 20.3, sample.Celsius))
	b := NewSetPoint("French Saison", "PB0044", ds, sample.Celsius, 20.0, 0.5, 0, testLogger())

	assert.False(t, b.RequiresHeating(context.Background()))
	assert.False(t, b.RequiresCooling(context.Background()))
}

func TestSetPointHeat(t *testing.T) {
	ds := datasource.NewSoftware("ds")
	ds.SetTemperature("PB0044", sample.NewTemperature(time.Now(), 17.5, sample.Celsius))
	b := NewSetPoint("French Saison", "PB0044", ds, sample.Celsius, 18.0, 0.3, 0, testLogger())

	assert.True(t, b.RequiresHeating(context.Background()))
	assert.False(t, b.RequiresCooling(context.Background()))
}

func TestLinearRampMidway(t *testing.T) {
	ds := datasource.NewSoftware("ds")
	ds.SetTemperature("PB0044", sample.NewTemperature(time.Now(), 21.0, sample.Celsius))
	ds.SetGravity("PB0044", sample.NewGravity(time.Now(), 15.5, sample.Plato))
	b := NewLinearRamp("French Saison", "PB0044", ds, sample.Celsius, sample.Plato,
		27.0, 4.0, 18.0, 25.0, 0.3, 0, testLogger())

	assert.True(t, b.RequiresHeating(context.Background()))
	assert.False(t, b.RequiresCooling(context.Background()))
}

func TestLinearRampOverAttenuated(t *testing.T) {
	ds := datasource.NewSoftware("ds")
	ds.SetTemperature("PB0044", sample.NewTemperature(time.Now(), 26.0, sample.Celsius))
	ds.SetGravity("PB0044", sample.NewGravity(time.Now(), 2.0, sample.Plato))
	b := NewLinearRamp("French Saison", "PB0044", ds, sample.Celsius, sample.Plato,
		27.0, 4.0, 18.0, 25.0, 0.3, 0, testLogger())

	assert.False(t, b.RequiresHeating(context.Background()))
	assert.True(t, b.RequiresCooling(context.Background()))
}

func TestLinearRampGravityAtOriginalHoldsStartAndBelowFinalHoldsEnd(t *testing.T) {
	ds := datasource.NewSoftware("ds")
	ds.SetGravity("PB0044", sample.NewGravity(time.Now(), 27.0, sample.Plato))
	b := NewLinearRamp("French Saison", "PB0044", ds, sample.Celsius, sample.Plato,
		27.0, 4.0, 18.0, 25.0, 0.3, 0, testLogger())

	assert.Equal(t, 18.0, b.effectiveSetPoint(b.progress(27.0)))
	assert.Equal(t, 25.0, b.effectiveSetPoint(b.progress(2.0)))
}

func TestSetPointStaleDataStillDecides(t *testing.T) {
	ds := datasource.NewSoftware("ds")
	ds.SetTemperature("PB0044", sample.NewTemperature(time.Now().Add(-3600*time.Second), 17.5, sample.Celsius))
	b := NewSetPoint("French Saison", "PB0044", ds, sample.Celsius, 18.0, 0.3, 1800*time.Second, testLogger())

	assert.Equal(t, Stale, b.CheckFreshness(context.Background()))
	assert.True(t, b.RequiresHeating(context.Background()))
}

func TestSetPointMissingDataBothFalse(t *testing.T) {
	ds := datasource.NewSoftware("ds")
	b := NewSetPoint("French Saison", "PB0044", ds, sample.Celsius, 18.0, 0.3, 0, testLogger())

	assert.False(t, b.RequiresHeating(context.Background()))
	assert.False(t, b.RequiresCooling(context.Background()))
	assert.Equal(t, Missing, b.CheckFreshness(context.Background()))
}

func TestLinearRampMissingGravityFallsBackToStartSetPoint(t *testing.T) {
	ds := datasource.NewSoftware("ds")
	ds.SetTemperature("PB0044", sample.NewTemperature(time.Now(), 17.0, sample.Celsius))
	b := NewLinearRamp("French Saison", "PB0044", ds, sample.Celsius, sample.Plato,
		27.0, 4.0, 18.0, 25.0, 0.3, 0, testLogger())

	// No gravity seeded: falls back to startSetPoint=18.0, temp=17.0 < 18-0.3
	assert.True(t, b.RequiresHeating(context.Background()))
}
