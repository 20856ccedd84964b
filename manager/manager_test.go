package manager

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prairiedogbeer/fermenator/beer"
	"github.com/prairiedogbeer/fermenator/ferr"
	"github.com/prairiedogbeer/fermenator/flightrecorder"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("test", true)
}

// fakeBeer lets tests dictate RequiresHeating/RequiresCooling directly
// without going through a real DataSource.
type fakeBeer struct {
	name        string
	heating     bool
	cooling     bool
	temperature float64
}

func (f *fakeBeer) Name() string                            { return f.name }
func (f *fakeBeer) RequiresHeating(ctx context.Context) bool { return f.heating }
func (f *fakeBeer) RequiresCooling(ctx context.Context) bool { return f.cooling }
func (f *fakeBeer) CheckFreshness(ctx context.Context) beer.Freshness {
	return beer.Fresh
}
func (f *fakeBeer) Snapshot(ctx context.Context) beer.Snapshot {
	return beer.Snapshot{Temperature: f.temperature, HasTemperature: true}
}

// fakeRelay records On/Off calls and reports the commanded state back.
type fakeRelay struct {
	name string
	on   bool
	fail bool
}

var errForced = ferr.New(ferr.RelayActuation, "fake", "forced failure")

func (r *fakeRelay) Name() string { return r.name }
func (r *fakeRelay) On() error {
	if r.fail {
		return errForced
	}
	r.on = true
	return nil
}
func (r *fakeRelay) Off() error {
	if r.fail {
		return errForced
	}
	r.on = false
	return nil
}
func (r *fakeRelay) IsOn() bool      { return r.on }
func (r *fakeRelay) IsOff() bool     { return !r.on }
func (r *fakeRelay) Shutdown() error { r.on = false; return nil }

func TestManagerContradictionForcesBothRelaysOff(t *testing.T) {
	heat := &fakeRelay{name: "heat", on: true}
	cool := &fakeRelay{name: "cool", on: true}
	b := &fakeBeer{name: "test", heating: true, cooling: true}

	m := New(Config{
		Name:             "test",
		Beer:             b,
		HeatingRelay:     heat,
		CoolingRelay:     cool,
		ActiveHeating:    true,
		ActiveCooling:    true,
		PollingFrequency: time.Hour,
	}, testLogger())

	m.tick(context.Background())

	assert.False(t, heat.IsOn())
	assert.False(t, cool.IsOn())
}

func TestManagerActuatesAccordingToBeerDecision(t *testing.T) {
	heat := &fakeRelay{name: "heat"}
	cool := &fakeRelay{name: "cool"}
	b := &fakeBeer{name: "test", heating: true, cooling: false}

	m := New(Config{
		Name:             "test",
		Beer:             b,
		HeatingRelay:     heat,
		CoolingRelay:     cool,
		ActiveHeating:    true,
		ActiveCooling:    true,
		PollingFrequency: time.Hour,
	}, testLogger())

	m.tick(context.Background())

	assert.True(t, heat.IsOn())
	assert.False(t, cool.IsOn())
}

func TestManagerIgnoresInactiveRelay(t *testing.T) {
	heat := &fakeRelay{name: "heat"}
	b := &fakeBeer{name: "test", heating: true, cooling: false}

	m := New(Config{
		Name:             "test",
		Beer:             b,
		HeatingRelay:     heat,
		ActiveHeating:    false,
		PollingFrequency: time.Hour,
	}, testLogger())

	m.tick(context.Background())

	assert.False(t, heat.IsOn(), "relay marked inactive must never be commanded on")
}

func TestManagerRecordsTickToFlightRecorder(t *testing.T) {
	path := t.TempDir() + "/flight.db"
	rec, err := flightrecorder.Open(path)
	require.NoError(t, err)
	defer rec.Close()

	heat := &fakeRelay{name: "heat"}
	cool := &fakeRelay{name: "cool"}
	b := &fakeBeer{name: "test", heating: true, cooling: false, temperature: 17.5}

	m := New(Config{
		Name:             "test",
		Beer:             b,
		HeatingRelay:     heat,
		CoolingRelay:     cool,
		ActiveHeating:    true,
		ActiveCooling:    true,
		PollingFrequency: time.Hour,
		Recorder:         rec,
	}, testLogger())

	m.tick(context.Background())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var (
		manager  string
		beerName string
		heating  bool
		temp     float64
	)
	err = db.QueryRow("SELECT manager, beer, requires_heating, temperature FROM ticks").
		Scan(&manager, &beerName, &heating, &temp)
	require.NoError(t, err)
	assert.Equal(t, "test", manager)
	assert.Equal(t, "test", beerName)
	assert.True(t, heating)
	assert.Equal(t, 17.5, temp)
}

func TestManagerStopShutsDownWithinTimeout(t *testing.T) {
	heat := &fakeRelay{name: "heat"}
	cool := &fakeRelay{name: "cool"}
	b := &fakeBeer{name: "test", heating: true, cooling: false}

	m := New(Config{
		Name:             "test",
		Beer:             b,
		HeatingRelay:     heat,
		CoolingRelay:     cool,
		ActiveHeating:    true,
		ActiveCooling:    true,
		PollingFrequency: 10 * time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	time.Sleep(30 * time.Millisecond)
	require.True(t, heat.IsOn())

	err := m.Stop(DefaultStopTimeout)
	require.NoError(t, err)

	assert.False(t, heat.IsOn())
	assert.False(t, cool.IsOn())
	assert.Equal(t, Stopped, m.State())
}
