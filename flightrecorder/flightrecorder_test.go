package flightrecorder

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesTableAndRecordsTicks(t *testing.T) {
	dir := t.TempDir()
	rec, err := Open(dir + "/flight.db")
	require.NoError(t, err)
	defer rec.Close()

	err = rec.Record(Tick{
		Manager:         "French Saison",
		Beer:            "PB0044",
		RequiresHeating: true,
		RequiresCooling: false,
		Temperature:     17.5,
		HasTemperature:  true,
		RecordedAt:      time.Now(),
	})
	assert.NoError(t, err)
}

func TestRecordWithMissingGravityStoresNull(t *testing.T) {
	dir := t.TempDir()
	rec, err := Open(dir + "/flight.db")
	require.NoError(t, err)
	defer rec.Close()

	err = rec.Record(Tick{
		Manager:         "French Saison",
		Beer:            "PB0044",
		RequiresHeating: false,
		RequiresCooling: false,
		HasGravity:      false,
		RecordedAt:      time.Now(),
	})
	assert.NoError(t, err)

	var gravity sql.NullFloat64
	require.NoError(t, rec.db.QueryRow("SELECT gravity FROM ticks").Scan(&gravity))
	assert.False(t, gravity.Valid)
}

func TestOpenIsIdempotentOnExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/flight.db"

	first, err := Open(path)
	require.NoError(t, err)
	first.Close()

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
}
