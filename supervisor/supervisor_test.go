package supervisor

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prairiedogbeer/fermenator/configstore"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("test", true)
}

func testSpec() *configstore.ConfigSpec {
	return &configstore.ConfigSpec{
		Version: "1",
		Relays: map[string]configstore.ObjectConfig{
			"Heat1": {Type: "Software"},
			"Cool1": {Type: "Software"},
		},
		DataSources: map[string]configstore.ObjectConfig{
			"BrewometerSpreadsheet": {Type: "Software"},
		},
		Beers: map[string]configstore.ObjectConfig{
			"PB0044": {
				Type: "SetPoint",
				Config: map[string]interface{}{
					"datasource": "BrewometerSpreadsheet",
					"identifier": "PB0044",
					"set_point":  18.5,
				},
			},
		},
		Managers: map[string]configstore.ObjectConfig{
			"French Saison": {
				Config: map[string]interface{}{
					"beer":                 "PB0044",
					"active_heating_relay": "Heat1",
					"active_cooling_relay": "Cool1",
					"polling_frequency":    0.02,
				},
			},
		},
	}
}

func TestAssembleStartsManagersAndDisassembleStopsThem(t *testing.T) {
	store := configstore.NewInline("test", testSpec(), time.Hour)
	sup := New(store, testLogger(), 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sup.Assemble(ctx))

	sup.mu.Lock()
	g := sup.current
	sup.mu.Unlock()
	require.NotNil(t, g)
	require.Contains(t, g.managers, "French Saison")

	heat := g.relays["Heat1"]
	require.NoError(t, heat.On())
	assert.True(t, heat.IsOn())

	sup.Disassemble()

	assert.True(t, heat.IsOff(), "disassemble must force relays off within the bounded timeout")

	sup.mu.Lock()
	assert.Nil(t, sup.current)
	sup.mu.Unlock()
}

func TestReassembleWithInvalidSpecKeepsPreviousGraphRunning(t *testing.T) {
	store := configstore.NewInline("test", testSpec(), time.Hour)
	sup := New(store, testLogger(), 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sup.Assemble(ctx))

	badSpec := testSpec()
	badSpec.Managers["French Saison"] = configstore.ObjectConfig{
		Config: map[string]interface{}{"beer": "DoesNotExist"},
	}
	badStore := configstore.NewInline("test", badSpec, time.Hour)
	sup.store = badStore

	err := sup.Reassemble(ctx)
	assert.Error(t, err)

	sup.mu.Lock()
	g := sup.current
	sup.mu.Unlock()
	require.NotNil(t, g, "a failed reassemble must leave the previous graph running")
	assert.Contains(t, g.managers, "French Saison")
}

func TestRunStopsEverythingOnContextCancellation(t *testing.T) {
	store := configstore.NewInline("test", testSpec(), 10*time.Millisecond)
	sup := New(store, testLogger(), 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	sup.mu.Lock()
	assert.Nil(t, sup.current)
	sup.mu.Unlock()
}
