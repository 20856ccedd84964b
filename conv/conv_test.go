package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCToFAndBack(t *testing.T) {
	assert.InDelta(t, 32.0, CToF(0), 1e-9)
	assert.InDelta(t, 212.0, CToF(100), 1e-9)
	assert.InDelta(t, 0.0, FToC(32), 1e-9)
	assert.InDelta(t, 100.0, FToC(212), 1e-9)
}

func TestPlatoRoundTripWithinTolerance(t *testing.T) {
	for plato := 0.0; plato <= 30.0; plato += 0.5 {
		sg := PlatoToSG(plato)
		roundTripped := SGToPlato(sg)
		assert.LessOrEqual(t, math.Abs(roundTripped-plato), 0.05,
			"round trip for %.1f degrees P drifted to %.4f", plato, roundTripped)
	}
}
