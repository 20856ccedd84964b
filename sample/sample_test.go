package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAge(t *testing.T) {
	now := time.Now()
	s := NewTemperature(now.Add(-90*time.Second), 20.0, Celsius)
	assert.InDelta(t, 90, s.Age(now).Seconds(), 1)
}

func TestKindStringer(t *testing.T) {
	assert.Equal(t, "temperature", Temperature.String())
	assert.Equal(t, "gravity", Gravity.String())
	assert.Equal(t, "pH", PH.String())
}
