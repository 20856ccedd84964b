// Package sample defines the value types that flow from a DataSource to a
// Beer: timestamped readings of temperature, gravity or pH, tagged with the
// unit they were recorded in.
package sample

import "time"

// Kind identifies what physical quantity a Sample carries.
type Kind int

const (
	Temperature Kind = iota
	Gravity
	PH
)

func (k Kind) String() string {
	switch k {
	case Temperature:
		return "temperature"
	case Gravity:
		return "gravity"
	case PH:
		return "pH"
	default:
		return "unknown"
	}
}

// TempUnit is the unit a temperature Sample's Value is expressed in.
type TempUnit int

const (
	Celsius TempUnit = iota
	Fahrenheit
)

func (u TempUnit) String() string {
	if u == Fahrenheit {
		return "F"
	}
	return "C"
}

// GravityUnit is the unit a gravity Sample's Value is expressed in.
type GravityUnit int

const (
	Plato GravityUnit = iota
	SG
)

func (u GravityUnit) String() string {
	if u == SG {
		return "SG"
	}
	return "P"
}

// Sample is an immutable timestamped reading. Unit is either a TempUnit or a
// GravityUnit depending on Kind; for PH samples Unit is unused.
type Sample struct {
	Timestamp time.Time
	Value     float64
	Kind      Kind
	Unit      int
}

// Age reports how long ago the sample was recorded, relative to now.
func (s Sample) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// NewTemperature builds a Temperature-kind Sample in the given unit.
func NewTemperature(ts time.Time, value float64, unit TempUnit) Sample {
	return Sample{Timestamp: ts, Value: value, Kind: Temperature, Unit: int(unit)}
}

// NewGravity builds a Gravity-kind Sample in the given unit.
func NewGravity(ts time.Time, value float64, unit GravityUnit) Sample {
	return Sample{Timestamp: ts, Value: value, Kind: Gravity, Unit: int(unit)}
}

// TempUnit returns the sample's unit read as a TempUnit; Kind is not checked.
func (s Sample) TempUnit() TempUnit {
	return TempUnit(s.Unit)
}

// GravityUnit returns the sample's unit read as a GravityUnit; Kind is not
// checked.
func (s Sample) GravityUnit() GravityUnit {
	return GravityUnit(s.Unit)
}
