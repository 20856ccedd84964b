// Package conv converts between the temperature and gravity units a Beer may
// be configured in.
package conv

import "math"

// CToF converts a Celsius temperature to Fahrenheit.
func CToF(c float64) float64 {
	return c*1.8 + 32
}

// FToC converts a Fahrenheit temperature to Celsius.
func FToC(f float64) float64 {
	return (f - 32) / 1.8
}

// sgToPlato converts a standard-gravity reading to degrees Plato using the
// cubic approximation common to brewing software.
func sgToPlato(sg float64) float64 {
	return 135.997*sg*sg*sg - 630.272*sg*sg + 1111.14*sg - 616.868
}

// SGToPlato converts a standard-gravity reading to degrees Plato.
func SGToPlato(sg float64) float64 {
	return sgToPlato(sg)
}

// PlatoToSG inverts sgToPlato via Newton's method. The cubic has no closed
// form inverse worth maintaining; a handful of iterations from a sane
// starting guess converges to well within the 0.05 °P round-trip tolerance
// across the [0, 30] °P brewing range.
func PlatoToSG(plato float64) float64 {
	sg := 1.0 + plato/250.0 // close enough over the practical range to converge fast
	const derivativeStep = 1e-7
	for i := 0; i < 50; i++ {
		f := sgToPlato(sg) - plato
		df := (sgToPlato(sg+derivativeStep) - sgToPlato(sg-derivativeStep)) / (2 * derivativeStep)
		if df == 0 {
			break
		}
		next := sg - f/df
		if math.Abs(next-sg) < 1e-9 {
			sg = next
			break
		}
		sg = next
	}
	return sg
}
