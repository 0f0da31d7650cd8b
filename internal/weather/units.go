package weather

import "math"

const (
	kelvinOffset = 273.15
	mpsToMph     = 2.236936
)

// KelvinToCelsius converts an absolute reading to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - kelvinOffset
}

// CelsiusToKelvin converts Celsius to an absolute reading.
func CelsiusToKelvin(c float64) float64 {
	return c + kelvinOffset
}

// CelsiusToFahrenheit converts Celsius to Fahrenheit.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// FahrenheitToCelsius converts Fahrenheit to Celsius.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// FromKelvin converts an absolute reading into the given unit system.
func FromKelvin(k float64, u Unit) float64 {
	c := KelvinToCelsius(k)
	if u == UnitImperial {
		return CelsiusToFahrenheit(c)
	}
	return c
}

// ToCelsius converts a value in unit system u to Celsius.
func ToCelsius(v float64, u Unit) float64 {
	if u == UnitImperial {
		return FahrenheitToCelsius(v)
	}
	return v
}

// WindFromMetric converts a m/s wind speed into the given unit system.
func WindFromMetric(mps float64, u Unit) float64 {
	if u == UnitImperial {
		return mps * mpsToMph
	}
	return mps
}

// Round rounds a value to the nearest integer for display.
func Round(v float64) int {
	return int(math.Round(v))
}
