// Package units provides shared constants and validation for displacement
// and stress units used in query parameters and plot labels.
package units

// Displacement unit constants
const (
	Meter      = "m"
	Millimeter = "mm"
	Micrometer = "um"
)

// Stress unit constants
const (
	Pascal     = "Pa"
	Megapascal = "MPa"
	Gigapascal = "GPa"
)

// ValidDisplacementUnits contains all valid displacement unit values
var ValidDisplacementUnits = []string{Meter, Millimeter, Micrometer}

// ValidStressUnits contains all valid stress unit values
var ValidStressUnits = []string{Pascal, Megapascal, Gigapascal}

// IsValidDisplacement checks if the given unit is a valid displacement unit
func IsValidDisplacement(unit string) bool {
	for _, validUnit := range ValidDisplacementUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// IsValidStress checks if the given unit is a valid stress unit
func IsValidStress(unit string) bool {
	for _, validUnit := range ValidStressUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidDisplacementUnitsString returns a comma-separated string of valid
// displacement units for error messages
func GetValidDisplacementUnitsString() string {
	return "m, mm, um"
}

// GetValidStressUnitsString returns a comma-separated string of valid stress
// units for error messages
func GetValidStressUnitsString() string {
	return "Pa, MPa, GPa"
}

// ConvertDisplacement converts a displacement from meters to the target units.
// Snapshot matrices store displacements in meters.
func ConvertDisplacement(valueM float64, targetUnits string) float64 {
	switch targetUnits {
	case Millimeter:
		return valueM * 1e3
	case Micrometer:
		return valueM * 1e6
	case Meter:
		return valueM // no conversion needed
	default:
		return valueM // default to meters if unknown unit
	}
}

// ConvertStress converts a stress from pascals to the target units.
// Snapshot matrices store von Mises stress in pascals.
func ConvertStress(valuePa float64, targetUnits string) float64 {
	switch targetUnits {
	case Megapascal:
		return valuePa * 1e-6
	case Gigapascal:
		return valuePa * 1e-9
	case Pascal:
		return valuePa // no conversion needed
	default:
		return valuePa // default to pascals if unknown unit
	}
}

// Symbol returns the display form of a unit for axis and legend labels.
// Micrometers render with the micro sign rather than the ASCII query form.
func Symbol(unit string) string {
	if unit == Micrometer {
		return "µm"
	}
	return unit
}
