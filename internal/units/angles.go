// Package units provides shared constants and conversions for angular
// measurements across the gaze pipeline and its API surfaces.
package units

import "math"

// Unit constants for API output.
const (
	Degrees = "deg"
	Radians = "rad"
	Pixels  = "px"
)

// ValidUnits contains all valid angular unit values for API requests.
var ValidUnits = []string{Degrees, Radians}

// IsValid checks if the given unit is in the list of valid units.
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// ConvertAngle converts an angle stored in degrees to the target units.
// Unknown units fall back to degrees.
func ConvertAngle(deg float64, targetUnits string) float64 {
	switch targetUnits {
	case Radians:
		return DegToRad(deg)
	default:
		return deg
	}
}

// PxToDeg converts a screen-pixel distance to degrees of visual angle
// for the given pixels-per-degree scale. A non-positive scale returns 0
// rather than dividing by zero.
func PxToDeg(px, pixelsPerDegree float64) float64 {
	if pixelsPerDegree <= 0 {
		return 0
	}
	return px / pixelsPerDegree
}

// DegToPx converts degrees of visual angle to screen pixels.
func DegToPx(deg, pixelsPerDegree float64) float64 {
	return deg * pixelsPerDegree
}
