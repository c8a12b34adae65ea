package gps

import "fmt"

// Latitude converts a degrees/minutes/seconds triple with its N/S hemisphere
// reference into signed decimal degrees. North is positive, south negative.
func Latitude(dms [3]float64, ref string) (float64, error) {
	var sign float64
	switch ref {
	case "N":
		sign = 1
	case "S":
		sign = -1
	default:
		return 0, fmt.Errorf("invalid latitude reference %q", ref)
	}

	deg := sign * decimal(dms)
	if deg < -90 || deg > 90 {
		return 0, fmt.Errorf("latitude %f out of range", deg)
	}
	return deg, nil
}

// Longitude converts a degrees/minutes/seconds triple with its E/W hemisphere
// reference into signed decimal degrees. East is positive, west negative.
func Longitude(dms [3]float64, ref string) (float64, error) {
	var sign float64
	switch ref {
	case "E":
		sign = 1
	case "W":
		sign = -1
	default:
		return 0, fmt.Errorf("invalid longitude reference %q", ref)
	}

	deg := sign * decimal(dms)
	if deg < -180 || deg > 180 {
		return 0, fmt.Errorf("longitude %f out of range", deg)
	}
	return deg, nil
}

func decimal(dms [3]float64) float64 {
	return dms[0] + dms[1]/60 + dms[2]/3600
}
