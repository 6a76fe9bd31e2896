package main

import (
	"strconv"
	"strings"
)

// convertToDecimal converts a DMS string such as
//
//	40 deg 13' 6.96" N
//
// to signed decimal degrees, handling the N/S and E/W hemispheres.
func convertToDecimal(data string) (float64, error) {
	parts := strings.Split(data, " ")
	if len(parts) != 5 || parts[1] != "deg" {
		return 0, &malformedCoordinateError{input: data, reason: "unexpected format"}
	}

	hemisphere := parts[4]
	sign := 1.0
	limit := 0.0
	switch hemisphere {
	case "N", "S":
		limit = 90
	case "E", "W":
		limit = 180
	default:
		return 0, &malformedCoordinateError{input: data, reason: "unknown hemisphere " + hemisphere}
	}
	if hemisphere == "S" || hemisphere == "W" {
		sign = -1.0
	}

	degrees, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, &malformedCoordinateError{input: data, reason: "bad degrees"}
	}
	minutes, err := strconv.ParseFloat(strings.TrimSuffix(parts[2], "'"), 64)
	if err != nil {
		return 0, &malformedCoordinateError{input: data, reason: "bad minutes"}
	}
	seconds, err := strconv.ParseFloat(strings.TrimSuffix(parts[3], `"`), 64)
	if err != nil {
		return 0, &malformedCoordinateError{input: data, reason: "bad seconds"}
	}

	val := sign * (degrees + (minutes+seconds/60)/60)
	if val < -limit || val > limit {
		return 0, &malformedCoordinateError{input: data, reason: "out of bounds"}
	}
	return val, nil
}
