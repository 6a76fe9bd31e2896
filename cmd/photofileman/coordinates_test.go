package main

import (
	"errors"
	"math"
	"testing"
)

// TestConvertToDecimal tests DMS to decimal degree conversion
func TestConvertToDecimal(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{`59 deg 54' 4" N`, 59.9011},
		{`10 deg 44' 20" E`, 10.7388},
		{`34 deg 53' 1" S`, -34.8836},
		{`56 deg 10' 55" W`, -56.1819},
		{`40 deg 13' 6.96" N`, 40.2186},
	}

	for _, tc := range tests {
		got, err := convertToDecimal(tc.input)
		if err != nil {
			t.Errorf("convertToDecimal(%q) failed: %v", tc.input, err)
			continue
		}
		if math.Abs(got-tc.expected) > 0.0001 {
			t.Errorf("convertToDecimal(%q) = %f, expected %f", tc.input, got, tc.expected)
		}
	}
}

// TestConvertToDecimalMalformed tests rejection of malformed coordinates
func TestConvertToDecimalMalformed(t *testing.T) {
	inputs := []string{
		"",
		"59.9011",
		`59 54' 4" N`,
		`59 deg 54' 4"`,
		`59 deg 54' 4" X`,
		`abc deg 54' 4" N`,
		`59 deg xx' 4" N`,
		`59 deg 54' yy" N`,
		`95 deg 0' 0" N`,
		`185 deg 0' 0" E`,
		`59 deg 54' 4" N extra`,
	}

	for _, input := range inputs {
		_, err := convertToDecimal(input)
		if err == nil {
			t.Errorf("convertToDecimal(%q) should have failed", input)
			continue
		}
		var malformed *malformedCoordinateError
		if !errors.As(err, &malformed) {
			t.Errorf("convertToDecimal(%q) returned %T, expected malformedCoordinateError", input, err)
		}
	}
}
