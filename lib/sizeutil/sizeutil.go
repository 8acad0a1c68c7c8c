package sizeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// decimal units, 1 KB = 10^3 bytes (matches what the site displays)
var unitLabels = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

var unitFactors = map[string]float64{}

func init() {
	for i, label := range unitLabels {
		unitFactors[label] = math.Pow10(i * 3)
	}
}

type MalformedSizeError struct {
	Input string
}

func (e MalformedSizeError) Error() string {
	return fmt.Sprintf("malformed size: %q", e.Input)
}

// Units returns the recognized unit labels, smallest first.
func Units() []string {
	out := make([]string, len(unitLabels))
	copy(out, unitLabels)
	return out
}

// IsUnit reports whether label names a recognized unit. Matching is
// case-insensitive since the CLI upper-cases its flag value anyway.
func IsUnit(label string) bool {
	_, ok := unitFactors[strings.ToUpper(label)]
	return ok
}

// ParseSize parses a "<number> <unit>" string into a byte count.
func ParseSize(text string) (int64, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 2 {
		return 0, MalformedSizeError{Input: text}
	}

	number, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) || number < 0 {
		return 0, MalformedSizeError{Input: text}
	}
	factor, ok := unitFactors[strings.ToUpper(fields[1])]
	if !ok {
		return 0, MalformedSizeError{Input: text}
	}

	return int64(number * factor), nil
}

// FormatSize renders bytes in the given unit with exactly 2 decimal digits.
func FormatSize(bytes int64, unit string) (string, error) {
	unit = strings.ToUpper(unit)
	factor, ok := unitFactors[unit]
	if !ok {
		return "", MalformedSizeError{Input: unit}
	}
	return fmt.Sprintf("%.2f %s", float64(bytes)/factor, unit), nil
}

// FormatSizeAuto renders bytes in the largest unit whose factor does not
// exceed it. Zero falls back to the smallest unit.
func FormatSizeAuto(bytes int64) string {
	for i := len(unitLabels) - 1; i >= 0; i-- {
		label := unitLabels[i]
		if float64(bytes) >= unitFactors[label] {
			out, _ := FormatSize(bytes, label)
			return out
		}
	}
	return "0.00 B"
}
