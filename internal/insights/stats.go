package insights

import (
	"errors"
	"math"
)

var ErrEmptySample = errors.New("empty sample")

// Stats holds the population mean and standard deviation of a sample.
type Stats struct {
	Mean   float64
	StdDev float64
}

// Summarize computes population statistics (divide by N). A sample of
// identical values has StdDev 0; callers must not divide by it.
func Summarize(values []float64) (Stats, error) {
	if len(values) == 0 {
		return Stats{}, ErrEmptySample
	}
	var sum float64
	identical := true
	for _, v := range values {
		sum += v
		if v != values[0] {
			identical = false
		}
	}
	if identical {
		return Stats{Mean: values[0]}, nil
	}
	n := float64(len(values))
	mean := sum / n

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return Stats{Mean: mean, StdDev: math.Sqrt(variance / n)}, nil
}
