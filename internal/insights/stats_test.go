package insights

import (
	"errors"
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		stddev float64
	}{
		{"population formula", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, 2},
		{"single value", []float64{42}, 42, 0},
		{"identical values", []float64{0.1, 0.1, 0.1}, 0.1, 0},
		{"two values", []float64{10, 20}, 15, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summarize(tt.values)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got.Mean-tt.mean) > 1e-9 {
				t.Errorf("Mean = %v, want %v", got.Mean, tt.mean)
			}
			if math.Abs(got.StdDev-tt.stddev) > 1e-9 {
				t.Errorf("StdDev = %v, want %v", got.StdDev, tt.stddev)
			}
		})
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if _, err := Summarize(nil); !errors.Is(err, ErrEmptySample) {
		t.Fatalf("expected ErrEmptySample, got %v", err)
	}
}

func TestSummarizeNonNegativeStdDev(t *testing.T) {
	samples := [][]float64{
		{1, 1, 1, 1000},
		{0.01, 0.02, 0.03},
		{50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 500},
	}
	for _, s := range samples {
		got, err := Summarize(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.StdDev < 0 {
			t.Fatalf("negative stddev %v for %v", got.StdDev, s)
		}
	}
}
