package vision

import (
	"errors"
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"scale invariant", []float32{1, 1, 0}, []float32{10, 10, 0}, 1},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Cosine(tc.a, tc.b)
			if err != nil {
				t.Fatalf("Cosine(%v, %v) failed: %v", tc.a, tc.b, err)
			}
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Cosine(%v, %v) = %v; want %v", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
	}{
		{"different lengths", []float32{1, 2, 3}, []float32{1, 2}},
		{"empty vectors", nil, nil},
		{"one empty", []float32{1}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Cosine(tc.a, tc.b); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("Cosine(%v, %v) error = %v; want ErrDimensionMismatch", tc.a, tc.b, err)
			}
		})
	}
}

func TestCosineClampsDrift(t *testing.T) {
	// Nearly parallel vectors can overflow 1.0 through rounding.
	a := []float32{0.12345678, 0.87654321, 0.5}
	got, err := Cosine(a, a)
	if err != nil {
		t.Fatalf("Cosine failed: %v", err)
	}
	if got > 1 || got < -1 {
		t.Errorf("Cosine = %v; want value in [-1, 1]", got)
	}
}
