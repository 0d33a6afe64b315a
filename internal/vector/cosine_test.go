package vector

import (
	"errors"
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical vectors", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal vectors", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite vectors", []float32{1, 0}, []float32{-1, 0}, -1},
		{"magnitude independent", []float32{2, 0}, []float32{7, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosine_unnormalizedInput(t *testing.T) {
	// cos between [1,0] and [0.9,0.1] = 0.9/sqrt(0.82)
	got, err := Cosine([]float32{1, 0}, []float32{0.9, 0.1})
	if err != nil {
		t.Fatal(err)
	}
	want := 0.9 / math.Sqrt(0.82)
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("Cosine = %v, want %v", got, want)
	}
}

func TestCosine_dimensionMismatch(t *testing.T) {
	if _, err := Cosine([]float32{1, 2}, []float32{1, 2, 3}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
	if _, err := Cosine(nil, nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("empty vectors: got %v, want ErrDimensionMismatch", err)
	}
}

func TestCosine_zeroMagnitude(t *testing.T) {
	got, err := Cosine([]float32{0, 0}, []float32{1, 2})
	if !errors.Is(err, ErrZeroVector) {
		t.Errorf("got %v, want ErrZeroVector", err)
	}
	if got != 0 {
		t.Errorf("zero-magnitude score: got %v, want 0", got)
	}
}
