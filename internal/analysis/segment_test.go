package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linspace(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for k := range out {
		out[k] = start + step*float64(k)
	}
	return out
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{-1, 0.5, 0.25}, Normalize([]float64{-4, 2, 1}))
	assert.Equal(t, []float64{0, 0}, Normalize([]float64{0, 0}))
	assert.Empty(t, Normalize(nil))
}

func TestInverseSquare(t *testing.T) {
	assert.Equal(t, []float64{1, 0.25, 0.01}, InverseSquare([]float64{1, 2, 10}))
}

func TestSavGolWindow(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{n: 5, want: 3},
		{n: 39, want: 3},
		{n: 40, want: 5},
		{n: 201, want: 13},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SavGolWindow(tt.n), "n=%d", tt.n)
	}
}

func TestDerivativeOfLine(t *testing.T) {
	y := linspace(0.2, 0.2, 50)

	for _, mode := range []DerivativeMode{DerivativeSpline, DerivativeSavGol} {
		d, err := Derivative(y, mode)
		require.NoError(t, err)
		require.Len(t, d, len(y))
		for k := range d {
			assert.InDelta(t, 0.2, d[k], 1e-9, "mode=%d k=%d", mode, k)
		}
	}
}

func TestSavGolSmoothsNoise(t *testing.T) {
	y := make([]float64, 200)
	for k := range y {
		noise := 0.002
		if k%2 == 1 {
			noise = -noise
		}
		y[k] = 0.01*float64(k) + noise
	}

	d, err := Derivative(y, DerivativeSavGol)
	require.NoError(t, err)
	for k := 10; k < 190; k++ {
		assert.InDelta(t, 0.01, d[k], 2e-3)
	}
}

func TestDerivativeTooShort(t *testing.T) {
	_, err := Derivative([]float64{1, 2}, DerivativeSavGol)
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = Derivative([]float64{1}, DerivativeSpline)
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = Derivative([]float64{1, 2, 3}, DerivativeMode(7))
	assert.Error(t, err)
}

func TestSplineDerivativeShortCurves(t *testing.T) {
	tests := []struct {
		name    string
		y       []float64
		want    []float64
		wantErr error
	}{
		{name: "empty", y: nil, wantErr: ErrTooShort},
		{name: "single", y: []float64{3}, wantErr: ErrTooShort},
		{name: "two samples", y: []float64{1, 4}, want: []float64{3, 3}},
		{name: "three samples", y: []float64{1, 3, 5}, want: []float64{2, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				d   []float64
				err error
			)
			require.NotPanics(t, func() { d, err = Derivative(tt.y, DerivativeSpline) })
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, d, len(tt.want))
			for k := range d {
				assert.InDelta(t, tt.want[k], d[k], 1e-9)
			}
		})
	}
}

func TestRisingAndFlat(t *testing.T) {
	d := []float64{0.001, -0.2, 0.3, 0.002, -0.004}

	assert.Equal(t, []int{1, 2}, Rising(d, 0.01))
	assert.Equal(t, []int{0, 3, 4}, Flat(d, 0.01))
	assert.Nil(t, Rising(d, 1))
}

func TestSpan(t *testing.T) {
	idx := []int{2, 3, 4, 7, 8, 9, 12}

	lo, hi, err := Span(idx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 13, hi)

	lo, hi, err = Span(idx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, lo)
	assert.Equal(t, 10, hi)

	_, _, err = Span(nil, 0, 0)
	assert.ErrorIs(t, err, ErrEmptyRegion)

	_, _, err = Span(idx, 7, 0)
	assert.ErrorIs(t, err, ErrEmptyRegion)

	_, _, err = Span(idx, 5, 4)
	assert.ErrorIs(t, err, ErrEmptyRegion)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(12.5))
	assert.True(t, IsValid(0))
	assert.False(t, IsValid(Sentinel))
	assert.False(t, IsValid(math.NaN()))
	assert.False(t, IsValid(math.Inf(1)))
}
