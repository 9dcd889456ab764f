package conversion

import (
	"fmt"
	"math"
	"math/big"
)

// Decimal places kept by each helper.
const (
	TemperaturePlaces = 1
	AveragePlaces     = 2
)

// MinWindow is the smallest window MovingAverages accepts.
const MinWindow = 2

// ToCelsius converts a Fahrenheit temperature to Celsius, rounded to one
// decimal place.
func ToCelsius(f float64) (float64, error) {
	if !isFinite(f) {
		return 0, fmt.Errorf("to celsius: %w: value must be a finite number", ErrInvalidArgument)
	}
	c := (f - 32) * 5 / 9
	if !isFinite(c) {
		// (f-32)*5 overflows near the top of the float64 range; dividing
		// first keeps the result finite.
		c = (f - 32) / 9 * 5
	}
	if !isFinite(c) {
		return 0, fmt.Errorf("to celsius: %w: %v °F has no finite Celsius value", ErrOutOfRange, f)
	}
	return Round(c, TemperaturePlaces), nil
}

// ToFahrenheit converts a Celsius temperature to Fahrenheit, rounded to one
// decimal place.
func ToFahrenheit(c float64) (float64, error) {
	if !isFinite(c) {
		return 0, fmt.Errorf("to fahrenheit: %w: value must be a finite number", ErrInvalidArgument)
	}
	f := c*9/5 + 32
	if !isFinite(f) {
		f = c/5*9 + 32
	}
	if !isFinite(f) {
		return 0, fmt.Errorf("to fahrenheit: %w: %v °C has no finite Fahrenheit value", ErrOutOfRange, c)
	}
	return Round(f, TemperaturePlaces), nil
}

// MovingAverages returns the mean of every contiguous window of series, in
// order, each rounded to two decimal places. The result has
// len(series)-window+1 elements. series is not modified.
//
// The series is validated before the window: a non-finite element yields
// ErrInvalidArgument even when the window is also out of range.
func MovingAverages(series []float64, window int) ([]float64, error) {
	if series == nil {
		return nil, fmt.Errorf("moving averages: %w: series must be a sequence of finite numbers", ErrInvalidArgument)
	}
	for i, v := range series {
		if !isFinite(v) {
			return nil, fmt.Errorf("moving averages: %w: series[%d] is not a finite number", ErrInvalidArgument, i)
		}
	}
	if window < MinWindow || window > len(series) {
		return nil, fmt.Errorf("moving averages: %w: window %d not in [%d, %d]",
			ErrOutOfRange, window, MinWindow, len(series))
	}

	out := make([]float64, 0, len(series)-window+1)
	for i := 0; i <= len(series)-window; i++ {
		avg := Round(mean(series[i:i+window]), AveragePlaces)
		if !isFinite(avg) {
			return nil, fmt.Errorf("moving averages: %w: mean of series[%d:%d] is not finite", ErrOutOfRange, i, i+window)
		}
		out = append(out, avg)
	}
	return out, nil
}

// Round rounds v to the given number of decimal places, resolving exact
// halves away from zero. The decision is made on the exact binary value of
// v, so 1.005 (stored as 1.00499999...) rounds down to 1.00.
// NaN, ±Inf and negative places return v unchanged.
func Round(v float64, places int) float64 {
	if !isFinite(v) || places < 0 || v == 0 {
		return v
	}

	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)

	// 256 bits holds a float64 mantissa times any realistic power of ten exactly.
	x := new(big.Float).SetPrec(256).SetFloat64(math.Abs(v))
	x.Mul(x, new(big.Float).SetPrec(256).SetInt(pow))

	n, _ := x.Int(nil) // truncates toward zero
	frac := new(big.Float).SetPrec(256).Sub(x, new(big.Float).SetPrec(256).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	r, _ := new(big.Rat).SetFrac(n, pow).Float64()
	if r == 0 {
		return 0 // never -0
	}
	if v < 0 {
		r = -r
	}
	return r
}

// mean sums vals left to right and divides once. If the sum overflows, it
// falls back to summing pre-divided terms, which cannot exceed the largest
// magnitude in vals.
func mean(vals []float64) float64 {
	n := float64(len(vals))
	var sum float64
	for _, v := range vals {
		sum += v
	}
	if isFinite(sum) {
		return sum / n
	}
	sum = 0
	for _, v := range vals {
		sum += v / n
	}
	return sum
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
