// Package conversion holds the numeric helpers exposed by thermavg-server.
//
// ToCelsius and ToFahrenheit convert a single temperature and round the
// result to one decimal place. MovingAverages computes the rounded mean
// (two decimal places) of every contiguous window of a series.
//
// All functions are pure: they validate, compute and return. Failures are
// reported as errors wrapping one of two sentinels:
//   - ErrInvalidArgument — a value is not a finite number, or the series is
//     not a sequence of finite numbers
//   - ErrOutOfRange      — the window is not an integer in [2, len(series)],
//     or a finite input converts to a value beyond the float64 range
//
// Number, Series and Window accept loosely-typed values (as produced by
// encoding/json) and apply the type-level checks before the typed functions
// run. Rounding is half away from zero on the exact binary value.
package conversion
