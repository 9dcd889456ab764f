package conversion

import "errors"

var (
	// ErrInvalidArgument is returned when a value is not a finite number or
	// a series is not a sequence of finite numbers.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange is returned when a window size is not an integer in
	// [2, len(series)], or when a finite input has no finite result.
	ErrOutOfRange = errors.New("out of range")
)

// Kind returns a stable, lowercase name for the error kind carried by err,
// or "" when err wraps neither sentinel.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	default:
		return ""
	}
}
