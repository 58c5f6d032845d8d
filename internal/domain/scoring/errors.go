package scoring

import "errors"

var (
	// ErrUnknownStrategy is returned by New for an unsupported kind.
	ErrUnknownStrategy = errors.New("unknown grading strategy")
	// ErrInvalidWeights is returned when category weights are negative or do
	// not sum to 1.
	ErrInvalidWeights = errors.New("invalid category weights")
	// ErrNegativeDropCount is returned for a negative drop count.
	ErrNegativeDropCount = errors.New("drop count must be non-negative")
)
