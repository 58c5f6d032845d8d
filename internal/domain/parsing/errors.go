package parsing

import "errors"

var (
	// ErrUnknownParser is returned by New for an unsupported kind.
	ErrUnknownParser = errors.New("unknown parser kind")
	// ErrInvalidPattern is returned when a custom score pattern does not compile.
	ErrInvalidPattern = errors.New("invalid score pattern")
)
