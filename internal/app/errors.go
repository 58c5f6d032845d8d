package app

import "errors"

var (
	// ErrMissingDependency is returned when a coordinator is built without a
	// required collaborator.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrInvalidBatch is returned for a batch without roster or submissions.
	ErrInvalidBatch = errors.New("invalid batch")
)
