package matching

import "errors"

// ErrUnknownMatcher is returned by New for an unsupported kind.
var ErrUnknownMatcher = errors.New("unknown matcher kind")
