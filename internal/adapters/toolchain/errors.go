package toolchain

import "errors"

var (
	// ErrStart is returned when the compiler or runtime cannot be started.
	ErrStart = errors.New("failed to start toolchain process")
	// ErrClasspathEntry is returned when a classpath entry does not exist.
	ErrClasspathEntry = errors.New("classpath entry not found")
	// ErrWorkDir is returned when the working directory is unusable.
	ErrWorkDir = errors.New("invalid working directory")
)
