package submission

import "errors"

var (
	// ErrFormat is returned for folder names outside the submission convention.
	ErrFormat = errors.New("submission folder name does not match convention")
	// ErrArchiveCorrupt is returned when an archive cannot be read or extracted.
	ErrArchiveCorrupt = errors.New("archive is corrupt or unreadable")
	// ErrNoSourceFiles is returned when a submission has neither source files nor archives.
	ErrNoSourceFiles = errors.New("no source files or archives in submission")
	// ErrTestAssetsMissing is returned when the test directory lacks the main test file.
	ErrTestAssetsMissing = errors.New("test assets missing")
	// ErrStaging is returned when files cannot be copied into the staging directory.
	ErrStaging = errors.New("staging failed")
)
