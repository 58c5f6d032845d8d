package model

// ErrorKind classifies why a submission did not produce a normal score.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindFormat             ErrorKind = "format"
	KindNoSourceFiles      ErrorKind = "no_source_files"
	KindCompilationFailure ErrorKind = "compilation_failure"
	KindExecutionFailure   ErrorKind = "execution_failure"
	KindExecutionTimeout   ErrorKind = "execution_timeout"
	KindParseDegenerate    ErrorKind = "parse_degenerate"
	KindMatchNotFound      ErrorKind = "match_not_found"
	KindDuplicateIdentity  ErrorKind = "duplicate_identity"
	KindRosterLoad         ErrorKind = "roster_load"
	KindArchiveCorrupt     ErrorKind = "archive_corrupt"
	KindTestAssetsMissing  ErrorKind = "test_assets_missing"
	KindStagingFailure     ErrorKind = "staging_failure"
	KindInternal           ErrorKind = "internal"
	KindCancelled          ErrorKind = "cancelled"
)

func (k ErrorKind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}
