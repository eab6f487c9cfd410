package nepq

import "errors"

var (
	// ErrOutOfRange reports a stage ordinal outside 1..8.
	ErrOutOfRange = errors.New("stage ordinal out of range")
	// ErrInvalidScore reports a sub-score outside its declared bounds.
	ErrInvalidScore = errors.New("invalid score")
	// ErrMalformedTranscript reports turns that are out of order, overlapping or incomplete.
	ErrMalformedTranscript = errors.New("malformed transcript")
	// ErrInvalidViolation reports a violation with an unknown type or severity or a bad timestamp.
	ErrInvalidViolation = errors.New("invalid violation")
)
