package moments

import (
	"errors"
	"fmt"
)

// ErrNoCandidates matches any *NoCandidatesError via errors.Is.
var ErrNoCandidates = errors.New("no valid moments")

// MalformedCandidateError describes one model entry that was dropped.
type MalformedCandidateError struct {
	Index  int
	Reason string
	Err    error
}

func (e *MalformedCandidateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("moment #%d: %s: %v", e.Index+1, e.Reason, e.Err)
	}
	return fmt.Sprintf("moment #%d: %s", e.Index+1, e.Reason)
}

func (e *MalformedCandidateError) Unwrap() error { return e.Err }

// NoCandidatesError is returned when a batch yields zero valid candidates.
type NoCandidatesError struct {
	Received int
	Dropped  []*MalformedCandidateError
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("%s (received %d, dropped %d)", ErrNoCandidates, e.Received, len(e.Dropped))
}

func (e *NoCandidatesError) Is(target error) bool { return target == ErrNoCandidates }
