package model

import (
	"errors"
	"fmt"
)

var (
	ErrSubmission     = errors.New("invalid submission")
	ErrInvalidUpload  = errors.New("invalid upload")
	ErrArchiveOpen    = errors.New("cannot open archive")
	ErrEntryParse     = errors.New("cannot parse entry")
	ErrSinkWrite      = errors.New("cannot write output")
	ErrJobNotFound    = errors.New("process not found")
	ErrResultNotReady = errors.New("result not ready")
	ErrInvalidPlan    = errors.New("invalid batch plan")
)

// EntryError is a non-fatal failure while extracting or parsing one archive entry.
// It matches both ErrEntryParse and the underlying cause with errors.Is.
type EntryError struct {
	Entry string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Entry, e.Err)
}

func (e *EntryError) Unwrap() []error {
	return []error{ErrEntryParse, e.Err}
}
