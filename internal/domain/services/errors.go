// Package services implements the release-metadata integrity layer:
// candidate selection, metadata merging, deduplication, and record construction.
package services

import (
	"errors"
	"fmt"
)

// Input errors. They are fatal to the current app only.
var (
	ErrMissingIdentifier = errors.New("app identifier could not be resolved")
	ErrNoCandidates      = errors.New("no candidate assets")
	ErrUnsupportedHost   = errors.New("unsupported repository host")
	ErrNoArtifactSource  = errors.New("no local or remote package")
	ErrMissingReleaseTag = errors.New("release tag could not be resolved")
	ErrInvalidTag        = errors.New("tag key not allowed for record kind")
	ErrEmptyTagValue     = errors.New("required tag has an empty value")
)

// InputError marks an error as caused by missing or invalid input rather than I/O
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// inputErrorf wraps a sentinel with context and tags it as an input error
func inputErrorf(sentinel error, format string, args ...interface{}) error {
	return &InputError{Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}

// IsInputError reports whether err (or anything it wraps) is an InputError
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
