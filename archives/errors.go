package archives

import (
	"errors"
	"fmt"
)

var ErrNotAnArchive = errors.New("not a recognized archive")
var ErrCorruptArchive = errors.New("archive is malformed")
var ErrPasswordRequired = errors.New("archive is password protected")
var ErrWrongPassword = errors.New("incorrect archive password")
var ErrUnsafeEntry = errors.New("archive entry escapes the extraction directory")
var ErrTooManyEntries = errors.New("archive has too many entries")
var ErrTooLarge = errors.New("archive contents are too large")
var ErrNoMembers = errors.New("archive contains no files")
var ErrMultipleMembers = errors.New("archive contains more than one file")

// ExtractionError is returned for every failure caused by the archive itself, as opposed to
// failures of the local filesystem.
type ExtractionError struct {
	Archive string
	Entry   string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("extracting %s (entry %q): %s", e.Archive, e.Entry, e.Err.Error())
	}
	return fmt.Sprintf("extracting %s: %s", e.Archive, e.Err.Error())
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Reason is a short, stable label for metrics and user-facing messages.
func (e *ExtractionError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrNotAnArchive):
		return "not_archive"
	case errors.Is(e.Err, ErrPasswordRequired):
		return "password_required"
	case errors.Is(e.Err, ErrWrongPassword):
		return "wrong_password"
	case errors.Is(e.Err, ErrUnsafeEntry):
		return "unsafe_entry"
	case errors.Is(e.Err, ErrTooManyEntries), errors.Is(e.Err, ErrTooLarge):
		return "limits"
	case errors.Is(e.Err, ErrNoMembers), errors.Is(e.Err, ErrMultipleMembers):
		return "members"
	}
	return "corrupt"
}

func newError(archive string, entry string, err error) *ExtractionError {
	return &ExtractionError{Archive: archive, Entry: entry, Err: err}
}
