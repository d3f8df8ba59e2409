package recorder

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRecord       = errors.New("invalid record")
	ErrUnsupportedMimeType = errors.New("unsupported mime type")
	ErrStreamConsumed      = errors.New("record stream already consumed")
)

// PersistenceError reports a failed write to the version history. The
// version that was being saved does not exist.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("could not %s %s: %s", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MalformedHistoryError is returned when a commit cannot be read back as a
// document version.
type MalformedHistoryError struct {
	CommitID string
	Reason   string
}

func (e *MalformedHistoryError) Error() string {
	return fmt.Sprintf("commit %s is not a document version: %s", e.CommitID, e.Reason)
}
