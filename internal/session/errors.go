package session

import "errors"

var (
	// ErrUnknownSection is returned for section ids not in the catalog.
	ErrUnknownSection = errors.New("unknown section id")

	// ErrNotEditing is the save-conflict error: the caller tried to save or
	// cancel a section it does not hold the edit lock for. The caller must
	// re-open the edit.
	ErrNotEditing = errors.New("section is not being edited")

	// ErrDisposed is returned when a session is used after Dispose.
	ErrDisposed = errors.New("document session disposed")
)
