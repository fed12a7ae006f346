package model

import "errors"

var (
	ErrNotFound = errors.New("note not found")
	// ErrConflict reports that a note changed between read and conditional write.
	ErrConflict = errors.New("note was modified concurrently")
	// ErrStorageMissing reports that the notes table does not exist.
	ErrStorageMissing = errors.New("notes table is not found")
)
