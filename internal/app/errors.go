package app

import "errors"

// ErrNotFound and related errors describe storage and runtime failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrStorageWrite     = errors.New("storage write failed")
	ErrDuplicateEventID = errors.New("duplicate event id")
	ErrCorruptLog       = errors.New("stored event log is not a json array")
)
