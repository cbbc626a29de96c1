package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrInvalidDescription = errors.New("invalid description")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidKind        = errors.New("invalid event kind")
	ErrInvalidLevelID     = errors.New("invalid level id")
	ErrInvalidLevelName   = errors.New("invalid level name")
	ErrInvalidThreshold   = errors.New("invalid level threshold")
	ErrInvalidLadder      = errors.New("invalid level ladder")
)
