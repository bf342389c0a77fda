package editor

import "errors"

var (
	ErrNotLoaded         = errors.New("no trial loaded")
	ErrUnknownSection    = errors.New("unknown section")
	ErrUnknownField      = errors.New("unknown field")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownItem       = errors.New("unknown sub-item")
	ErrInvalidValue      = errors.New("invalid value")
	ErrSaveInProgress    = errors.New("save already in progress")
	ErrLoadInProgress    = errors.New("load in progress")
	// ErrSuperseded is returned to a load that finished after a newer load
	// was started. Its result is discarded.
	ErrSuperseded = errors.New("load superseded by a newer one")
)
