package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrGone                 = errors.New("gone")
	ErrInvalidInput         = errors.New("invalid input")
)
