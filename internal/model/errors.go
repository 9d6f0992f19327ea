package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown users and sessions.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when an operation is illegal in the session's current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation is returned for unsupported profile or preference values.
	ErrValidation = errors.New("validation error")

	// ErrNoMoreQuestions is returned when an answer arrives after the last
	// question. It matches both ErrNotFound and ErrInvalidState.
	ErrNoMoreQuestions = fmt.Errorf("no more questions in session: %w", errors.Join(ErrNotFound, ErrInvalidState))
)
