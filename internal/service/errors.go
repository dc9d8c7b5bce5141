package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/cafe-ordering/internal/repository"
)

// Sentinels returned by the coordinator. NotFound, SeatOccupied and
// DuplicateName are the repository values so storage errors pass through
// errors.Is unchanged.
var (
	ErrNotFound      = repository.ErrNotFound
	ErrSeatOccupied  = repository.ErrSeatOccupied
	ErrDuplicateName = repository.ErrDuplicateName
	ErrInvalidState  = errors.New("invalid state")
	ErrValidation    = errors.New("validation failed")
)

// SeatOccupiedError names the seat that could not be reserved or removed.
type SeatOccupiedError struct {
	Name string
}

func (e *SeatOccupiedError) Error() string {
	return fmt.Sprintf("The seat \"%s\" is already occupied. please choose another seat.", e.Name)
}

func (e *SeatOccupiedError) Unwrap() error { return ErrSeatOccupied }

// ValidationError carries a message safe to show to the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidStateError explains why an action is not allowed right now.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
