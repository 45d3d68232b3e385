package service

import (
	"errors"
	"fmt"

	"github.com/25x8/foodvrse/internal/foodvrse/repository"
)

var (
	// ErrPersistence is matched by every *PersistenceError
	ErrPersistence = errors.New("persistence failure")
	// ErrAlreadyApplied is returned when a purchase was folded into progress before
	ErrAlreadyApplied = repository.ErrAlreadyApplied
)

// PersistenceError reports a failed read or write against the storage layer
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
