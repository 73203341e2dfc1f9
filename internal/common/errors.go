// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Input errors. These abort the current file, never the batch.
	ErrDecryption           = errors.New("wrong password or corrupt archive")
	ErrNoPayload            = errors.New("archive contains no spreadsheet")
	ErrMalformedSpreadsheet = errors.New("not a readable spreadsheet")
	ErrMissingLedgerSheet   = errors.New("transaction ledger sheet is missing")
	ErrMissingDateColumn    = errors.New("ledger has no date column")
	ErrUnsupportedFile      = errors.New("unsupported file type")
	ErrOwnerUnknown         = errors.New("owner could not be determined")

	// Storage errors.
	ErrStorage  = errors.New("storage failure")
	ErrNotFound = errors.New("not found")

	// Query guard errors.
	ErrQueryRejected = errors.New("query rejected")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// StorageError wraps a failure from the persistence layer with the operation
// that produced it. It matches ErrStorage under errors.Is.
type StorageError struct {
	Err error
	Op  string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage.Error(), e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorage) succeed for any StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError wraps err as a StorageError. A nil err stays nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
