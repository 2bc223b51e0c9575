package services

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusClientClosedRequest marks a request the caller abandoned before GitHub answered
const StatusClientClosedRequest = 499

var (
	// ErrUpstreamNotFound matches an UpstreamError for a GitHub 404
	ErrUpstreamNotFound = errors.New("github user not found")
	// ErrProfileNotFound means the username was never ingested or its avatar is gone
	ErrProfileNotFound = errors.New("profile not found")
)

// UpstreamError is a failure reported by, or while talking to, GitHub.
// StatusCode is passed through to the caller.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %d: %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamNotFound && e.StatusCode == http.StatusNotFound
}

// StorageError wraps a failed object store or metadata store operation
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PartialListingError records one gallery entry whose avatar URL could not be signed
type PartialListingError struct {
	Username string
	Key      string
	Err      error
}

func (e *PartialListingError) Error() string {
	return fmt.Sprintf("sign avatar %s for %s: %v", e.Key, e.Username, e.Err)
}

func (e *PartialListingError) Unwrap() error {
	return e.Err
}
