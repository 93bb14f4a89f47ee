// Package apperror defines the application's error taxonomy.
//
// Services return these errors; the HTTP layer translates them to status
// codes in one place (handler/response.go). Sentinels are matched with
// errors.Is, the carrying *AppError with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type AppError struct {
	Err     error  // sentinel for errors.Is matching
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthorized returns an AppError for requests with no valid session
// identity. HTTP handlers map this to 401.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "valid authentication required",
	}
}

// InvalidURL is returned when a submitted link matches neither the
// YouTube nor the Spotify track URL patterns.
func InvalidURL(url string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "url is not a recognized YouTube or Spotify track URL",
		Field:   "url",
	}
}

// TypeMismatch is returned when a URL is recognizable but belongs to a
// different platform than the caller claimed. The mismatch is never
// silently coerced.
func TypeMismatch(claimed string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: fmt.Sprintf("url does not match the specified type: %s", claimed),
		Field:   "type",
	}
}

// DuplicateStream is returned when the submitted URL is already queued.
func DuplicateStream(url string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: "stream already exists for this url",
		Field:   "url",
	}
}

// AlreadyVoted is returned when a user upvotes a stream they have already
// upvoted. A row in the votes table is a binary "upvoted" state, not a
// counter.
func AlreadyVoted(streamID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: "you have already upvoted this stream",
	}
}

// NotYetUpvoted is returned when a user downvotes a stream they never
// upvoted. Downvote only retracts an existing upvote; it is not an
// independent negative signal.
func NotYetUpvoted(streamID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: "you have not upvoted this stream; downvote only removes an existing upvote",
	}
}
