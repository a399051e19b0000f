// Package errors holds the sentinel errors shared by every layer.
// Each specific error wraps one of the five categories so callers at the
// edge only need errors.Is against the category.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Categories
var (
	ErrAuth          = stderrors.New("authentication failed")
	ErrValidation    = stderrors.New("validation failed")
	ErrAuthorization = stderrors.New("access denied")
	ErrStorage       = stderrors.New("storage unavailable")
	ErrNotification  = stderrors.New("notification failed")
)

var (
	ErrMissingToken = fmt.Errorf("%w: authorization token is missing", ErrAuth)
	ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", ErrAuth)

	ErrEmptyMessage      = fmt.Errorf("%w: message content is empty and no attachment was provided", ErrValidation)
	ErrInvalidAttachment = fmt.Errorf("%w: invalid attachment", ErrValidation)
	ErrNoInvitees        = fmt.Errorf("%w: no users provided", ErrValidation)
	ErrUnknownUser       = fmt.Errorf("%w: unknown user", ErrValidation)
	ErrInvalidRoomID     = fmt.Errorf("%w: invalid room id", ErrValidation)
	ErrInvalidPayload    = fmt.Errorf("%w: invalid payload", ErrValidation)
	ErrUnknownEvent      = fmt.Errorf("%w: unknown event", ErrValidation)
	ErrInvalidProfile    = fmt.Errorf("%w: invalid profile", ErrValidation)
	ErrFileTooLarge      = fmt.Errorf("%w: file too large", ErrValidation)
	ErrFileTypeRejected  = fmt.Errorf("%w: invalid file type. Only images, documents, videos, and audio files are allowed", ErrValidation)

	ErrNotParticipant = fmt.Errorf("%w: not a participant of this room", ErrAuthorization)
	ErrNotSubscribed  = fmt.Errorf("%w: connection is not subscribed to this room", ErrAuthorization)

	ErrRoomNotFound = stderrors.New("room not found")
	ErrUserNotFound = stderrors.New("user not found")

	ErrRateLimited   = stderrors.New("rate limit exceeded")
	ErrSlowConsumer  = fmt.Errorf("%w: connection buffer is full", ErrNotification)
	ErrSessionClosed = fmt.Errorf("%w: session closed", ErrNotification)

	ErrWorkerPanic = stderrors.New("worker panic")
)

// Storage wraps a persistence failure so that both ErrStorage and the
// underlying cause stay matchable.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Is, As and New re-export the standard helpers so packages importing this
// one do not need a second alias.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func New(text string) error { return stderrors.New(text) }
