package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the room does not exist.
	ErrNotFound = errors.New("room not found")
	// ErrValidation is returned for message content that cannot be accepted.
	ErrValidation = errors.New("invalid message")
	// ErrPersistence is returned when the room directory fails to read or write.
	ErrPersistence = errors.New("persistence failure")
	// ErrSessionClosed is returned for operations on a disconnected session.
	ErrSessionClosed = errors.New("session closed")

	ErrEmptyContent   = fmt.Errorf("%w: content is required", ErrValidation)
	ErrContentTooLong = fmt.Errorf("%w: content is too long", ErrValidation)
)

// Reason maps err to the text sent to the client in an error event.
// fallback is used for failures the client cannot act on.
func Reason(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Room not found"
	case errors.Is(err, ErrEmptyContent):
		return "Message content is required"
	case errors.Is(err, ErrContentTooLong):
		return "Message is too long"
	default:
		return fallback
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func wrapPersistence(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
