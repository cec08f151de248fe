package services

import (
	"github.com/groupe-jds/doku-seal/internal/repositories"
	"github.com/pkg/errors"
)

// Error kinds surfaced by the services. Anything else is a generic failure.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

// Error is a domain error carrying a kind and a user-facing message
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind so errors.Is(err, ErrNotFound) works
func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func forbidden(message string) error {
	return &Error{Kind: ErrForbidden, Message: message}
}

func invalid(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

// translate maps a repository lookup miss onto a NotFound with message.
// Other errors pass through unchanged.
func translate(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound(message)
	}
	return err
}

const (
	msgEnvelopeNotFound  = "Envelope not found"
	msgRecipientNotFound = "Recipient not found"
	msgFieldNotFound     = "Field not found"
)
