package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error kinds. Every error returned by a service matches exactly one of them
// under errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication required")
	ErrAuthorization  = errors.New("not authorized")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
)

// Error carries a client-facing message alongside its kind and cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func validationError(message string) *Error {
	return newError(ErrValidation, message)
}

func notFoundError(message string) *Error {
	return newError(ErrNotFound, message)
}

func conflictError(message string) *Error {
	return newError(ErrConflict, message)
}

// internalError hides cause from clients; it is still reachable via Unwrap
// for logging.
func internalError(cause error) *Error {
	return &Error{Kind: ErrInternal, Message: "Server error", Err: cause}
}

var errNotAuthorized = newError(ErrAuthorization, "Not authorized")

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "Server error"
}

// invalid converts a validator failure into a validation error whose message
// names the first offending fields.
func invalid(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: ErrValidation, Message: err.Error(), Err: err}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &Error{Kind: ErrValidation, Message: strings.Join(msgs, "; "), Err: err}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return field + " is invalid"
	}
}
