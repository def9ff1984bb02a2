package apperrors

import "errors"

var (
	// ErrValidation indicates caller input failed a validation rule.
	ErrValidation = errors.New("validation error")

	// ErrBusinessRule indicates valid input that violates a domain rule, such as
	// withdrawing more than the available balance.
	ErrBusinessRule = errors.New("business rule violation")

	// ErrNotFound indicates that a requested resource could not be found.
	ErrNotFound = errors.New("resource not found")

	// ErrUpstreamUnavailable indicates an external dependency returned nothing usable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrConflict indicates a concurrent writer won the race for a resource.
	ErrConflict = errors.New("conflict")
)

// Error carries a human readable message alongside one of the sentinel kinds so
// callers can branch with errors.Is while clients still see the message.
type Error struct {
	kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the sentinel kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind returns the sentinel this error belongs to.
func (e *Error) Kind() error {
	return e.kind
}

func newError(kind error, message string, cause error) *Error {
	return &Error{kind: kind, Message: message, Err: cause}
}

// Validation builds an ErrValidation error.
func Validation(message string) error {
	return newError(ErrValidation, message, nil)
}

// BusinessRule builds an ErrBusinessRule error.
func BusinessRule(message string) error {
	return newError(ErrBusinessRule, message, nil)
}

// NotFound builds an ErrNotFound error.
func NotFound(message string) error {
	return newError(ErrNotFound, message, nil)
}

// UpstreamUnavailable builds an ErrUpstreamUnavailable error wrapping an optional cause.
func UpstreamUnavailable(message string, cause error) error {
	return newError(ErrUpstreamUnavailable, message, cause)
}

// Conflict builds an ErrConflict error wrapping an optional cause.
func Conflict(message string, cause error) error {
	return newError(ErrConflict, message, cause)
}

// Message returns the client facing message of err when it is an *Error.
func Message(err error) (string, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message, true
	}
	return "", false
}
