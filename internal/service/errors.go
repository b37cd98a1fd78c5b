package service

import "errors"

// Error kinds. Handlers map each kind to an HTTP status.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
)

// Error is a client-facing failure with a stable machine code. Kind is one
// of the sentinels above.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func invalid(code, message string) error {
	return &Error{Kind: ErrInvalidInput, Code: code, Message: message}
}

func notFound(code, message string) error {
	return &Error{Kind: ErrNotFound, Code: code, Message: message}
}

func forbidden(code, message string) error {
	return &Error{Kind: ErrForbidden, Code: code, Message: message}
}

var (
	errUnauthorized       = &Error{Kind: ErrUnauthorized, Code: "AUTH_UNAUTHORIZED", Message: "unauthorized"}
	errInvalidCredentials = &Error{Kind: ErrInvalidCredentials, Code: "AUTH_INVALID_CREDENTIALS", Message: "invalid credentials"}
	errAccountDisabled    = &Error{Kind: ErrAccountDisabled, Code: "AUTH_ACCOUNT_DISABLED", Message: "account is disabled"}
	errEmailExists        = &Error{Kind: ErrDuplicateIdentity, Code: "AUTH_EMAIL_EXISTS", Message: "Email already exists"}
)
