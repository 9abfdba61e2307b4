package account

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("account not found")
	ErrSelfDelete         = errors.New("cannot delete own account")
	ErrSelfRoleChange     = errors.New("cannot change own role")
)

// ValidationError carries a caller-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
