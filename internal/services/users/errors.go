package users

import "github.com/pkg/errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrRegistrationDisabled = errors.New("registration is currently disabled by administrator")
	ErrEmailExists          = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUnauthenticated      = errors.New("not signed in")
	ErrForbidden            = errors.New("admin role required")
	ErrNotFound             = errors.New("user not found")
)
