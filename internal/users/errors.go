package users

import "errors"

var (
	ErrMissingName  = errors.New("name is required")
	ErrInvalidEmail = errors.New("a valid email is required")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	ErrInvalidRole  = errors.New("role must be admin, doctor or receptionist")

	// ErrEmailTaken is returned when another account already uses the email.
	ErrEmailTaken = errors.New("email already in use")

	// ErrNotFound is returned when a user id does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrLastAdmin protects against locking everyone out: the last active
	// admin cannot be deleted, deactivated or demoted.
	ErrLastAdmin = errors.New("cannot remove the last active admin")
)
