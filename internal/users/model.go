// Package users manages staff accounts for the admin area.
package users

import (
	"regexp"
	"strings"
	"time"
)

// Role determines what a staff account may do. Only admins manage other
// accounts; doctors and receptionists get the appointment screens.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleReceptionist Role = "receptionist"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleReceptionist:
		return true
	}
	return false
}

// User is a staff account. The password hash never serializes.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CreateUserRequest is the admin payload for a new staff account.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// Validate checks the request and normalizes it in place.
func (r *CreateUserRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrMissingName
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if !emailPattern.MatchString(r.Email) {
		return ErrInvalidEmail
	}
	if len(r.Password) < 8 {
		return ErrWeakPassword
	}
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	if !ValidRole(Role(r.Role)) {
		return ErrInvalidRole
	}
	return nil
}

// UpdateUserRequest carries admin edits. Nil fields are unchanged.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Validate checks only the fields being changed.
func (r *UpdateUserRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrMissingName
	}
	if r.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*r.Email))
		if !emailPattern.MatchString(e) {
			return ErrInvalidEmail
		}
		r.Email = &e
	}
	if r.Password != nil && len(*r.Password) < 8 {
		return ErrWeakPassword
	}
	if r.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*r.Role))
		if !ValidRole(Role(role)) {
			return ErrInvalidRole
		}
		r.Role = &role
	}
	return nil
}
