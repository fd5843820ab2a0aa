package users

import (
	"errors"
	"testing"
)

func TestCreateUserRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateUserRequest
		wantErr error
	}{
		{
			name: "valid",
			req:  CreateUserRequest{Name: "Ana", Email: "ana@clinic.pe", Password: "secreto123", Role: "doctor"},
		},
		{
			name:    "missing name",
			req:     CreateUserRequest{Email: "ana@clinic.pe", Password: "secreto123", Role: "doctor"},
			wantErr: ErrMissingName,
		},
		{
			name:    "bad email",
			req:     CreateUserRequest{Name: "Ana", Email: "ana@", Password: "secreto123", Role: "doctor"},
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "short password",
			req:     CreateUserRequest{Name: "Ana", Email: "ana@clinic.pe", Password: "corto", Role: "doctor"},
			wantErr: ErrWeakPassword,
		},
		{
			name:    "unknown role",
			req:     CreateUserRequest{Name: "Ana", Email: "ana@clinic.pe", Password: "secreto123", Role: "superuser"},
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateUserRequestNormalizesEmailAndRole(t *testing.T) {
	req := CreateUserRequest{Name: "Ana", Email: " Ana@Clinic.PE ", Password: "secreto123", Role: " Doctor "}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Email != "ana@clinic.pe" {
		t.Errorf("email not lowercased: %q", req.Email)
	}
	if req.Role != "doctor" {
		t.Errorf("role not normalized: %q", req.Role)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("secreto123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "secreto123" {
		t.Fatal("password stored in the clear")
	}
	if !CheckPassword(hash, "secreto123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "otracosa") {
		t.Error("wrong password accepted")
	}
}
