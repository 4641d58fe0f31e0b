package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Roles derived when a principal is resolved.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// AdminIdentity is the session identity stored for the built-in admin.
const AdminIdentity = "admin"

// RegisterRequest is the local sign-up payload.
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=4"`
	BirthDate string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
}

// LoginRequest carries email and password for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest overwrites the password of an existing account.
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID        *uuid.UUID `json:"id,omitempty"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Role      string     `json:"role"`
}

// Identity is the value kept in the session for this principal.
func (p *Principal) Identity() string {
	if p == nil {
		return ""
	}
	if p.ID == nil {
		return AdminIdentity
	}
	return p.ID.String()
}

// FullName joins first and last name.
func (p *Principal) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// IsAdmin reports the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

func adminPrincipal(email string) *Principal {
	return &Principal{FirstName: "Admin", LastName: "Coder", Email: email, Role: RoleAdmin}
}

func userPrincipal(u *models.User) *Principal {
	id := u.ID
	return &Principal{
		ID:        &id,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		BirthDate: u.BirthDate,
		Role:      RoleUser,
	}
}
