// Package users persists shopper accounts. The admin account lives only in
// configuration and never reaches this table.
package users

import (
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// NewUser is what registration and OAuth sign-up hand to the repository. An
// empty PasswordHash marks an OAuth-only account.
type NewUser struct {
	FirstName    string
	LastName     string
	Email        string
	BirthDate    *time.Time
	PasswordHash string
}

func (n NewUser) model() *models.User {
	return &models.User{
		FirstName:    strings.TrimSpace(n.FirstName),
		LastName:     strings.TrimSpace(n.LastName),
		Email:        NormalizeEmail(n.Email),
		BirthDate:    n.BirthDate,
		PasswordHash: n.PasswordHash,
	}
}

// NormalizeEmail is the stored and compared form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
