package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	birth := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	created, err := repo.Create(ctx, NewUser{
		FirstName:    " Ada ",
		LastName:     "Lovelace",
		Email:        "Ada@Example.COM",
		BirthDate:    &birth,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", created.Email)
	require.Equal(t, "Ada", created.FirstName)

	found, err := repo.FindByEmail(ctx, "  ADA@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "hash", byID.PasswordHash)
	require.NotNil(t, byID.BirthDate)
}

func TestRepositoryFindByEmailIsNotAPattern(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	_, err := repo.Create(ctx, NewUser{FirstName: "A", LastName: "B", Email: "ab@example.com"})
	require.NoError(t, err)

	for _, probe := range []string{"%", "ab@%", "a_@example.com", ".*"} {
		_, err := repo.FindByEmail(ctx, probe)
		require.ErrorIs(t, err, gorm.ErrRecordNotFound, probe)
	}
}

func TestRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	_, err := repo.Create(ctx, NewUser{FirstName: "A", LastName: "B", Email: "dup@example.com"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, NewUser{FirstName: "C", LastName: "D", Email: "DUP@example.com"})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, "ux_users_email"))
}

func TestRepositoryUpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	created, err := repo.Create(ctx, NewUser{FirstName: "A", LastName: "B", Email: "p@example.com", PasswordHash: "old"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePasswordHash(ctx, created.ID, "new"))
	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "new", got.PasswordHash)

	require.ErrorIs(t, repo.UpdatePasswordHash(ctx, uuid.New(), "x"), gorm.ErrRecordNotFound)
}

func TestNewUserModelNormalizes(t *testing.T) {
	m := NewUser{FirstName: "  Grace ", LastName: " Hopper", Email: " GRACE@Navy.mil "}.model()
	require.Equal(t, "Grace", m.FirstName)
	require.Equal(t, "Hopper", m.LastName)
	require.Equal(t, "grace@navy.mil", m.Email)
	require.Empty(t, m.PasswordHash)
}
