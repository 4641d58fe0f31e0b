package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists cart documents.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts an empty cart at version 1.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.Version == 0 {
		cart.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// FindByID loads a cart; the raw gorm error is returned so callers can map
// ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateIfVersion writes the entries only if the stored version still equals
// expected. On success cart.Version is advanced.
func (r *Repository) UpdateIfVersion(ctx context.Context, cart *models.Cart, expected int) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND version = ?", cart.ID, expected).
		Updates(map[string]any{
			"products":   cart.Products,
			"version":    expected + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	cart.Version = expected + 1
	cart.UpdatedAt = now
	return true, nil
}

// FindReferencing returns carts holding an entry for productID.
func (r *Repository) FindReferencing(ctx context.Context, productID uuid.UUID) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.referencing(r.db.WithContext(ctx), productID).
		Order("created_at ASC").
		Find(&carts).Error
	return carts, err
}

// referencing filters on the entries document. Postgres stores it as jsonb and
// answers with containment; other dialects keep JSON text, so callers still
// filter the decoded entries.
func (r *Repository) referencing(tx *gorm.DB, productID uuid.UUID) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		contains := fmt.Sprintf(`[{"productId":%q}]`, productID.String())
		return tx.Where("products @> CAST(? AS jsonb)", contains)
	}
	return tx.Where("products LIKE ?", "%"+productID.String()+"%")
}
