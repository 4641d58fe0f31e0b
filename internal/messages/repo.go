package messages

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists chat messages.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a message repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create appends a message.
func (r *Repository) Create(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// List returns the full log, oldest first.
func (r *Repository) List(ctx context.Context) ([]models.Message, error) {
	var rows []models.Message
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
