package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// CartEntry pairs a product reference with a positive quantity.
type CartEntry struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// Cart holds its entries as an ordered document column. Version is bumped on
// every write and guards read-modify-write cycles.
type Cart struct {
	ID        uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	Products  dbtypes.JSONList[CartEntry] `gorm:"column:products;not null"`
	Version   int                         `gorm:"column:version;not null"`
	CreatedAt time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Products == nil {
		c.Products = dbtypes.JSONList[CartEntry]{}
	}
	return nil
}
