package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// Product is a catalog listing identified by a unique code.
type Product struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Title       string                   `gorm:"column:title;not null"`
	Description string                   `gorm:"column:description;not null"`
	Code        string                   `gorm:"column:code;not null;uniqueIndex:ux_products_code"`
	Price       decimal.Decimal          `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int                      `gorm:"column:stock;not null"`
	Status      bool                     `gorm:"column:status;not null"`
	Category    string                   `gorm:"column:category;not null;index"`
	Thumbnails  dbtypes.JSONList[string] `gorm:"column:thumbnails;type:text;not null"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Thumbnails == nil {
		p.Thumbnails = dbtypes.JSONList[string]{}
	}
	return nil
}
