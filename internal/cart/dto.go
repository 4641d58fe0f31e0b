package cart

import (
	"time"

	"github.com/google/uuid"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// EntryDTO is one cart line. Product is nil when the referenced product no
// longer exists.
type EntryDTO struct {
	ProductID uuid.UUID           `json:"productId"`
	Quantity  int                 `json:"quantity"`
	Product   *product.ProductDTO `json:"product"`
}

// CartDTO is the public cart shape.
type CartDTO struct {
	ID        uuid.UUID  `json:"id"`
	Products  []EntryDTO `json:"products"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewCartDTO maps a cart row, attaching products found in lookup.
func NewCartDTO(c *models.Cart, lookup map[uuid.UUID]*models.Product) *CartDTO {
	entries := make([]EntryDTO, 0, len(c.Products))
	for _, e := range c.Products {
		entries = append(entries, EntryDTO{
			ProductID: e.ProductID,
			Quantity:  e.Quantity,
			Product:   product.NewProductDTO(lookup[e.ProductID]),
		})
	}
	return &CartDTO{
		ID:        c.ID,
		Products:  entries,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
