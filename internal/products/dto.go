package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ProductDTO is the public product shape. Price is rendered as a JSON number.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Status      bool      `json:"status"`
	Category    string    `json:"category"`
	Thumbnails  []string  `json:"thumbnails"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewProductDTO maps a product row.
func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	price, _ := p.Price.Float64()
	thumbs := []string(p.Thumbnails.Clone())
	if thumbs == nil {
		thumbs = []string{}
	}
	return &ProductDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Code:        p.Code,
		Price:       price,
		Stock:       p.Stock,
		Status:      p.Status,
		Category:    p.Category,
		Thumbnails:  thumbs,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewProductDTOs maps a slice of rows, keeping order.
func NewProductDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i]))
	}
	return out
}
