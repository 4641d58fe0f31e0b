package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// entries is the in-memory cart document being mutated.
type entries []models.CartEntry

func (e entries) index(productID uuid.UUID) int {
	for i := range e {
		if e[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// add increments an existing line or appends a new one.
func (e entries) add(productID uuid.UUID, qty int) entries {
	if i := e.index(productID); i >= 0 {
		e[i].Quantity += qty
		return e
	}
	return append(e, models.CartEntry{ProductID: productID, Quantity: qty})
}

// decrement lowers a line by one, dropping it at zero.
func (e entries) decrement(i int) entries {
	e[i].Quantity--
	if e[i].Quantity > 0 {
		return e
	}
	return append(e[:i], e[i+1:]...)
}

// without returns the entries that do not reference productID.
func (e entries) without(productID uuid.UUID) entries {
	out := make(entries, 0, len(e))
	for _, entry := range e {
		if entry.ProductID != productID {
			out = append(out, entry)
		}
	}
	return out
}

func (e entries) productIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e))
	for _, entry := range e {
		ids = append(ids, entry.ProductID)
	}
	return ids
}
