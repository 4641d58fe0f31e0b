package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// DefaultMaxAttempts bounds the read-modify-write retries of one mutation.
const DefaultMaxAttempts = 3

// Service exposes cart operations.
type Service interface {
	CreateCart(ctx context.Context) (*CartDTO, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*CartDTO, error)
	AddToCart(ctx context.Context, cartID, productID uuid.UUID) (*CartDTO, error)
	RemoveFromCart(ctx context.Context, cartID, productID uuid.UUID) (*CartDTO, error)
	SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*CartDTO, error)
	AddMany(ctx context.Context, cartID uuid.UUID, items []ItemInput) (*CartDTO, error)
	EmptyCart(ctx context.Context, cartID uuid.UUID) (*CartDTO, error)
	RemoveProductReferences(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error
}

// ItemInput is one requested line of a batch add.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Repo        CartRepository
	Products    ProductLookup
	Logger      *logger.Logger
	MaxAttempts int
}

type service struct {
	repo        CartRepository
	products    ProductLookup
	logg        *logger.Logger
	maxAttempts int
}

// NewService constructs the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:        params.Repo,
		products:    params.Products,
		logg:        logg,
		maxAttempts: attempts,
	}, nil
}

// ParseID converts a path parameter into a cart id.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart id")
	}
	return id, nil
}

func (s *service) CreateCart(ctx context.Context) (*CartDTO, error) {
	created, err := s.repo.Create(ctx, &models.Cart{Products: dbtypes.JSONList[models.CartEntry]{}})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cart")
	}
	return NewCartDTO(created, nil), nil
}

func (s *service) GetCart(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	c, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, c)
}

func (s *service) AddToCart(ctx context.Context, cartID, productID uuid.UUID) (*CartDTO, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, cartID, func(e entries) (entries, error) {
		return e.add(productID, 1), nil
	})
}

func (s *service) RemoveFromCart(ctx context.Context, cartID, productID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, cartID, func(e entries) (entries, error) {
		i := e.index(productID)
		if i < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
		}
		return e.decrement(i), nil
	})
}

func (s *service) SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	return s.mutate(ctx, cartID, func(e entries) (entries, error) {
		i := e.index(productID)
		if i < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not in the cart")
		}
		e[i].Quantity = quantity
		return e, nil
	})
}

// AddMany validates the whole batch before the single write. Duplicate
// products inside the batch are summed.
func (s *service) AddMany(ctx context.Context, cartID uuid.UUID, items []ItemInput) (*CartDTO, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "products must contain at least one entry")
	}
	if _, err := s.load(ctx, cartID); err != nil {
		return nil, err
	}

	parsed, err := s.validateItems(ctx, items)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, cartID, func(e entries) (entries, error) {
		for _, entry := range parsed {
			e = e.add(entry.ProductID, entry.Quantity)
		}
		return e, nil
	})
}

func (s *service) EmptyCart(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, cartID, func(entries) (entries, error) {
		return entries{}, nil
	})
}

// RemoveProductReferences drops productID from every cart inside tx.
func (s *service) RemoveProductReferences(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	carts, err := repo.FindReferencing(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find carts referencing product")
	}

	touched := 0
	for i := range carts {
		c := &carts[i]
		current := entries(c.Products)
		if current.index(productID) < 0 {
			continue
		}
		c.Products = dbtypes.JSONList[models.CartEntry](current.without(productID))
		ok, err := repo.UpdateIfVersion(ctx, c, c.Version)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart changed while removing product references")
		}
		touched++
	}

	if touched > 0 {
		ctx = s.logg.WithFields(ctx, map[string]any{"product_id": productID.String(), "carts": touched})
		s.logg.Info(ctx, "cart.references_removed")
	}
	return nil
}

type mutation func(entries) (entries, error)

// mutate runs a read-modify-write cycle guarded by the cart version. A
// mismatch re-reads the cart and re-applies fn.
func (s *service) mutate(ctx context.Context, cartID uuid.UUID, fn mutation) (*CartDTO, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		c, err := s.load(ctx, cartID)
		if err != nil {
			return nil, err
		}

		working := append(entries(nil), c.Products...)
		next, err := fn(working)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = entries{}
		}

		expected := c.Version
		c.Products = dbtypes.JSONList[models.CartEntry](next)
		ok, err := s.repo.UpdateIfVersion(ctx, c, expected)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart")
		}
		if ok {
			return s.populate(ctx, c)
		}

		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"cart_id": cartID.String(),
			"attempt": attempt,
		}), "cart.version_conflict")
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart was modified concurrently, retry the request").
		WithDetails(map[string]any{"cartId": cartID.String(), "attempts": s.maxAttempts})
}

func (s *service) load(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	c, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find cart")
	}
	return c, nil
}

func (s *service) ensureProduct(ctx context.Context, productID uuid.UUID) error {
	_, err := s.products.FindByID(ctx, productID)
	return err
}

func (s *service) populate(ctx context.Context, c *models.Cart) (*CartDTO, error) {
	lookup, err := s.products.FindByIDs(ctx, entries(c.Products).productIDs())
	if err != nil {
		return nil, err
	}
	return NewCartDTO(c, lookup), nil
}

type itemProblem struct {
	Index     int    `json:"index"`
	ProductID string `json:"productId"`
	Reason    string `json:"reason"`
}

func (s *service) validateItems(ctx context.Context, items []ItemInput) ([]models.CartEntry, error) {
	var (
		errs     error
		problems []itemProblem
		parsed   = make([]models.CartEntry, 0, len(items))
		ids      = make([]uuid.UUID, 0, len(items))
	)
	reject := func(i int, item ItemInput, reason string) {
		problems = append(problems, itemProblem{Index: i, ProductID: item.ProductID, Reason: reason})
		errs = multierr.Append(errs, fmt.Errorf("products[%d]: %s", i, reason))
	}

	for i, item := range items {
		id, err := uuid.Parse(strings.TrimSpace(item.ProductID))
		if err != nil {
			reject(i, item, "invalid product id")
			continue
		}
		if item.Quantity <= 0 {
			reject(i, item, "quantity must be greater than zero")
			continue
		}
		parsed = append(parsed, models.CartEntry{ProductID: id, Quantity: item.Quantity})
		ids = append(ids, id)
	}

	if len(ids) > 0 {
		found, err := s.products.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			id, err := uuid.Parse(strings.TrimSpace(item.ProductID))
			if err != nil || item.Quantity <= 0 {
				continue
			}
			if _, ok := found[id]; !ok {
				reject(i, item, "product not found")
			}
		}
	}

	if errs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errs, "one or more cart entries are invalid").
			WithDetails(map[string]any{"entries": problems})
	}
	return parsed, nil
}
