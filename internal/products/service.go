package product

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes catalog management operations.
type Service interface {
	AddProduct(ctx context.Context, fields Fields) (*ProductDTO, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, fields Fields) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, query ListQuery) (*ListResult, error)
}

// ReferenceCleaner drops references to a deleted product inside the delete
// transaction.
type ReferenceCleaner interface {
	RemoveProductReferences(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	cleaner  ReferenceCleaner
	policy   string
}

// NewService constructs a product service. cleaner may be nil when policy is
// keep.
func NewService(repo *Repository, dbClient *db.Client, cleaner ReferenceCleaner, policy string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	switch policy {
	case "":
		policy = config.DanglingKeep
	case config.DanglingKeep:
	case config.DanglingCascade:
		if cleaner == nil {
			return nil, fmt.Errorf("reference cleaner required for %s policy", policy)
		}
	default:
		return nil, fmt.Errorf("unknown dangling reference policy %q", policy)
	}
	return &service{repo: repo, dbClient: dbClient, cleaner: cleaner, policy: policy}, nil
}

// ParseID converts a path parameter into a product id.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	return id, nil
}

func (s *service) AddProduct(ctx context.Context, fields Fields) (*ProductDTO, error) {
	product := &models.Product{Status: true, Thumbnails: dbtypes.JSONList[string]{}}
	if err := requireCreateFields(fields); err != nil {
		return nil, err
	}
	if err := applyFields(product, fields); err != nil {
		return nil, err
	}

	taken, err := s.repo.CodeTaken(ctx, product.Code, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, codeConflict(product.Code)
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "ux_products_code") {
			return nil, codeConflict(product.Code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(product), nil
}

func (s *service) GetProductByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, fields Fields) (*ProductDTO, error) {
	if fields.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousCode := product.Code
	if err := applyFields(product, fields); err != nil {
		return nil, err
	}

	if product.Code != previousCode {
		taken, err := s.repo.CodeTaken(ctx, product.Code, product.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, codeConflict(product.Code)
		}
	}

	if err := s.repo.Save(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "ux_products_code") {
			return nil, codeConflict(product.Code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return NewProductDTO(product), nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		if s.policy == config.DanglingCascade {
			return s.cleaner.RemoveProductReferences(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) ListProducts(ctx context.Context, query ListQuery) (*ListResult, error) {
	sort := strings.ToLower(strings.TrimSpace(query.Sort))
	switch sort {
	case SortNone, SortAsc, SortDesc:
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "sort must be %q or %q", SortAsc, SortDesc)
	}

	params := pagination.Params{Limit: query.Limit, Page: query.Page}.Normalize()
	rows, total, err := s.repo.List(ctx, ListFilter{
		Category:  strings.TrimSpace(query.Category),
		Available: query.Available,
		Sort:      sort,
		Limit:     params.Limit,
		Offset:    params.Offset(),
	})
	if err != nil {
		return nil, err
	}

	meta := pagination.NewMeta(params, total)
	extra := url.Values{}
	extra.Set("sort", sort)
	extra.Set("category", strings.TrimSpace(query.Category))
	if query.Available != nil {
		extra.Set("available", fmt.Sprintf("%t", *query.Available))
	}
	prev, next := meta.Links(query.BaseURL, extra)

	return &ListResult{
		Payload:  NewProductDTOs(rows),
		Meta:     meta,
		PrevLink: prev,
		NextLink: next,
	}, nil
}

func codeConflict(code string) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "a product with code %q already exists", code)
}

func requireCreateFields(f Fields) error {
	var missing []string
	if f.Title == nil {
		missing = append(missing, FieldTitle)
	}
	if f.Description == nil {
		missing = append(missing, FieldDescription)
	}
	if f.Code == nil {
		missing = append(missing, FieldCode)
	}
	if f.Price == nil {
		missing = append(missing, FieldPrice)
	}
	if f.Stock == nil {
		missing = append(missing, FieldStock)
	}
	if f.Category == nil {
		missing = append(missing, FieldCategory)
	}
	if len(missing) > 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "missing required fields: %s", strings.Join(missing, ", ")).
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}

// applyFields validates and shallow-copies every supplied field onto p.
// maxPrice is the largest value numeric(12,2) holds.
var maxPrice = decimal.RequireFromString("9999999999.99")

func applyFields(p *models.Product, f Fields) error {
	setText := func(dst *string, v *string, name string) error {
		if v == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", name)
		}
		*dst = trimmed
		return nil
	}
	if err := setText(&p.Title, f.Title, FieldTitle); err != nil {
		return err
	}
	if err := setText(&p.Description, f.Description, FieldDescription); err != nil {
		return err
	}
	if err := setText(&p.Code, f.Code, FieldCode); err != nil {
		return err
	}
	if err := setText(&p.Category, f.Category, FieldCategory); err != nil {
		return err
	}
	if f.Price != nil {
		price, err := f.Price.Decimal(FieldPrice)
		if err != nil {
			return err
		}
		if price.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or greater")
		}
		if price.Round(2).GreaterThan(maxPrice) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "price must be at most %s", maxPrice.StringFixed(2))
		}
		p.Price = price
	}
	if f.Stock != nil {
		stock, err := f.Stock.Int(FieldStock)
		if err != nil {
			return err
		}
		if stock < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock must be zero or greater")
		}
		p.Stock = stock
	}
	if f.Status != nil {
		p.Status = *f.Status
	}
	if f.Thumbnails != nil {
		p.Thumbnails = dbtypes.JSONList[string](append([]string{}, (*f.Thumbnails)...))
	}
	return nil
}
