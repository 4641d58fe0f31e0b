package realtime

import (
	"context"
	"fmt"
	"time"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const detachedTimeout = 10 * time.Second

type productLister interface {
	ListProducts(ctx context.Context, query product.ListQuery) (*product.ListResult, error)
}

// ProductFeed pushes the first catalog page whenever products change.
type ProductFeed struct {
	products productLister
	relay    Relay
	pageSize int
	logg     *logger.Logger
}

// NewProductFeed wires the feed.
func NewProductFeed(products productLister, relay Relay, pageSize int, logg *logger.Logger) (*ProductFeed, error) {
	if products == nil {
		return nil, fmt.Errorf("product service required")
	}
	if relay == nil {
		return nil, fmt.Errorf("relay required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &ProductFeed{products: products, relay: relay, pageSize: pageSize, logg: logg}, nil
}

// Snapshot returns the products currently broadcast on change.
func (f *ProductFeed) Snapshot(ctx context.Context) ([]product.ProductDTO, error) {
	res, err := f.products.ListProducts(ctx, product.ListQuery{Limit: f.pageSize, Page: 1})
	if err != nil {
		return nil, err
	}
	return res.Payload, nil
}

// ProductsChanged re-reads the first page and broadcasts it.
func (f *ProductFeed) ProductsChanged(ctx context.Context) error {
	list, err := f.Snapshot(ctx)
	if err != nil {
		return err
	}
	ev, err := NewEvent(EventProductsUpdated, list)
	if err != nil {
		return err
	}
	return f.relay.Publish(ctx, ev)
}

// NotifyAsync runs ProductsChanged off the request path.
func (f *ProductFeed) NotifyAsync(ctx context.Context) {
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, detachedTimeout)
		defer cancel()
		if err := f.ProductsChanged(ctx); err != nil {
			f.logg.Error(ctx, "realtime.products_changed_failed", err)
		}
	}()
}
