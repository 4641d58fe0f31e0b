package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/views"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ProductSnapshot yields the products the live catalog starts from.
type ProductSnapshot interface {
	Snapshot(ctx context.Context) ([]product.ProductDTO, error)
}

// ViewStatic renders a page that needs no data.
func ViewStatic(renderer *views.Renderer, page, title string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, renderer, page, title, nil, logg)
	}
}

// ViewProducts renders the paginated catalog using the same query
// parameters as the API.
func ViewProducts(renderer *views.Renderer, svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := parseListQuery(r)
		if err != nil {
			renderError(w, r, err, logg)
			return
		}
		result, err := svc.ListProducts(r.Context(), query)
		if err != nil {
			renderError(w, r, err, logg)
			return
		}
		renderPage(w, r, renderer, views.PageProducts, "Products", result, logg)
	}
}

// ViewStaticProducts renders the first catalog page without live updates.
func ViewStaticProducts(renderer *views.Renderer, feed ProductSnapshot, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := feed.Snapshot(r.Context())
		if err != nil {
			renderError(w, r, err, logg)
			return
		}
		renderPage(w, r, renderer, views.PageStaticProducts, "Products", list, logg)
	}
}

// ViewRealtimeProducts renders the catalog page that follows productsUpdated.
func ViewRealtimeProducts(renderer *views.Renderer, feed ProductSnapshot, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := feed.Snapshot(r.Context())
		if err != nil {
			renderError(w, r, err, logg)
			return
		}
		renderPage(w, r, renderer, views.PageRealtimeProducts, "Live catalog", list, logg)
	}
}

// ViewCart renders a cart with its products.
func ViewCart(renderer *views.Renderer, svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, err := cartsvc.ParseID(chi.URLParam(r, "cartId"))
		if err != nil {
			renderError(w, r, err, logg)
			return
		}
		record, err := svc.GetCart(r.Context(), cartID)
		if err != nil {
			renderError(w, r, err, logg)
			return
		}
		renderPage(w, r, renderer, views.PageCart, "Shopping cart", record, logg)
	}
}

func renderPage(w http.ResponseWriter, r *http.Request, renderer *views.Renderer, page, title string, data any, logg *logger.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := renderer.Render(w, page, views.Page{
		Title: title,
		User:  middleware.PrincipalFromContext(r.Context()),
		Data:  data,
	})
	if err != nil && logg != nil {
		logg.Error(logg.WithField(r.Context(), "page", page), "view.render_failed", err)
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error, logg *logger.Logger) {
	status := pkgerrors.Status(err)
	if logg != nil {
		if status >= http.StatusInternalServerError {
			logg.Error(r.Context(), "view.error", err)
		} else {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "view.rejected")
		}
	}
	http.Error(w, pkgerrors.PublicMessage(err), status)
}
