package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/storage"
)

// ProductsNotifier is told when the catalog changed so live views refresh.
type ProductsNotifier interface {
	NotifyAsync(ctx context.Context)
}

// UploadOptions bounds multipart product submissions.
type UploadOptions struct {
	MaxBytes int64
	MaxFiles int
}

const thumbnailsField = "thumbnails"

// ProductsList returns a filtered, sorted page of products with navigation links.
func ProductsList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		query, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ProductsGet returns a single product.
func ProductsGet(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := product.ParseID(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetProductByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"product": dto})
	}
}

// ProductsCreate accepts JSON or multipart bodies. Multipart submissions may
// carry image files under "thumbnails"; their public URLs are appended to any
// thumbnails given as fields.
func ProductsCreate(svc product.Service, store storage.Store, notifier ProductsNotifier, opts UploadOptions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var (
			fields product.Fields
			saved  []string
			err    error
		)
		if validators.IsMultipart(r) {
			fields, saved, err = productFieldsFromMultipart(w, r, store, opts, logg)
		} else {
			fields, err = productFieldsFromBody(r)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.AddProduct(ctx, fields)
		if err != nil {
			discardUploads(ctx, store, saved, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if notifier != nil {
			notifier.NotifyAsync(ctx)
		}
		responses.WriteMessage(w, http.StatusOK, "product added", map[string]any{"product": dto})
	}
}

// ProductsUpdate applies a partial field replacement.
func ProductsUpdate(svc product.Service, notifier ProductsNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := product.ParseID(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		fields, err := productFieldsFromBody(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.UpdateProduct(ctx, id, fields)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if notifier != nil {
			notifier.NotifyAsync(ctx)
		}
		responses.WriteMessage(w, http.StatusOK, "product updated", map[string]any{"product": dto})
	}
}

// ProductsDelete removes a product.
func ProductsDelete(svc product.Service, notifier ProductsNotifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := product.ParseID(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteProduct(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if notifier != nil {
			notifier.NotifyAsync(ctx)
		}
		responses.WriteMessage(w, http.StatusOK, "product deleted", nil)
	}
}

func parseListQuery(r *http.Request) (product.ListQuery, error) {
	q := validators.QueryOf(r)
	query := product.ListQuery{
		Limit:     q.Int("limit", pagination.DefaultLimit, 1, pagination.MaxLimit),
		Page:      q.Int("page", pagination.FirstPage, pagination.FirstPage, 1<<20),
		Sort:      q.Enum("sort", product.SortAsc, product.SortDesc),
		Category:  q.String("category"),
		Available: q.Bool("available"),
		BaseURL:   requestBaseURL(r),
	}
	if err := q.Err(); err != nil {
		return product.ListQuery{}, err
	}
	return query, nil
}

func productFieldsFromBody(r *http.Request) (product.Fields, error) {
	if validators.IsForm(r) {
		if err := r.ParseForm(); err != nil {
			return product.Fields{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form body")
		}
		return product.FieldsFromForm(r.PostForm)
	}
	body, err := validators.ReadBody(r)
	if err != nil {
		return product.Fields{}, err
	}
	return product.DecodeFields(body)
}

func productFieldsFromMultipart(w http.ResponseWriter, r *http.Request, store storage.Store, opts UploadOptions, logg *logger.Logger) (product.Fields, []string, error) {
	files, err := validators.ParseMultipart(w, r, opts.MaxBytes, thumbnailsField, opts.MaxFiles)
	if err != nil {
		return product.Fields{}, nil, err
	}
	defer r.MultipartForm.RemoveAll()

	fields, err := product.FieldsFromForm(r.MultipartForm.Value)
	if err != nil {
		return product.Fields{}, nil, err
	}
	if len(files) == 0 {
		return fields, nil, nil
	}
	if store == nil {
		return product.Fields{}, nil, pkgerrors.New(pkgerrors.CodeInternal, "upload storage unavailable")
	}

	ctx := r.Context()
	saved := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := saveUpload(ctx, store, fh.Filename, fh.Open)
		if err != nil {
			discardUploads(ctx, store, saved, logg)
			return product.Fields{}, nil, err
		}
		saved = append(saved, url)
	}
	fields.AppendThumbnails(saved...)
	return fields, saved, nil
}

func discardUploads(ctx context.Context, store storage.Store, urls []string, logg *logger.Logger) {
	for _, url := range urls {
		if err := store.Delete(ctx, url); err != nil && logg != nil {
			logg.Error(logg.WithField(ctx, "url", url), "upload.cleanup_failed", err)
		}
	}
}
