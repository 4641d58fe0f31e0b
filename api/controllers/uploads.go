package controllers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/storage"
)

func saveUpload(ctx context.Context, store storage.Store, filename string, open func() (multipart.File, error)) (string, error) {
	f, err := open()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
	}
	defer f.Close()

	upload, err := storage.Prepare(filename, f)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return "", pkgerrors.Newf(pkgerrors.CodeValidation, "%s: only images are accepted", filename).
				WithDetails(map[string]any{"file": filename})
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
	}

	url, err := store.Save(ctx, upload.ObjectName, upload.ContentType, upload.Body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}
	return url, nil
}

// requestBaseURL rebuilds scheme, host and path of the request without the
// query string.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(fwd, ",")[0]))
	}
	return scheme + "://" + r.Host + r.URL.Path
}
