package validators

import (
	"errors"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const multipartMemory = 8 << 20

// ParseMultipart reads a multipart body capped at maxBytes and returns the
// files under fileField, at most maxFiles of them. Files under any other
// field are rejected.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64, fileField string, maxFiles int) ([]*multipart.FileHeader, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload too large").
				WithDetails(map[string]any{"maxBytes": maxBytes})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	var unknown []string
	for name := range r.MultipartForm.File {
		if name != fileField {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		_ = r.MultipartForm.RemoveAll()
		sort.Strings(unknown)
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid file fields: %s", strings.Join(unknown, ", ")).
			WithDetails(map[string]any{"fields": unknown})
	}
	files := r.MultipartForm.File[fileField]
	if maxFiles > 0 && len(files) > maxFiles {
		_ = r.MultipartForm.RemoveAll()
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d files may be uploaded", maxFiles)
	}
	return files, nil
}
