package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrUnsupportedType is returned when an upload is not an accepted image.
var ErrUnsupportedType = errors.New("unsupported file type")

// sniffLen is how many leading bytes mimetype needs for image detection.
const sniffLen = 3072

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

// Store persists uploaded thumbnails and returns the URL they are served at.
type Store interface {
	Save(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// Upload is a sniffed file ready to be handed to a Store.
type Upload struct {
	ObjectName  string
	ContentType string
	Body        io.Reader
}

// Prepare sniffs the content type from the first bytes of r, rejects anything
// that is not an image, and derives a collision-free object name that keeps a
// sanitized form of the original filename.
func Prepare(originalName string, r io.Reader) (*Upload, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}

	detected := mimetype.Detect(head)
	base := detected.String()
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	ext, ok := allowedImageTypes[base]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, base)
	}

	return &Upload{
		ObjectName:  objectNameFor(originalName, ext),
		ContentType: base,
		Body:        io.MultiReader(bytes.NewReader(head), r),
	}, nil
}

func objectNameFor(originalName, ext string) string {
	stem := strings.TrimSuffix(path.Base(strings.ReplaceAll(originalName, "\\", "/")), path.Ext(originalName))
	stem = sanitize(stem)
	if stem == "" {
		stem = "thumbnail"
	}
	return fmt.Sprintf("%s-%s%s", uuid.NewString()[:8], stem, ext)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
