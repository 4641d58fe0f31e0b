package validators

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Query reads typed query parameters and collects every problem, so one
// response can name all bad parameters. Getters return the default on error.
type Query struct {
	values   url.Values
	problems map[string]string
	order    []string
}

func QueryOf(r *http.Request) *Query {
	return &Query{values: r.URL.Query(), problems: map[string]string{}}
}

func (q *Query) raw(key string) string {
	return strings.TrimSpace(q.values.Get(key))
}

func (q *Query) fail(key, format string, args ...any) {
	if _, seen := q.problems[key]; !seen {
		q.order = append(q.order, key)
	}
	q.problems[key] = fmt.Sprintf(format, args...)
}

// String returns the trimmed value or "".
func (q *Query) String(key string) string {
	return q.raw(key)
}

// Int parses key within [lo, hi]; absent means def.
func (q *Query) Int(key string, def, lo, hi int) int {
	raw := q.raw(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		q.fail(key, "must be numeric")
		return def
	case n < lo || n > hi:
		q.fail(key, "must be between %d and %d", lo, hi)
		return def
	}
	return n
}

// Bool returns nil when key is absent.
func (q *Query) Bool(key string) *bool {
	raw := q.raw(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(key, "must be true or false")
		return nil
	}
	return &b
}

// Enum lower-cases the value and checks it against allowed; absent means "".
func (q *Query) Enum(key string, allowed ...string) string {
	raw := strings.ToLower(q.raw(key))
	if raw == "" {
		return ""
	}
	if !slices.Contains(allowed, raw) {
		q.fail(key, "must be one of %s", strings.Join(allowed, ", "))
		return ""
	}
	return raw
}

// Err is a VALIDATION error naming the first bad parameter, with all of them
// in the details, or nil.
func (q *Query) Err() error {
	if len(q.order) == 0 {
		return nil
	}
	first := q.order[0]
	return pkgerrors.Newf(pkgerrors.CodeValidation, "%s %s", first, q.problems[first]).WithDetails(q.problems)
}
