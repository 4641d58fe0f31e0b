package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
	// FirstPage is the 1-based index of the first page.
	FirstPage = 1
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Limit int
	Page  int
}

// Normalize applies defaults and bounds to both fields.
func (p Params) Normalize() Params {
	page := p.Page
	if page < FirstPage {
		page = FirstPage
	}
	return Params{Limit: NormalizeLimit(p.Limit), Page: page}
}

// Offset returns the row offset for the page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Meta describes where a page sits within the full result set.
type Meta struct {
	TotalDocs   int64 `json:"totalDocs"`
	Limit       int   `json:"limit"`
	Page        int   `json:"page"`
	TotalPages  int   `json:"totalPages"`
	HasPrevPage bool  `json:"hasPrevPage"`
	HasNextPage bool  `json:"hasNextPage"`
	PrevPage    *int  `json:"prevPage"`
	NextPage    *int  `json:"nextPage"`
}

// NewMeta computes page metadata for total matching rows.
func NewMeta(params Params, total int64) Meta {
	p := params.Normalize()
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	if totalPages < 1 {
		totalPages = 1
	}

	meta := Meta{
		TotalDocs:  total,
		Limit:      p.Limit,
		Page:       p.Page,
		TotalPages: totalPages,
	}
	if p.Page > FirstPage {
		prev := p.Page - 1
		meta.HasPrevPage = true
		meta.PrevPage = &prev
	}
	if p.Page < totalPages {
		next := p.Page + 1
		meta.HasNextPage = true
		meta.NextPage = &next
	}
	return meta
}

// Links returns previous/next page URLs built from baseURL. extra carries the
// non-paging query parameters to preserve. Missing pages yield nil.
func (m Meta) Links(baseURL string, extra url.Values) (prev, next *string) {
	if baseURL == "" {
		return nil, nil
	}
	build := func(page int) *string {
		q := url.Values{}
		for k, vs := range extra {
			for _, v := range vs {
				if v != "" {
					q.Add(k, v)
				}
			}
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(m.Limit))
		link := baseURL + "?" + q.Encode()
		return &link
	}
	if m.PrevPage != nil {
		prev = build(*m.PrevPage)
	}
	if m.NextPage != nil {
		next = build(*m.NextPage)
	}
	return prev, next
}
