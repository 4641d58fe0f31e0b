package product

import "github.com/angelmondragon/storefront-backend/pkg/pagination"

// ListQuery captures the browse inputs. BaseURL is the request URL without
// its query string and is used for page links.
type ListQuery struct {
	Limit     int
	Page      int
	Sort      string
	Category  string
	Available *bool
	BaseURL   string
}

// ListResult is one page of products with its paging metadata.
type ListResult struct {
	Payload []ProductDTO `json:"payload"`
	pagination.Meta
	PrevLink *string `json:"prevLink"`
	NextLink *string `json:"nextLink"`
}
