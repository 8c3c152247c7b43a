package assets

import (
	"context"
	"fmt"
)

// PageStyle is the query-parameter convention of a list endpoint.
type PageStyle int

const (
	PageStartCount  PageStyle = iota // start/count (dashboards)
	PagePageSize                     // page/page_size (monitors)
	PageOffsetLimit                  // offset/limit (SLOs)
)

// Pagination holds pagination state for list requests.
type Pagination struct {
	Style  PageStyle
	Offset int // item offset for start/count and offset/limit
	Page   int // page index for page/page_size
	Size   int
}

// NewPagination starts at the first page.
func NewPagination(style PageStyle, size int) *Pagination {
	return &Pagination{Style: style, Size: size}
}

// FormatURL appends the pagination parameters to path.
func (p *Pagination) FormatURL(path string) string {
	switch p.Style {
	case PagePageSize:
		return fmt.Sprintf("%s?page=%d&page_size=%d", path, p.Page, p.Size)
	case PageOffsetLimit:
		return fmt.Sprintf("%s?offset=%d&limit=%d", path, p.Offset, p.Size)
	default:
		return fmt.Sprintf("%s?start=%d&count=%d", path, p.Offset, p.Size)
	}
}

// Next advances past a page of itemsReceived items.
// Returns true if there might be more pages.
func (p *Pagination) Next(itemsReceived int) bool {
	if itemsReceived == 0 || itemsReceived < p.Size {
		return false
	}
	p.Offset += itemsReceived
	p.Page++
	return true
}

// List fetches every item of a collection, following pagination. It stops
// early if a page brings no unseen id, so an endpoint that ignores the
// paging parameters cannot loop forever.
func List(ctx context.Context, api API, kind Kind, pageSize int) ([]map[string]any, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	p := NewPagination(kind.Paging, pageSize)
	seen := map[string]bool{}

	var all []map[string]any
	for {
		body, err := api.Do(ctx, "GET", p.FormatURL(kind.Path), nil)
		if err != nil {
			return nil, err
		}
		items, err := kind.items(body)
		if err != nil {
			return nil, err
		}

		// Only unseen ids count as progress; id-less items are kept but
		// cannot keep the loop going.
		fresh := 0
		for _, item := range items {
			id := idString(item["id"])
			if id != "" && seen[id] {
				continue
			}
			all = append(all, item)
			if id != "" {
				seen[id] = true
				fresh++
			}
		}
		if fresh == 0 || !p.Next(len(items)) {
			return all, nil
		}
	}
}
