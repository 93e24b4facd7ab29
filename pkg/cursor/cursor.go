// Package cursor implements stateless cursor pagination: the next page is
// requested with the id of the last item of the previous page, and a page is
// considered full (hasNextPage) iff it returned exactly the requested limit.
package cursor

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds cursor pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Cursor string
}

// FromContext extracts limit and cursor from the echo context. The limit is
// clamped to [1, MaxLimit] and defaults to def when missing or malformed.
func FromContext(c echo.Context, def int) Params {
	if def <= 0 {
		def = DefaultLimit
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = def
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Limit: limit, Cursor: c.QueryParam("cursor")}
}

// PageInfo carries the has-next flag and the cursor for the following page.
type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	NextCursor  *string `json:"nextCursor"`
}

// Page is the standard list response envelope.
type Page[T any] struct {
	Items    []T      `json:"items"`
	PageInfo PageInfo `json:"pageInfo"`
}

// NewPage wraps items in a Page. lastID must be the id of the final item;
// the next cursor is set iff the page came back full.
func NewPage[T any](items []T, limit int, lastID func(T) string) Page[T] {
	page := Page[T]{Items: items}
	if page.Items == nil {
		page.Items = []T{}
	}
	if len(items) == limit && limit > 0 {
		id := lastID(items[len(items)-1])
		page.PageInfo = PageInfo{HasNextPage: true, NextCursor: &id}
	}
	return page
}
