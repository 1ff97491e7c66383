// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultPageSize is the number of rows a list endpoint returns when
// the caller does not ask for a limit.
const DefaultPageSize = 50

// MaxPageSize caps the limit a caller may request.
const MaxPageSize = 200

// Window is a skip/limit pair for Mongo Find().
type Window struct {
	Skip  int64
	Limit int64
}

// All is a window covering every row, for callers that page elsewhere.
var All = Window{}

// FromRequest reads the "start" (1-based row index) and "limit" query
// parameters. Missing or malformed values fall back to the first page
// at DefaultPageSize; limits above MaxPageSize are clamped.
func FromRequest(r *http.Request) Window {
	start := parseInt(query.Get(r, "start"), 1)
	if start < 1 {
		start = 1
	}
	limit := parseInt(query.Get(r, "limit"), DefaultPageSize)
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return Window{Skip: int64(start - 1), Limit: int64(limit)}
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
