package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize    = 50
	DefaultMaxPageSize = 100

	// Query parameter names accepted by list endpoints.
	QueryPageSize  = "page_size"
	QueryPageToken = "page_token"
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid page_size")
	ErrInvalidPageToken = errors.New("pagination: invalid page_token")
)

// Params is a validated page request. Cursor is the decoded form of PageToken.
type Params struct {
	PageSize  int
	PageToken string
	Cursor    Cursor
}

// Options bound page sizes for one endpoint. Zero values fall back to the package defaults.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (o Options) limits() (def, max int) {
	max = o.MaxPageSize
	if max <= 0 {
		max = DefaultMaxPageSize
	}
	def = o.DefaultPageSize
	if def <= 0 {
		def = DefaultPageSize
	}
	return min(def, max), max
}

// FromRequest reads page_size and page_token from the request query.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse validates page_size and page_token. Oversized pages are clamped; malformed tokens are
// rejected up front so stores never see them.
func Parse(values url.Values, opts Options) (Params, error) {
	def, max := opts.limits()
	params := Params{PageSize: def}

	if raw := strings.TrimSpace(values.Get(QueryPageSize)); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
		}
		if size <= 0 {
			return Params{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
		}
		params.PageSize = min(size, max)
	}

	if raw := strings.TrimSpace(values.Get(QueryPageToken)); raw != "" {
		cursor, err := DecodeToken(raw)
		if err != nil {
			return Params{}, err
		}
		params.PageToken = raw
		params.Cursor = cursor
	}
	return params, nil
}
