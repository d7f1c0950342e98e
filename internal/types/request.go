package types

import (
	"fmt"
	"net/url"
	"time"
)

// Page kinds a request can target.
const (
	TagCatalog = "catalog"
	TagResults = "results"
	TagDetail  = "detail"
)

// Request is a single GET of a catalog page.
type Request struct {
	URL *url.URL

	// Tag names the page kind, used in logs.
	Tag string

	// Timeout bounds the fetch when positive.
	Timeout time.Duration
}

// NewRequest parses rawURL, which must be an absolute http(s) URL.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return &Request{URL: u}, nil
}

// URLString returns the request URL, or "" when unset.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
