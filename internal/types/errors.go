package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrEmptyResponse = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrCrawlStopped  = errors.New("crawl has been stopped")
	ErrNotFound      = errors.New("element not found")
	ErrLayoutChanged = errors.New("catalog layout not recognized")
	ErrBodyTooLarge  = errors.New("response body too large")
)

// DiscoveryError is fatal for a whole discovery run: the catalog root could
// not be fetched or its last-page indicator is missing.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery error for %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// FetchError wraps errors that occur during fetching, including non-2xx
// responses. A failed results page is recoverable; so is a failed detail page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is returned when a detail page was fetched but an expected
// structural element is missing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractionError is returned when a single field's text does not match the
// pattern its rule requires. The whole listing is dropped.
type ExtractionError struct {
	Field string
	Value string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error for field %q (value=%q): %v", e.Field, e.Value, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RowTypeError is returned during normalization when a field cannot be
// coerced to its canonical type. The row is excluded from the output.
type RowTypeError struct {
	Row    int
	Column string
	Value  any
	Err    error
}

func (e *RowTypeError) Error() string {
	return fmt.Sprintf("row %d: column %q (value=%v): %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowTypeError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur in a record store or output writer.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
