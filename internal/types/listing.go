package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Reserved document keys. They are stored alongside the extracted fields so
// one listing is one flat document.
const (
	FieldURL   = "url"
	FieldID    = "Id"
	FieldTitle = "Title"
)

// idLength is how many trailing URL characters make up a listing id.
const idLength = 8

// Listing is the raw record extracted from one ad's detail page. It is keyed
// by URL and never deleted once stored.
type Listing struct {
	// URL is the listing's stable identity across runs.
	URL string

	// ID is the last 8 characters of URL.
	ID string

	// Title is the ad headline.
	Title string

	// Fields holds extracted values. Each value is a string, an int64 or nil.
	Fields map[string]any
}

// NewListing creates an empty Listing for a detail page URL.
func NewListing(rawURL string) *Listing {
	u := strings.TrimSpace(rawURL)
	return &Listing{
		URL:    u,
		ID:     ListingID(u),
		Fields: make(map[string]any),
	}
}

// ListingID returns the last 8 characters of a URL.
func ListingID(rawURL string) string {
	r := []rune(strings.TrimSpace(rawURL))
	if len(r) <= idLength {
		return string(r)
	}
	return string(r[len(r)-idLength:])
}

// Set sets a field value, replacing any previous value.
func (l *Listing) Set(key string, value any) {
	l.Fields[key] = value
}

// Get retrieves a field value.
func (l *Listing) Get(key string) (any, bool) {
	v, ok := l.Fields[key]
	return v, ok
}

// Has returns true if the field exists, even when its value is nil.
func (l *Listing) Has(key string) bool {
	_, ok := l.Fields[key]
	return ok
}

// Keys returns all field names in sorted order.
func (l *Listing) Keys() []string {
	keys := make([]string, 0, len(l.Fields))
	for k := range l.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document flattens the listing into the map persisted by a record store.
func (l *Listing) Document() map[string]any {
	doc := make(map[string]any, len(l.Fields)+3)
	for k, v := range l.Fields {
		doc[k] = v
	}
	doc[FieldURL] = l.URL
	doc[FieldID] = l.ID
	doc[FieldTitle] = l.Title
	return doc
}

// MarshalJSON encodes the listing as its flat document.
func (l *Listing) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Document())
}

// ListingFromDocument rebuilds a Listing from a stored document. Store-internal
// keys starting with an underscore are discarded and numeric values are
// narrowed back to int64 where they are integral.
func ListingFromDocument(doc map[string]any) (*Listing, error) {
	rawURL, _ := doc[FieldURL].(string)
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("document has no %q key: %w", FieldURL, ErrInvalidURL)
	}

	l := NewListing(rawURL)
	if id, ok := doc[FieldID].(string); ok && id != "" {
		l.ID = id
	}
	if title, ok := doc[FieldTitle].(string); ok {
		l.Title = title
	}

	for k, v := range doc {
		switch {
		case k == FieldURL, k == FieldID, k == FieldTitle:
			continue
		case strings.HasPrefix(k, "_"):
			continue
		}
		l.Fields[k] = NormalizeValue(v)
	}
	return l, nil
}

// NormalizeValue narrows a decoded store value to string, int64 or nil.
// BSON decodes integers as int32/int64 and JSON decodes them as float64.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return int64(val)
		}
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		return val.String()
	case bool:
		return val
	default:
		return fmt.Sprint(val)
	}
}
