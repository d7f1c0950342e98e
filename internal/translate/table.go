// Package translate loads the source-locale to canonical term table used by
// the listing parser and the normalization pipeline.
package translate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Table is a read-only term mapping. Unknown terms translate to themselves.
type Table struct {
	terms map[string]string
}

// New builds a table from an in-memory mapping. The map is copied.
func New(terms map[string]string) *Table {
	t := &Table{terms: make(map[string]string, len(terms))}
	for k, v := range terms {
		t.terms[k] = v
	}
	return t
}

// Load reads a flat key/value mapping from a .json, .yaml or .yml file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read translation table: %w", err)
	}

	terms := make(map[string]string)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &terms); err != nil {
			return nil, fmt.Errorf("parse translation table %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &terms); err != nil {
			return nil, fmt.Errorf("parse translation table %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported translation table format %q (valid: .json, .yaml, .yml)", ext)
	}

	return &Table{terms: terms}, nil
}

// Lookup returns the canonical term and whether the table knows it.
func (t *Table) Lookup(term string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.terms[term]
	return v, ok
}

// Translate returns the canonical term, or term unchanged when it is unknown.
func (t *Table) Translate(term string) string {
	if v, ok := t.Lookup(term); ok {
		return v
	}
	return term
}

// Len returns the number of known terms.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.terms)
}
