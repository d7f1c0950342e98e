package pipeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/IshaanNene/carharvest/internal/extract"
	"github.com/IshaanNene/carharvest/internal/types"
)

// ErrNotInteger is the cause of a RowTypeError for a non-integer value.
var ErrNotInteger = errors.New("value is not an integer")

// Step is one pure transform of the normalization pipeline. Row-level
// exclusions are recorded in rep; a returned error aborts the whole pass.
type Step interface {
	// Name returns the step's identifier.
	Name() string

	// Apply returns a new table. The input table is not modified.
	Apply(in *Table, rep *Report) (*Table, error)
}

// DropColumns removes columns. Missing columns are ignored.
type DropColumns struct {
	Label   string
	Columns []string
}

func (s *DropColumns) Name() string { return s.Label }

func (s *DropColumns) Apply(in *Table, rep *Report) (*Table, error) {
	drop := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		drop[c] = true
	}

	var columns []string
	for _, c := range in.columns {
		if !drop[c] {
			columns = append(columns, c)
		}
	}

	return in.mapRows(columns, func(r Row) (Row, bool) {
		for c := range drop {
			delete(r.Values, c)
		}
		return r, true
	}), nil
}

// FilterNull removes rows whose column is absent or null.
type FilterNull struct {
	Column string
}

func (s *FilterNull) Name() string { return "filter_null_" + s.Column }

func (s *FilterNull) Apply(in *Table, rep *Report) (*Table, error) {
	return in.mapRows(in.Header(), func(r Row) (Row, bool) {
		if v, ok := r.Get(s.Column); !ok || v == nil {
			rep.filter(r)
			return r, false
		}
		return r, true
	}), nil
}

// RetypeInt coerces a column to int64. A row whose value cannot be coerced
// is excluded with a *types.RowTypeError.
type RetypeInt struct {
	Column string
}

func (s *RetypeInt) Name() string { return "retype_int_" + s.Column }

func (s *RetypeInt) Apply(in *Table, rep *Report) (*Table, error) {
	return in.mapRows(in.Header(), func(r Row) (Row, bool) {
		v, ok := r.Get(s.Column)
		if !ok {
			return r, true
		}
		n, err := toInt(v)
		if err != nil {
			rep.exclude(r, &types.RowTypeError{Row: r.Source, Column: s.Column, Value: v, Err: err})
			return r, false
		}
		r.Values[s.Column] = n
		return r, true
	}), nil
}

// DeriveManufactureDate splits a "YYYY/MM" column into year and month.
type DeriveManufactureDate struct {
	Source, Year, Month string
}

func (s *DeriveManufactureDate) Name() string { return "derive_manufacture_date" }

func (s *DeriveManufactureDate) Apply(in *Table, rep *Report) (*Table, error) {
	return in.mapRows(in.withColumns(s.Year, s.Month), func(r Row) (Row, bool) {
		date, ok := stringValue(r.Values[s.Source])
		if !ok {
			r.Values[s.Year] = nil
			r.Values[s.Month] = nil
			return r, true
		}
		r.Values[s.Year] = extract.ManufactureYear(date).Nullable()
		r.Values[s.Month] = extract.ManufactureMonth(date).Nullable()
		return r, true
	}), nil
}

// RenameColumns renames columns by a fixed map. Other columns pass through.
// A renamed column replaces an existing column of the same name.
type RenameColumns struct {
	Names map[string]string
}

func (s *RenameColumns) Name() string { return "rename_columns" }

func (s *RenameColumns) Apply(in *Table, rep *Report) (*Table, error) {
	replaced := make(map[string]bool, len(s.Names))
	for from, to := range s.Names {
		if in.HasColumn(from) {
			replaced[to] = true
		}
	}

	var columns []string
	for _, c := range in.columns {
		if to, ok := s.Names[c]; ok {
			columns = append(columns, to)
		} else if !replaced[c] {
			columns = append(columns, c)
		}
	}

	return in.mapRows(columns, func(r Row) (Row, bool) {
		renamed := make(map[string]any, len(r.Values))
		for k, v := range r.Values {
			if _, isSource := s.Names[k]; !isSource && !replaced[k] {
				renamed[k] = v
			}
		}
		for from, to := range s.Names {
			if v, ok := r.Values[from]; ok {
				renamed[to] = v
			}
		}
		r.Values = renamed
		return r, true
	}), nil
}

// TranslateColumns looks categorical values up in the translation table.
// InPlace columns are replaced; Derived maps a new column to its source.
type TranslateColumns struct {
	Dict    extract.Dictionary
	InPlace []string
	Derived map[string]string
}

func (s *TranslateColumns) Name() string { return "translate_columns" }

func (s *TranslateColumns) Apply(in *Table, rep *Report) (*Table, error) {
	derived := make([]string, 0, len(s.Derived))
	for target := range s.Derived {
		derived = append(derived, target)
	}
	sort.Strings(derived)

	return in.mapRows(in.withColumns(derived...), func(r Row) (Row, bool) {
		for _, c := range s.InPlace {
			if v, ok := r.Values[c]; ok {
				r.Values[c] = s.translate(v)
			}
		}
		for _, target := range derived {
			r.Values[target] = s.translate(r.Values[s.Derived[target]])
		}
		return r, true
	}), nil
}

func (s *TranslateColumns) translate(v any) any {
	str, ok := v.(string)
	if !ok {
		return v
	}
	return extract.Translate(s.Dict, str)
}

// DeriveGears reads the gear count from the transmission column.
type DeriveGears struct {
	Source, Target string
}

func (s *DeriveGears) Name() string { return "derive_gears" }

func (s *DeriveGears) Apply(in *Table, rep *Report) (*Table, error) {
	return in.mapRows(in.withColumns(s.Target), func(r Row) (Row, bool) {
		raw, _ := stringValue(r.Values[s.Source])
		r.Values[s.Target] = extract.Gears(raw).Nullable()
		return r, true
	}), nil
}

// ColorFunc splits a raw color into paint name and metallic flag.
type ColorFunc func(raw string, d extract.Dictionary) (paint, metallic extract.Result)

// DeriveColor derives paint and metallic columns from the raw color column.
type DeriveColor struct {
	Source, Paint, Metallic string
	Dict                    extract.Dictionary
	Split                   ColorFunc
}

func (s *DeriveColor) Name() string { return "derive_color" }

func (s *DeriveColor) Apply(in *Table, rep *Report) (*Table, error) {
	if s.Split == nil {
		return nil, fmt.Errorf("%s: no color strategy", s.Name())
	}
	return in.mapRows(in.withColumns(s.Paint, s.Metallic), func(r Row) (Row, bool) {
		raw, ok := stringValue(r.Values[s.Source])
		if !ok {
			r.Values[s.Paint] = nil
			r.Values[s.Metallic] = nil
			return r, true
		}
		paint, metallic := s.Split(raw, s.Dict)
		r.Values[s.Paint] = paint.Nullable()
		r.Values[s.Metallic] = metallic.Nullable()
		return r, true
	}), nil
}

// stringValue returns v as a string. Null and absent values report false.
func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	default:
		return fmt.Sprint(val), true
	}
}

// toInt coerces a stored value to int64.
func toInt(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) || math.IsNaN(val) {
			return 0, ErrNotInteger
		}
		return int64(val), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		return n, nil
	default:
		return 0, ErrNotInteger
	}
}
