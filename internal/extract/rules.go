package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/IshaanNene/carharvest/internal/types"
)

var (
	leadingDigitsRe = regexp.MustCompile(`(?s)^([0-9]*)(.*)$`)
	powerRe         = regexp.MustCompile(`^([0-9]{2,3})\s+kW,\s+([0-9]{2,3})\s+LE`)

	// separatorReplacer drops thousand separators, NBSPs and the euro marker.
	separatorReplacer = strings.NewReplacer(
		" ", "",
		"\u00a0", "",
		"\u202f", "",
		".", "",
		"€", "",
	)
)

// ErrMalformedPower is returned when a power value is not "<kW> kW, <LE> LE".
var ErrMalformedPower = errors.New(`value does not match "<kW> kW, <LE> LE"`)

// RuleSet maps detail-table labels to the value rule that applies to them.
// Labels outside every set are stored as trimmed text.
type RuleSet struct {
	// NumericFields hold a number followed by a unit; the unit moves into the
	// field name.
	NumericFields map[string]bool

	// CurrencyField is the numeric field whose name is kept bare.
	CurrencyField string

	// DoorField holds a plain integer.
	DoorField string

	// PowerField holds "<kW> kW, <LE> LE" and is stored as horsepower.
	PowerField string

	// EnumeratedFields hold a term from a fixed vocabulary, translated
	// through Dictionary with identity fallback.
	EnumeratedFields map[string]bool

	Dictionary Dictionary
}

// DefaultRuleSet returns the rules for the hasznaltauto.hu detail table.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		NumericFields: map[string]bool{
			"Csomagtartó":             true,
			"Hengerűrtartalom":        true,
			"Kilométeróra állása":     true,
			"Saját tömeg":             true,
			"Szállítható szem. száma": true,
			"Össztömeg":               true,
			"Vételár":                 true,
			"Ár (EUR)":                true,
		},
		EnumeratedFields: map[string]bool{
			"Hajtás":                true,
			"Kivitel":               true,
			"Klíma fajtája":         true,
			"Okmányok jellege":      true,
			"Sebességváltó fajtája": true,
			"Állapot":               true,
			"Üzemanyag":             true,
		},
		CurrencyField: "Ár (EUR)",
		DoorField:     "Ajtók száma",
		PowerField:    "Teljesítmény",
	}
}

// WithDictionary returns a copy of rs that translates enumerated fields
// through d.
func (rs *RuleSet) WithDictionary(d Dictionary) *RuleSet {
	c := *rs
	c.Dictionary = d
	return &c
}

// NormalizeLabel trims a detail-table label and its trailing colon.
func NormalizeLabel(label string) string {
	s := strings.TrimSpace(label)
	s = strings.TrimSuffix(s, ":")
	return strings.TrimSpace(s)
}

// Apply runs the rule for one (label, value) cell pair and returns the field
// name to store it under. Only the power rule can fail; its error is an
// *types.ExtractionError and the caller must drop the whole listing.
func (rs *RuleSet) Apply(label, raw string) (string, Result, error) {
	key := NormalizeLabel(label)
	value := strings.TrimSpace(raw)

	switch {
	case rs.NumericFields[key]:
		res, unit := NumericWithUnit(value)
		if key != rs.CurrencyField {
			key = key + " (" + unit + ")"
		}
		return key, res, nil

	case key == rs.DoorField:
		return key, DoorCount(value), nil

	case key == rs.PowerField:
		hp, err := Horsepower(value)
		if err != nil {
			return key, Unrepresentable(), &types.ExtractionError{Field: key, Value: value, Err: err}
		}
		return key + " (LE)", Ok(hp), nil

	case rs.EnumeratedFields[key]:
		return key, Ok(Translate(rs.Dictionary, value)), nil
	}

	return key, Ok(value), nil
}

// NumericWithUnit reads "1 234 Ft" as 1234 with unit "Ft". Input without a
// leading digit run yields an empty-string value, not zero.
func NumericWithUnit(raw string) (Result, string) {
	cleaned := separatorReplacer.Replace(raw)
	m := leadingDigitsRe.FindStringSubmatch(cleaned)
	digits, unit := m[1], m[2]
	if digits == "" {
		return Ok(""), unit
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// digit run too long for int64
		return Unrepresentable(), unit
	}
	return Ok(n), unit
}

// DoorCount parses a plain integer.
func DoorCount(raw string) Result {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return Unrepresentable()
	}
	return Ok(n)
}

// Horsepower extracts the LE figure from "92 kW, 125 LE".
func Horsepower(raw string) (int64, error) {
	s := strings.ReplaceAll(raw, "\u00a0", " ")
	m := powerRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, ErrMalformedPower
	}
	return strconv.ParseInt(m[2], 10, 64)
}
