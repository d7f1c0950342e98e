package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	monthRe    = regexp.MustCompile(`^[0-9]{4}/?([0-9]{2})?`)
	gearsRe    = regexp.MustCompile(`^(?:Automata|Manuális|Automatic|Manual)\s+\(([4-7])\s+(?:fokozatú|speed)\)`)
	metallicRe = regexp.MustCompile(`(?i)\(\s*(?:metál|metallic)\s*\)`)
)

// Dictionary resolves a source-locale term to its canonical form.
type Dictionary interface {
	Lookup(term string) (string, bool)
}

// Translate returns the canonical term, or term itself when it is unknown.
func Translate(d Dictionary, term string) string {
	if d == nil {
		return term
	}
	if v, ok := d.Lookup(term); ok {
		return v
	}
	return term
}

// ManufactureYear takes the year from "2012/05" or "2012".
func ManufactureYear(date string) Result {
	s := strings.TrimSpace(date)
	if len(s) < 4 {
		return Unrepresentable()
	}
	y, err := strconv.ParseInt(s[:4], 10, 64)
	if err != nil {
		return Unrepresentable()
	}
	return Ok(y)
}

// ManufactureMonth takes the two-digit month after an optional "/". Dates
// without a month segment are unrepresentable.
func ManufactureMonth(date string) Result {
	m := monthRe.FindStringSubmatch(strings.TrimSpace(date))
	if m == nil || m[1] == "" {
		return Unrepresentable()
	}
	month, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Unrepresentable()
	}
	return Ok(month)
}

// Gears reads the gear count from "Manuális (5 fokozatú)" or
// "Automatic (6 speed)". A transmission without a gear count is not an error.
func Gears(transmission string) Result {
	m := gearsRe.FindStringSubmatch(strings.TrimSpace(transmission))
	if m == nil {
		return Unrepresentable()
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Unrepresentable()
	}
	return Ok(n)
}

// ColorRegex splits a raw color such as "fekete (metál)" into a translated
// paint name and a metallic flag. The metallic marker is removed first. A
// multi-word name is looked up whole, and falls back to its first word when
// the dictionary does not know the phrase.
func ColorRegex(raw string, d Dictionary) (paint, metallic Result) {
	if strings.TrimSpace(raw) == "" {
		return Unrepresentable(), Unrepresentable()
	}

	metallic = Ok(metallicRe.MatchString(raw))
	name := strings.Join(strings.Fields(metallicRe.ReplaceAllString(raw, " ")), " ")
	if name == "" {
		return Unrepresentable(), metallic
	}

	if d != nil {
		if v, ok := d.Lookup(name); ok {
			return Ok(v), metallic
		}
	}
	first := strings.Fields(name)[0]
	return Ok(Translate(d, first)), metallic
}

// ColorSplit splits on single spaces, takes the first token as the paint and
// looks for an exact "(metál)" token.
//
// Deprecated: ColorSplit mis-handles multi-word names and repeated spaces.
// Use ColorRegex.
func ColorSplit(raw string, d Dictionary) (paint, metallic Result) {
	if raw == "" {
		return Unrepresentable(), Unrepresentable()
	}
	words := strings.Split(raw, " ")
	isMetallic := false
	for _, w := range words {
		if w == "(metál)" || w == "(metallic)" {
			isMetallic = true
			break
		}
	}
	return Ok(Translate(d, words[0])), Ok(isMetallic)
}
