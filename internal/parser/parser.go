// Package parser turns fetched catalog pages into listing URLs and listing
// detail pages into raw listing records.
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cellText returns the trimmed text of a selection.
func cellText(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
