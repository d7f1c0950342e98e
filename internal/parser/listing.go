package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/extract"
	"github.com/IshaanNene/carharvest/internal/types"
)

// ListingParser builds a raw listing record from a detail page.
type ListingParser struct {
	titleSelector string
	tableSelector string
	rules         *extract.RuleSet
	logger        *slog.Logger
}

// NewListingParser creates a parser using the catalog selectors from cfg.
// Enumerated fields are translated through dict; a nil dict keeps them as
// they appear on the page.
func NewListingParser(cfg *config.CatalogConfig, rules *extract.RuleSet, dict extract.Dictionary, logger *slog.Logger) *ListingParser {
	if rules == nil {
		rules = extract.DefaultRuleSet()
	}
	return &ListingParser{
		titleSelector: cfg.TitleSelector,
		tableSelector: cfg.DetailsTableSelector,
		rules:         rules.WithDictionary(dict),
		logger:        logger.With("component", "listing_parser"),
	}
}

// Parse extracts the title and every label/value pair of the details table.
// The record is keyed by url exactly as given, so a later lookup with the
// same link finds it; an empty url falls back to the requested address.
// A missing title or table is a *types.ParseError; a value that breaks a
// strict rule is a *types.ExtractionError and no record is returned.
func (p *ListingParser) Parse(resp *types.Response, url string) (*types.Listing, error) {
	pageURL := strings.TrimSpace(url)
	if pageURL == "" {
		pageURL = resp.URL()
	}

	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: fmt.Errorf("parse HTML: %w", err)}
	}

	listing := types.NewListing(pageURL)

	title := doc.Find(p.titleSelector).First()
	if title.Length() == 0 {
		return nil, &types.ParseError{URL: pageURL, Selector: p.titleSelector, Err: types.ErrNotFound}
	}
	listing.Title = cellText(title)

	table := doc.Find(p.tableSelector).First()
	if table.Length() == 0 {
		return nil, &types.ParseError{URL: pageURL, Selector: p.tableSelector, Err: types.ErrNotFound}
	}

	cells := table.Find("td")
	pairs := cells.Length() / 2
	if cells.Length()%2 != 0 {
		p.logger.Debug("dropping unmatched trailing cell", "url", pageURL, "cells", cells.Length())
	}

	for i := 0; i < pairs; i++ {
		label := cellText(cells.Eq(2 * i))
		raw := cellText(cells.Eq(2*i + 1))

		key, res, err := p.rules.Apply(label, raw)
		if err != nil {
			return nil, err
		}
		if key == "" {
			continue
		}
		listing.Set(key, res.Nullable())
	}

	return listing, nil
}
