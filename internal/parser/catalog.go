package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/types"
)

// CatalogParser reads the paginated results pages of the catalog.
type CatalogParser struct {
	lastPageXPath string
	resultClass   string
	logger        *slog.Logger
}

// NewCatalogParser creates a parser using the catalog layout from cfg.
func NewCatalogParser(cfg *config.CatalogConfig, logger *slog.Logger) *CatalogParser {
	return &CatalogParser{
		lastPageXPath: fmt.Sprintf("//*[@title=%s]", xpathLiteral(cfg.LastPageTitle)),
		resultClass:   cfg.ResultItemClass,
		logger:        logger.With("component", "catalog_parser"),
	}
}

// LastPage returns the page number shown by the "last page" pagination
// element. A missing or non-numeric element is types.ErrLayoutChanged.
func (p *CatalogParser) LastPage(resp *types.Response) (int, error) {
	doc, err := html.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return 0, fmt.Errorf("parse HTML: %w", err)
	}

	node, err := htmlquery.Query(doc, p.lastPageXPath)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", p.lastPageXPath, err)
	}
	if node == nil {
		return 0, fmt.Errorf("%w: no element matches %s", types.ErrLayoutChanged, p.lastPageXPath)
	}

	text := strings.TrimSpace(htmlquery.InnerText(node))
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: last page indicator %q is not a page number", types.ErrLayoutChanged, text)
	}
	return n, nil
}

// ResultLinks returns the first anchor href of every result block, resolved
// against the page URL, in document order. Duplicates are kept; the caller
// decides what to do with them.
func (p *CatalogParser) ResultLinks(resp *types.Response) ([]string, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	base, err := url.Parse(resp.URL())
	if err != nil {
		return nil, fmt.Errorf("parse page URL: %w", err)
	}

	var links []string
	doc.Find("div." + p.resultClass).Each(func(i int, item *goquery.Selection) {
		href, exists := item.Find("a[href]").First().Attr("href")
		href = strings.TrimSpace(href)
		if !exists || href == "" {
			p.logger.Warn("result item without link", "page", resp.URL(), "index", i)
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			p.logger.Warn("invalid result link", "page", resp.URL(), "href", href, "error", err)
			return
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""
		links = append(links, resolved.String())
	})

	return links, nil
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = "'" + part + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
