package discovery

import (
	"net/url"
	"sort"
	"strings"
)

// deduplicator remembers canonical listing URLs in order of first appearance.
type deduplicator struct {
	seen map[string]struct{}
}

// linksPerPage and maxSizeHint bound the map size hint, which comes from
// page text.
const (
	linksPerPage = 20
	maxSizeHint  = 1 << 16
)

func newDeduplicator(pages int) *deduplicator {
	hint := maxSizeHint
	if pages >= 0 && pages < maxSizeHint/linksPerPage {
		hint = pages * linksPerPage
	}
	return &deduplicator{seen: make(map[string]struct{}, hint)}
}

// firstSeen marks rawURL as seen and reports whether this is its first
// appearance.
func (d *deduplicator) firstSeen(rawURL string) bool {
	key := CanonicalizeURL(rawURL)
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// CanonicalizeURL normalizes a URL for duplicate detection. It lowercases
// the scheme and host, drops the fragment and default ports, sorts query
// parameters and removes a trailing slash.
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
