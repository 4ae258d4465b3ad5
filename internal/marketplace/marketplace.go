// Package marketplace defines the keyword search capability shared by the
// HTML scraping and REST API variants.
package marketplace

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// NotAvailable fills any item field the source did not provide.
const NotAvailable = "N/A"

// MaxItems caps how many items a search keeps, whatever the source returns.
const MaxItems = 5

// DefaultBaseURL is the public storefront used for search page links.
const DefaultBaseURL = "https://www.ebay.com"

var (
	ErrBlocked          = errors.New("blocked by bot protection")
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	ErrUnauthorized     = errors.New("access token rejected")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

// ItemSummary is one listing from a result page.
type ItemSummary struct {
	Title     string
	Price     string
	Shipping  string
	Condition string
	URL       string
}

// SearchResult is the outcome of one keyword search. A failed search keeps
// Total at 0, has no Items and carries Err.
type SearchResult struct {
	Total     int
	Items     []ItemSummary
	SearchURL string
	Err       error
}

// Failed reports whether the search ended in an error.
func (r SearchResult) Failed() bool {
	return r.Err != nil
}

// ErrorText returns the error message, or "" for a successful search.
func (r SearchResult) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Searcher runs a keyword search. Implementations never return a Go error:
// failures are reported through SearchResult.Err.
type Searcher interface {
	Search(ctx context.Context, keyword string) SearchResult
}

// Failure builds the zeroed result for a failed search.
func Failure(searchURL string, err error) SearchResult {
	return SearchResult{SearchURL: searchURL, Err: err}
}

// Capped truncates items to MaxItems, keeping source order.
func Capped(items []ItemSummary) []ItemSummary {
	if len(items) > MaxItems {
		return items[:MaxItems]
	}
	return items
}

// SearchURL builds the storefront search link for keyword: all categories,
// used condition only.
func SearchURL(base, keyword string) string {
	return searchPath(base, keyword) + "&_sacat=0&LH_ItemCondition=3000"
}

// FallbackURL is the link reported when a search fails before a request
// URL exists. It drops the condition filter.
func FallbackURL(base, keyword string) string {
	return searchPath(base, keyword) + "&_sacat=0"
}

func searchPath(base, keyword string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/sch/i.html?_nkw=" + escape(keyword)
}

// escape percent-encodes keyword for a query value, spaces as %20.
func escape(keyword string) string {
	return strings.ReplaceAll(url.QueryEscape(keyword), "+", "%20")
}
