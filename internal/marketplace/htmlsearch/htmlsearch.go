// Package htmlsearch implements marketplace.Searcher by scraping the
// public search results page.
package htmlsearch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/scout/internal/bypass"
	"github.com/FranksOps/scout/internal/fingerprint"
	"github.com/FranksOps/scout/internal/marketplace"
	"github.com/FranksOps/scout/internal/metrics"
	"github.com/FranksOps/scout/pkg/httpclient"
	"github.com/FranksOps/scout/pkg/proxy"
	"github.com/FranksOps/scout/pkg/useragent"
	"github.com/PuerkitoBio/goquery"
)

// Result page selectors.
const (
	selCount    = ".srp-controls__count-heading"
	selItem     = "li.s-item"
	selTitle    = ".s-item__title"
	selPrice    = ".s-item__price"
	selShipping = ".s-item__shipping"
	selLink     = "a.s-item__link"
)

// maxBody bounds how much of a result page is read.
const maxBody = 8 << 20

var digits = regexp.MustCompile(`\d[\d,]*`)

type contextKey string

const proxyKey contextKey = "proxy_url"

// Config configures the scraping client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Fingerprint fingerprint.Profile
	UserAgents  *useragent.Pool
	// RandomUserAgent picks agents at random instead of in rotation.
	RandomUserAgent bool
	Proxies         *proxy.Pool
	Detectors       []bypass.Detector
	Logger          *slog.Logger
}

// Client scrapes one search page per keyword.
type Client struct {
	cfg    Config
	client *httpclient.Client
	logger *slog.Logger
}

var _ marketplace.Searcher = (*Client)(nil)

// New builds a Client. One transport and cookie jar are shared by every
// search the client runs.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = marketplace.DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgents == nil {
		cfg.UserAgents = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("htmlsearch: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		UseCookieJar: true,
		Header:       browserHeader(cfg.BaseURL),
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("htmlsearch: %w", err)
	}

	return &Client{cfg: cfg, client: client, logger: cfg.Logger}, nil
}

// browserHeader is the header set a desktop browser sends on a top-level
// navigation. The storefront rejects requests that lack it.
func browserHeader(base string) http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Referer", base+"/")
	h.Set("DNT", "1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Cache-Control", "max-age=0")
	return h
}

// Search fetches and parses the result page for keyword.
func (c *Client) Search(ctx context.Context, keyword string) marketplace.SearchResult {
	searchURL := marketplace.SearchURL(c.cfg.BaseURL, keyword)

	body, err := c.fetch(ctx, searchURL)
	if err != nil {
		c.logger.Warn("search failed", "keyword", keyword, "url", searchURL, "err", err)
		return marketplace.Failure(searchURL, err)
	}

	total, items, err := ParsePage(bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("parse failed", "keyword", keyword, "url", searchURL, "err", err)
		return marketplace.Failure(searchURL, err)
	}

	c.logger.Debug("search parsed", "keyword", keyword, "total", total, "items", len(items))
	return marketplace.SearchResult{
		Total:     total,
		Items:     items,
		SearchURL: searchURL,
	}
}

func (c *Client) userAgent() string {
	if c.cfg.RandomUserAgent {
		return c.cfg.UserAgents.Random()
	}
	return c.cfg.UserAgents.Next()
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent())

	var via *url.URL
	if c.cfg.Proxies != nil {
		if via = c.cfg.Proxies.Next(); via != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyKey, via))
		}
	}

	resp, err := c.client.Do(req.Context(), req)
	if via != nil {
		_ = c.cfg.Proxies.Report(via, err)
		if err != nil {
			metrics.ProxyFailures.WithLabelValues(via.Redacted()).Inc()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	page := bypass.Page{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if src, blocked := bypass.Analyze(page, c.cfg.Detectors); blocked {
		metrics.BlockedTotal.WithLabelValues(src).Inc()
		return nil, fmt.Errorf("%w: %s (status %d)", marketplace.ErrBlocked, src, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", marketplace.ErrUnexpectedStatus, resp.StatusCode)
	}

	return body, nil
}

// ParsePage extracts the result count and the first MaxItems listings from
// a search results page. Listings missing a field get marketplace.NotAvailable.
func ParsePage(r io.Reader) (int, []marketplace.ItemSummary, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, nil, fmt.Errorf("parse html: %w", err)
	}

	total := parseCount(doc.Find(selCount).First().Text())

	items := make([]marketplace.ItemSummary, 0, marketplace.MaxItems)
	doc.Find(selItem).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		items = append(items, marketplace.ItemSummary{
			Title:     text(s, selTitle),
			Price:     text(s, selPrice),
			Shipping:  text(s, selShipping),
			Condition: marketplace.NotAvailable,
			URL:       href(s, selLink),
		})
		return len(items) < marketplace.MaxItems
	})

	return total, items, nil
}

// parseCount reads the first run of digits in heading, ignoring thousands
// separators. No digits yields 0.
func parseCount(heading string) int {
	m := digits.FindString(heading)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func text(s *goquery.Selection, selector string) string {
	el := s.Find(selector).First()
	if el.Length() == 0 {
		return marketplace.NotAvailable
	}
	return strings.TrimSpace(el.Text())
}

func href(s *goquery.Selection, selector string) string {
	v, ok := s.Find(selector).First().Attr("href")
	if !ok {
		return marketplace.NotAvailable
	}
	return v
}
