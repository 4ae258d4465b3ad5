// Package browseapi implements marketplace.Searcher on top of the Browse
// REST API item_summary search.
package browseapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/scout/internal/marketplace"
	"github.com/FranksOps/scout/pkg/httpclient"
)

const (
	DefaultBaseURL       = "https://api.ebay.com"
	DefaultMarketplaceID = "EBAY_US"

	searchPath = "/buy/browse/v1/item_summary/search"
	usedFilter = "conditions:{USED}"
)

// Config configures the API client.
type Config struct {
	BaseURL       string
	StoreURL      string
	Token         string
	MarketplaceID string
	Timeout       time.Duration
	Transport     http.RoundTripper
	Logger        *slog.Logger
}

// Client queries the item_summary search endpoint with a bearer token.
type Client struct {
	cfg    Config
	client *httpclient.Client
	logger *slog.Logger
}

var _ marketplace.Searcher = (*Client)(nil)

// New builds a Client. Token is required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("browseapi: %w", marketplace.ErrUnauthorized)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.StoreURL == "" {
		cfg.StoreURL = marketplace.DefaultBaseURL
	}
	if cfg.MarketplaceID == "" {
		cfg.MarketplaceID = DefaultMarketplaceID
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+cfg.Token)
	h.Set("X-EBAY-C-MARKETPLACE-ID", cfg.MarketplaceID)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")

	client, err := httpclient.New(httpclient.Config{
		Timeout:   cfg.Timeout,
		Header:    h,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("browseapi: %w", err)
	}

	return &Client{cfg: cfg, client: client, logger: cfg.Logger}, nil
}

type searchResponse struct {
	Total         int           `json:"total"`
	ItemSummaries []itemSummary `json:"itemSummaries"`
}

type itemSummary struct {
	Title           *string          `json:"title"`
	Price           *amount          `json:"price"`
	Condition       *string          `json:"condition"`
	ItemWebURL      *string          `json:"itemWebUrl"`
	ShippingOptions []shippingOption `json:"shippingOptions"`
}

type shippingOption struct {
	ShippingCost *amount `json:"shippingCost"`
}

type amount struct {
	Value    *string `json:"value"`
	Currency *string `json:"currency"`
}

// Search queries the API for used listings matching keyword. The returned
// SearchURL is the storefront link for the same query, for display only.
func (c *Client) Search(ctx context.Context, keyword string) marketplace.SearchResult {
	resp, err := c.query(ctx, keyword)
	if err != nil {
		c.logger.Warn("search failed", "keyword", keyword, "err", err)
		return marketplace.Failure(marketplace.FallbackURL(c.cfg.StoreURL, keyword), err)
	}

	items := make([]marketplace.ItemSummary, 0, marketplace.MaxItems)
	for _, s := range resp.ItemSummaries {
		if len(items) == marketplace.MaxItems {
			break
		}
		items = append(items, s.summary())
	}

	total := resp.Total
	if total < 0 {
		total = 0
	}

	c.logger.Debug("search decoded", "keyword", keyword, "total", total, "items", len(items))
	return marketplace.SearchResult{
		Total:     total,
		Items:     items,
		SearchURL: marketplace.SearchURL(c.cfg.StoreURL, keyword),
	}
}

func (c *Client) query(ctx context.Context, keyword string) (*searchResponse, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("limit", strconv.Itoa(marketplace.MaxItems))
	q.Set("filter", usedFilter)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, marketplace.ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, marketplace.ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %d", marketplace.ErrUnexpectedStatus, resp.StatusCode)
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &out, nil
}

func (s itemSummary) summary() marketplace.ItemSummary {
	shipping := marketplace.NotAvailable
	if len(s.ShippingOptions) > 0 {
		shipping = s.ShippingOptions[0].ShippingCost.format()
	}
	return marketplace.ItemSummary{
		Title:     orNA(s.Title),
		Price:     s.Price.format(),
		Shipping:  shipping,
		Condition: orNA(s.Condition),
		URL:       orNA(s.ItemWebURL),
	}
}

// format renders "<value> <currency>". A missing value reads N/A and a
// missing currency leaves the trailing space in place.
func (a *amount) format() string {
	value, currency := marketplace.NotAvailable, ""
	if a != nil {
		if a.Value != nil {
			value = *a.Value
		}
		if a.Currency != nil {
			currency = *a.Currency
		}
	}
	return value + " " + currency
}

func orNA(s *string) string {
	if s == nil {
		return marketplace.NotAvailable
	}
	return *s
}
