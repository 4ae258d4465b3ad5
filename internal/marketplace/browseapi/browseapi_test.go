package browseapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/FranksOps/scout/internal/marketplace"
	"github.com/jarcoal/httpmock"
)

const searchEndpoint = DefaultBaseURL + searchPath

func newMockedClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	c, err := New(Config{
		Token:     "test-token",
		Timeout:   5 * time.Second,
		Transport: mt,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c, mt
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Config{Token: "  "})
	if !errors.Is(err, marketplace.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSearch_Success(t *testing.T) {
	c, mt := newMockedClient(t)

	var gotAuth, gotMarketplace string
	var gotQuery url.Values
	mt.RegisterResponder(http.MethodGet, searchEndpoint, func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		gotMarketplace = req.Header.Get("X-EBAY-C-MARKETPLACE-ID")
		gotQuery = req.URL.Query()
		return httpmock.NewStringResponse(http.StatusOK, `{
			"total": 812,
			"itemSummaries": [
				{
					"title": "Sony Walkman WM-2",
					"price": {"value": "120.00", "currency": "USD"},
					"condition": "Used",
					"itemWebUrl": "https://www.ebay.com/itm/1",
					"shippingOptions": [
						{"shippingCost": {"value": "9.95", "currency": "USD"}},
						{"shippingCost": {"value": "30.00", "currency": "USD"}}
					]
				},
				{
					"title": "Walkman no shipping info",
					"price": {"value": "45.00", "currency": "USD"},
					"itemWebUrl": "https://www.ebay.com/itm/2"
				},
				{
					"shippingOptions": [{}]
				}
			]
		}`), nil
	})

	res := c.Search(context.Background(), "sony walkman")
	if res.Failed() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("unexpected Authorization header: %q", gotAuth)
	}
	if gotMarketplace != "EBAY_US" {
		t.Errorf("unexpected marketplace header: %q", gotMarketplace)
	}
	if gotQuery.Get("q") != "sony walkman" || gotQuery.Get("limit") != "5" || gotQuery.Get("filter") != "conditions:{USED}" {
		t.Errorf("unexpected query: %v", gotQuery)
	}

	if res.Total != 812 {
		t.Errorf("expected total 812, got %d", res.Total)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(res.Items))
	}

	want := []marketplace.ItemSummary{
		{Title: "Sony Walkman WM-2", Price: "120.00 USD", Shipping: "9.95 USD", Condition: "Used", URL: "https://www.ebay.com/itm/1"},
		{Title: "Walkman no shipping info", Price: "45.00 USD", Shipping: "N/A", Condition: "N/A", URL: "https://www.ebay.com/itm/2"},
		{Title: "N/A", Price: "N/A ", Shipping: "N/A ", Condition: "N/A", URL: "N/A"},
	}
	for i, w := range want {
		if res.Items[i] != w {
			t.Errorf("item %d = %+v, want %+v", i, res.Items[i], w)
		}
	}

	if res.SearchURL != "https://www.ebay.com/sch/i.html?_nkw=sony%20walkman&_sacat=0&LH_ItemCondition=3000" {
		t.Errorf("unexpected search url: %s", res.SearchURL)
	}
}

func TestSearch_CapsItems(t *testing.T) {
	c, mt := newMockedClient(t)

	items := make([]map[string]any, 9)
	for i := range items {
		items[i] = map[string]any{"title": string(rune('A' + i))}
	}
	mt.RegisterResponder(http.MethodGet, searchEndpoint,
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{"total": 9, "itemSummaries": items}))

	res := c.Search(context.Background(), "x")
	if len(res.Items) != marketplace.MaxItems {
		t.Fatalf("expected %d items, got %d", marketplace.MaxItems, len(res.Items))
	}
	if res.Items[0].Title != "A" || res.Items[4].Title != "E" {
		t.Errorf("expected source order, got %q..%q", res.Items[0].Title, res.Items[4].Title)
	}
}

func TestSearch_Failures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		wantErr   error
	}{
		{"unauthorized", httpmock.NewStringResponder(http.StatusUnauthorized, `{}`), marketplace.ErrUnauthorized},
		{"rate limited", httpmock.NewStringResponder(http.StatusTooManyRequests, `{}`), marketplace.ErrRateLimited},
		{"server error", httpmock.NewStringResponder(http.StatusBadGateway, `oops`), marketplace.ErrUnexpectedStatus},
		{"network", httpmock.NewErrorResponder(errors.New("connection reset")), nil},
		{"bad json", httpmock.NewStringResponder(http.StatusOK, `{"total":`), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mt := newMockedClient(t)
			mt.RegisterResponder(http.MethodGet, searchEndpoint, tt.responder)

			res := c.Search(context.Background(), "walkman")

			if !res.Failed() {
				t.Fatal("expected failed result")
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, res.Err)
			}
			if res.Total != 0 || len(res.Items) != 0 {
				t.Errorf("expected zeroed result, got %+v", res)
			}
			if res.SearchURL != "https://www.ebay.com/sch/i.html?_nkw=walkman&_sacat=0" {
				t.Errorf("expected fallback url, got %s", res.SearchURL)
			}
		})
	}
}
