// Package bypass recognises bot-protection interstitials returned in place
// of a marketplace search page.
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Page is the subset of an HTTP response the detectors inspect.
type Page struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Detector reports whether page is a challenge or block page and, if so,
// which protection vendor served it.
type Detector func(page Page) (source string, blocked bool)

// DefaultDetectors returns the detectors run against every scraped page.
func DefaultDetectors() []Detector {
	return []Detector{
		detectMarketplaceChallenge,
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// Analyze runs detectors in order and returns the first match.
func Analyze(page Page, detectors []Detector) (string, bool) {
	for _, d := range detectors {
		if src, blocked := d(page); blocked {
			return src, true
		}
	}
	return "", false
}

func header(h http.Header, key string) string {
	if h == nil {
		return ""
	}
	if v := h.Get(key); v != "" {
		return v
	}
	// Header maps built by hand may not be canonicalised.
	for k, vals := range h {
		if strings.EqualFold(k, key) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func server(p Page) string {
	return strings.ToLower(header(p.Header, "Server"))
}

// detectMarketplaceChallenge catches the marketplace's own interstitial,
// which is served with a 200 status.
func detectMarketplaceChallenge(p Page) (string, bool) {
	if bytes.Contains(p.Body, []byte("Pardon Our Interruption")) ||
		bytes.Contains(p.Body, []byte("/splashui/challenge")) ||
		bytes.Contains(p.Body, []byte("/splashui/captcha")) {
		return "MarketplaceChallenge", true
	}
	return "", false
}

func detectCloudflare(p Page) (string, bool) {
	if p.StatusCode != http.StatusForbidden && p.StatusCode != http.StatusServiceUnavailable {
		return "", false
	}
	if strings.Contains(server(p), "cloudflare") {
		return "Cloudflare", true
	}
	for _, sig := range []string{"cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare"} {
		if bytes.Contains(p.Body, []byte(sig)) {
			return "Cloudflare", true
		}
	}
	return "", false
}

func detectAkamai(p Page) (string, bool) {
	if p.StatusCode != http.StatusForbidden {
		return "", false
	}
	if strings.Contains(server(p), "akamai") {
		return "Akamai", true
	}
	if bytes.Contains(p.Body, []byte("Reference #")) && bytes.Contains(p.Body, []byte("Access Denied")) {
		return "Akamai", true
	}
	return "", false
}

func detectDataDome(p Page) (string, bool) {
	if p.StatusCode != http.StatusForbidden {
		return "", false
	}
	if strings.Contains(server(p), "datadome") ||
		header(p.Header, "X-DataDome") != "" ||
		header(p.Header, "X-DataDome-Response") != "" {
		return "DataDome", true
	}
	if bytes.Contains(p.Body, []byte("geo.captcha-delivery.com")) || bytes.Contains(p.Body, []byte("datadome")) {
		return "DataDome", true
	}
	return "", false
}

func detectPerimeterX(p Page) (string, bool) {
	if p.StatusCode != http.StatusForbidden {
		return "", false
	}
	if header(p.Header, "X-Px-Captcha") != "" {
		return "PerimeterX", true
	}
	for _, sig := range []string{"client.perimeterx.net", "px-captcha", "_pxBlock"} {
		if bytes.Contains(p.Body, []byte(sig)) {
			return "PerimeterX", true
		}
	}
	return "", false
}
