// Package fingerprint builds HTTP transports whose TLS ClientHello matches a
// real browser, so marketplace edge servers see a browser handshake instead
// of the Go default.
package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS ClientHello to present.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"
	ProfileRandom  Profile = "random"
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	ProfileRandom:  utls.HelloRandomizedNoALPN,
}

// httpProtocols is the only ALPN offer sent. net/http cannot speak h2 over a
// utls connection, so h2 must never be negotiated.
var httpProtocols = []string{"http/1.1"}

// ParseProfile maps a config string to a Profile. Empty selects chrome.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return ProfileChrome, nil
	}
	if p == ProfileGo {
		return p, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("fingerprint: unknown profile %q", s)
	}
	return p, nil
}

// Transport returns a RoundTripper presenting profile p. ProfileGo yields a
// plain clone of http.DefaultTransport. proxy may be nil.
func Transport(p Profile, proxy func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != nil {
		transport.Proxy = proxy
	}

	if p == ProfileGo {
		return transport, nil
	}

	helloID, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}

	transport.ForceAttemptHTTP2 = false

	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		cfg := &utls.Config{ServerName: host}
		if tc := transport.TLSClientConfig; tc != nil {
			cfg.RootCAs = tc.RootCAs
			cfg.InsecureSkipVerify = tc.InsecureSkipVerify
		}

		uconn, err := client(conn, cfg, helloID)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("fingerprint: %s: %w", p, err)
		}
		if err := uconn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("fingerprint: %s handshake with %s: %w", p, host, err)
		}
		if proto := uconn.ConnectionState().NegotiatedProtocol; proto != "" && proto != "http/1.1" {
			_ = uconn.Close()
			return nil, fmt.Errorf("fingerprint: %s negotiated unsupported protocol %q", host, proto)
		}
		return uconn, nil
	}

	return transport, nil
}

// client builds a utls connection presenting helloID with its ALPN offer
// narrowed to HTTP/1.1. Randomized hellos are used as-is.
func client(conn net.Conn, cfg *utls.Config, helloID utls.ClientHelloID) (*utls.UConn, error) {
	if helloID == utls.HelloRandomizedNoALPN {
		return utls.UClient(conn, cfg, helloID), nil
	}

	spec, err := utls.UTLSIdToSpec(helloID)
	if err != nil {
		return nil, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = httpProtocols
		}
	}

	uconn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uconn.ApplyPreset(&spec); err != nil {
		return nil, err
	}
	return uconn, nil
}
