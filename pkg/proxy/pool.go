package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned when reporting on a URL the pool never issued.
var ErrUnknownProxy = errors.New("proxy: not in pool")

type endpoint struct {
	url       *url.URL
	failures  int
	benchedTo time.Time
}

// Pool rotates outbound requests across a list of proxies. A proxy that
// fails MaxFailures times in a row is benched for Cooldown.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	cursor      int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// Config defines settings for the Proxy Pool.
type Config struct {
	MaxFailures int
	Cooldown    time.Duration
}

// NewPool creates an empty pool. Zero config values fall back to
// 3 failures and a 5 minute cooldown.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		now:         time.Now,
	}
}

// LoadFile adds every proxy listed in path, one per line.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy: %w", err)
	}
	defer f.Close()
	return p.Load(f)
}

// Load reads one proxy per line from r. Blank lines and '#' comments are skipped.
func (p *Pool) Load(r io.Reader) error {
	var raws []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raws = append(raws, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("proxy: %w", err)
	}
	return p.Add(raws...)
}

// Add parses and appends proxies. A missing scheme defaults to http.
func (p *Pool) Add(raws ...string) error {
	parsed := make([]*endpoint, 0, len(raws))
	for _, raw := range raws {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("proxy: %w", err)
		}
		if u.Host == "" {
			return fmt.Errorf("proxy: %q has no host", raw)
		}
		parsed = append(parsed, &endpoint{url: u})
	}

	p.mu.Lock()
	p.endpoints = append(p.endpoints, parsed...)
	p.mu.Unlock()
	return nil
}

// Len returns the number of proxies, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Next returns the next proxy that is not benched, or nil when every
// proxy is cooling down or the pool is empty.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.endpoints {
		ep := p.endpoints[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.endpoints)

		if !ep.benchedTo.IsZero() {
			if now.Before(ep.benchedTo) {
				continue
			}
			ep.benchedTo = time.Time{}
			ep.failures = 0
		}
		return ep.url
	}
	return nil
}

// Report records the outcome of a request sent through u. A nil err
// clears one failure; a non-nil err counts toward benching the proxy.
func (p *Pool) Report(u *url.URL, err error) error {
	if u == nil {
		return ErrUnknownProxy
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ep := p.lookup(u)
	if ep == nil {
		return ErrUnknownProxy
	}

	if err == nil {
		if ep.failures > 0 {
			ep.failures--
		}
		return nil
	}

	ep.failures++
	if ep.failures >= p.maxFailures {
		ep.benchedTo = p.now().Add(p.cooldown)
	}
	return nil
}

// lookup must be called with mu held.
func (p *Pool) lookup(u *url.URL) *endpoint {
	key := u.String()
	for _, ep := range p.endpoints {
		if ep.url.String() == key {
			return ep
		}
	}
	return nil
}
