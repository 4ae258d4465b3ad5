package useragent

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
)

// Desktop lists browser User-Agents that marketplace search pages accept.
// Mobile agents are left out on purpose: they get a different result layout.
var Desktop = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.4; rv:126.0) Gecko/20100101 Firefox/126.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// Pool hands out User-Agent strings either round-robin or at random.
// It is safe for concurrent use.
type Pool struct {
	agents []string
	next   atomic.Uint64
}

// NewPool copies agents into a new Pool. An empty list selects Desktop.
func NewPool(agents []string) *Pool {
	if len(agents) == 0 {
		agents = Desktop
	}
	return &Pool{agents: append([]string(nil), agents...)}
}

// Next returns the agents in order, wrapping around at the end.
func (p *Pool) Next() string {
	if len(p.agents) == 0 {
		return ""
	}
	i := p.next.Add(1) - 1
	return p.agents[i%uint64(len(p.agents))]
}

// Random picks an agent using crypto/rand, falling back to Next.
func (p *Pool) Random() string {
	if len(p.agents) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.agents))))
	if err != nil {
		return p.Next()
	}
	return p.agents[n.Int64()]
}

// Len reports how many agents the pool rotates through.
func (p *Pool) Len() int {
	return len(p.agents)
}
