package useragent

import (
	"sync"
	"testing"
)

func TestPool_Next(t *testing.T) {
	p := NewPool([]string{"A", "B", "C"})

	want := []string{"A", "B", "C", "A"}
	for i, w := range want {
		if got := p.Next(); got != w {
			t.Errorf("call %d: expected %s, got %s", i, w, got)
		}
	}
}

func TestPool_DefaultsToDesktop(t *testing.T) {
	p := NewPool(nil)
	if p.Len() != len(Desktop) {
		t.Errorf("expected %d agents, got %d", len(Desktop), p.Len())
	}
	if got := p.Next(); got != Desktop[0] {
		t.Errorf("expected %s, got %s", Desktop[0], got)
	}
}

func TestPool_CopiesInput(t *testing.T) {
	in := []string{"A"}
	p := NewPool(in)
	in[0] = "mutated"

	if got := p.Next(); got != "A" {
		t.Errorf("expected pool to keep its own copy, got %s", got)
	}
}

func TestPool_Random(t *testing.T) {
	p := NewPool([]string{"A", "B"})

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		got := p.Random()
		if got != "A" && got != "B" {
			t.Fatalf("unexpected agent: %s", got)
		}
		seen[got] = true
	}

	if !seen["A"] || !seen["B"] {
		t.Errorf("expected both agents to be picked, got %v", seen)
	}
}

func TestPool_ConcurrentNext(t *testing.T) {
	p := NewPool([]string{"X", "Y", "Z"})

	const workers = 50
	const calls = 300

	var mu sync.Mutex
	counts := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := map[string]int{}
			for j := 0; j < calls; j++ {
				local[p.Next()]++
			}
			mu.Lock()
			for k, v := range local {
				counts[k] += v
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	each := workers * calls / 3
	for k, v := range counts {
		if v != each {
			t.Errorf("expected %d hits for %s, got %d", each, k, v)
		}
	}
}

func TestPool_Empty(t *testing.T) {
	p := &Pool{}
	if got := p.Next(); got != "" {
		t.Errorf("expected empty agent, got %s", got)
	}
	if got := p.Random(); got != "" {
		t.Errorf("expected empty agent, got %s", got)
	}
}
