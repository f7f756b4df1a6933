package app

import (
	"fmt"
	"strings"
	"time"
)

// Profiler accumulates per-frame CPU scope timings for the debug overlay.
// Scopes keep insertion order so the overlay is stable frame to frame.
type Profiler struct {
	order  []string
	starts map[string]time.Time
	scopes map[string]time.Duration
}

func NewProfiler() *Profiler {
	return &Profiler{
		starts: make(map[string]time.Time),
		scopes: make(map[string]time.Duration),
	}
}

func (p *Profiler) Begin(name string) {
	if _, seen := p.scopes[name]; !seen {
		p.order = append(p.order, name)
		p.scopes[name] = 0
	}
	p.starts[name] = time.Now()
}

func (p *Profiler) End(name string) {
	if start, ok := p.starts[name]; ok {
		p.scopes[name] = time.Since(start)
	}
}

func (p *Profiler) StatsString() string {
	var sb strings.Builder
	for _, name := range p.order {
		ms := float64(p.scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "%-10s %.2f ms\n", name, ms)
	}
	return sb.String()
}
