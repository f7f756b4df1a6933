package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfilerScopes(t *testing.T) {
	p := NewProfiler()

	p.Begin("update")
	time.Sleep(time.Millisecond)
	p.End("update")

	p.Begin("encode")
	p.End("encode")

	stats := p.StatsString()
	assert.Contains(t, stats, "update")
	assert.Contains(t, stats, "encode")
	// Insertion order is stable.
	assert.Less(t, strings.Index(stats, "update"), strings.Index(stats, "encode"))
}

func TestProfilerEndWithoutBegin(t *testing.T) {
	p := NewProfiler()
	p.End("nothing")
	assert.Empty(t, p.StatsString())
}
