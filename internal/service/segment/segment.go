// Package segment generates identifiers for finalized transcript segments.
package segment

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out monotonically increasing segment ids.
type Generator struct {
	counter uint64
}

func New() *Generator {
	return &Generator{}
}

// Next returns the next id under prefix, e.g. "<session>-seg-3".
func (g *Generator) Next(prefix string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-seg-%d", prefix, n)
}

// Count returns the number of ids handed out since creation or the last Reset.
func (g *Generator) Count() uint64 {
	return atomic.LoadUint64(&g.counter)
}

// Reset restarts numbering at 1.
func (g *Generator) Reset() {
	atomic.StoreUint64(&g.counter, 0)
}
