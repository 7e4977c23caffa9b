// Package id provides identifier generation utilities.
// This is the canonical source for ID generation across the codebase.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator hands out sequential multi-reference ids of the form id-1,
// id-2, ... Each encode session owns its own Generator, so tests and
// concurrent sessions never share an id namespace.
type Generator struct {
	n atomic.Uint64
}

// NewGenerator returns a generator starting at id-1.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next id. Safe for concurrent use.
func (g *Generator) Next() string {
	return "id-" + strconv.FormatUint(g.n.Add(1), 10)
}

// UUID generates a UUID v4 string.
func UUID() string {
	return uuid.NewString()
}
