// Package testutil holds helpers shared by tests and the scenario harness.
package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/strata/internal/engine"
)

// FixedRunIDGenerator generates the same run ID every time.
//
// Unlike engine.FixedGenerator, which returns IDs in sequence and panics when
// they run out, this generator always returns the same ID, so a scenario can
// be re-run any number of times and still produce byte-identical results.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

var _ engine.RunIDGenerator = (*FixedRunIDGenerator)(nil)

// NewFixedRunIDGenerator creates a new fixed run ID generator.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
