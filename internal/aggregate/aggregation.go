// Package aggregate groups decoded event records by type and derives the
// time span of a trace file.
package aggregate

import (
	"sync"

	"github.com/kylixs/flareon/internal/models"
)

// Aggregation is the parsed state of one trace file. It is created empty and
// filled once by an Aggregator; after that its contents never change.
type Aggregation struct {
	File *models.TraceFile

	mu         sync.RWMutex
	order      []string // Types in first-seen order
	buckets    map[string][]map[string]any
	startTime  int64
	endTime    int64
	durationMs int64
	parsed     bool
	decodeErr  error
}

// NewAggregation creates an empty aggregation bound to file.
func NewAggregation(file *models.TraceFile) *Aggregation {
	return &Aggregation{
		File:    file,
		buckets: make(map[string][]map[string]any),
	}
}

// Types returns the event types in the order they were first seen.
func (a *Aggregation) Types() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string{}, a.order...)
}

// Events returns the attribute maps recorded for an event type.
func (a *Aggregation) Events(typ string) []map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]map[string]any{}, a.buckets[typ]...)
}

// Count returns the number of events of a type.
func (a *Aggregation) Count(typ string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.buckets[typ])
}

// Len returns the total number of events.
func (a *Aggregation) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, b := range a.buckets {
		n += len(b)
	}
	return n
}

// Empty reports whether no event has been recorded.
func (a *Aggregation) Empty() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.order) == 0
}

// Parsed reports whether the decoder has run for this file, successfully or not.
func (a *Aggregation) Parsed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.parsed
}

// Span returns the start time, end time and duration in milliseconds.
func (a *Aggregation) Span() (start, end, durationMs int64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.startTime, a.endTime, a.durationMs
}

// Err returns the decode failure that cut the parse short, if any.
func (a *Aggregation) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.decodeErr
}

// commit publishes a finished parse. It reports false if agg was already parsed.
func (a *Aggregation) commit(order []string, buckets map[string][]map[string]any, span timeSpan, decodeErr error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.parsed {
		return false
	}
	a.order = order
	a.buckets = buckets
	a.startTime = span.start
	a.endTime = span.end
	a.durationMs = (span.end - span.start) / nanosPerMilli
	a.parsed = true
	a.decodeErr = decodeErr
	return true
}
